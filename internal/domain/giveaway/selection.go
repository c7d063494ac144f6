package giveaway

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// selectionAttemptFactor bounds reject-and-resample at 10*count draws.
const selectionAttemptFactor = 10

// SelectIndexes picks count distinct indexes in [0, total) from a
// cryptographically secure random source, rejecting collisions. The result
// preserves selection order, which keeps the entry-to-code binding order
// deterministic given a fixed inventory order.
func SelectIndexes(total, count int) ([]int, error) {
	if count <= 0 {
		return nil, ErrInvalidWinnerCount
	}
	if count > total {
		return nil, fmt.Errorf("%w: need %d distinct indexes from %d candidates", ErrSelectionExhausted, count, total)
	}

	selected := make(map[int]struct{}, count)
	result := make([]int, 0, count)
	maxAttempts := selectionAttemptFactor * count

	bound := big.NewInt(int64(total))
	for attempt := 0; attempt < maxAttempts && len(result) < count; attempt++ {
		// rand.Int is exactly uniform over [0, total); a modulo over raw
		// bytes would skew low indexes.
		n, err := rand.Int(rand.Reader, bound)
		if err != nil {
			return nil, fmt.Errorf("read random index: %w", err)
		}
		index := int(n.Int64())

		if _, dup := selected[index]; dup {
			continue
		}
		selected[index] = struct{}{}
		result = append(result, index)
	}

	if len(result) < count {
		return nil, fmt.Errorf("%w: %d attempts yielded %d of %d", ErrSelectionExhausted, maxAttempts, len(result), count)
	}
	return result, nil
}
