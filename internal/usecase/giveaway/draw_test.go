package giveaway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	domaingiveaway "superlot/internal/domain/giveaway"
)

func TestDrawWinnersBindsDistinctParticipantsAndCodes(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.seedCandidate(t, fmt.Sprintf("user%d", i))
	}
	for i := 0; i < 3; i++ {
		h.seedGiftCode(t, fmt.Sprintf("CODE-%d", i))
	}

	winners, err := h.svc.DrawWinners(ctx, 3)
	if err != nil {
		t.Fatalf("DrawWinners() error = %v", err)
	}
	if len(winners) != 3 {
		t.Fatalf("winners = %d, want 3", len(winners))
	}

	participants := make(map[uint64]struct{})
	codes := make(map[uint64]struct{})
	tokens := make(map[string]struct{})
	for _, winner := range winners {
		if _, dup := participants[winner.ParticipantID]; dup {
			t.Fatalf("participant %d won twice", winner.ParticipantID)
		}
		if _, dup := codes[winner.GiftCodeID]; dup {
			t.Fatalf("gift code %d bound twice", winner.GiftCodeID)
		}
		if _, dup := tokens[winner.Token]; dup {
			t.Fatalf("token %q issued twice", winner.Token)
		}
		participants[winner.ParticipantID] = struct{}{}
		codes[winner.GiftCodeID] = struct{}{}
		tokens[winner.Token] = struct{}{}

		detail, err := h.repo.GetWinnerByID(ctx, winner.WinnerID)
		if err != nil {
			t.Fatalf("load winner %d: %v", winner.WinnerID, err)
		}
		if detail.Status != string(domaingiveaway.WinnerPending) {
			t.Fatalf("winner %d status = %s, want PENDING", winner.WinnerID, detail.Status)
		}
	}

	// All bound codes are consumed and the remaining inventory is empty.
	remaining, err := h.repo.CountAvailableGiftCodes(ctx, h.svc.now())
	if err != nil {
		t.Fatalf("count available: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("available codes after draw = %d, want 0", remaining)
	}
}

func TestDrawWinnersExcludesPriorWinners(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	h.seedCandidate(t, "alice")
	h.seedCandidate(t, "bob")
	h.seedGiftCode(t, "CODE-1")
	h.seedGiftCode(t, "CODE-2")

	first, err := h.svc.DrawWinners(ctx, 1)
	if err != nil {
		t.Fatalf("first DrawWinners() error = %v", err)
	}
	second, err := h.svc.DrawWinners(ctx, 1)
	if err != nil {
		t.Fatalf("second DrawWinners() error = %v", err)
	}
	if first[0].ParticipantID == second[0].ParticipantID {
		t.Fatalf("participant %d won both draws", first[0].ParticipantID)
	}

	// Both candidates have won: a third draw has nobody left.
	if _, err := h.svc.DrawWinners(ctx, 1); !errors.Is(err, domaingiveaway.ErrNoEligibleEntries) {
		t.Fatalf("third draw error = %v, want ErrNoEligibleEntries", err)
	}
}

func TestDrawWinnersInvalidCount(t *testing.T) {
	h := setupHarness(t)

	for _, count := range []int{0, -5} {
		if _, err := h.svc.DrawWinners(context.Background(), count); !errors.Is(err, domaingiveaway.ErrInvalidWinnerCount) {
			t.Fatalf("DrawWinners(%d) error = %v, want ErrInvalidWinnerCount", count, err)
		}
	}
}

func TestDrawWinnersNoEligibleEntries(t *testing.T) {
	h := setupHarness(t)
	h.seedGiftCode(t, "CODE-1")

	if _, err := h.svc.DrawWinners(context.Background(), 1); !errors.Is(err, domaingiveaway.ErrNoEligibleEntries) {
		t.Fatalf("error = %v, want ErrNoEligibleEntries", err)
	}
}

func TestDrawWinnersInsufficientEntries(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	h.seedCandidate(t, "alice")
	h.seedGiftCode(t, "CODE-1")
	h.seedGiftCode(t, "CODE-2")

	_, err := h.svc.DrawWinners(ctx, 2)
	var entriesErr *domaingiveaway.InsufficientEntriesError
	if !errors.As(err, &entriesErr) {
		t.Fatalf("error = %v, want InsufficientEntriesError", err)
	}
	if entriesErr.Required != 2 || entriesErr.Available != 1 {
		t.Fatalf("InsufficientEntriesError = %+v", entriesErr)
	}

	// The failed draw must not have consumed anything.
	if winners, listErr := h.svc.ListWinners(ctx); listErr != nil || len(winners) != 0 {
		t.Fatalf("winners after failed draw = %v (err %v), want none", winners, listErr)
	}
}

func TestDrawWinnersInsufficientInventory(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	h.seedCandidate(t, "alice")
	h.seedCandidate(t, "bob")
	h.seedGiftCode(t, "CODE-1")

	_, err := h.svc.DrawWinners(ctx, 2)
	var inventoryErr *domaingiveaway.InsufficientInventoryError
	if !errors.As(err, &inventoryErr) {
		t.Fatalf("error = %v, want InsufficientInventoryError", err)
	}
	if inventoryErr.Required != 2 || inventoryErr.Available != 1 {
		t.Fatalf("InsufficientInventoryError = %+v", inventoryErr)
	}

	available, err := h.repo.CountAvailableGiftCodes(ctx, h.svc.now())
	if err != nil {
		t.Fatalf("count available: %v", err)
	}
	if available != 1 {
		t.Fatalf("available = %d, the failed draw must not consume inventory", available)
	}
}

func TestDrawWinnersConcurrentDrawsNeverDoubleBind(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		h.seedCandidate(t, fmt.Sprintf("user%d", i))
	}
	for i := 0; i < 4; i++ {
		h.seedGiftCode(t, fmt.Sprintf("CODE-%d", i))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.DrawWinners(ctx, 2); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	// A losing draw may surface the transient transaction error, an
	// inventory shortfall, or the store's uniqueness rejection; the
	// binding invariants must hold regardless.
	for err := range errCh {
		var inventoryErr *domaingiveaway.InsufficientInventoryError
		if errors.Is(err, domaingiveaway.ErrDrawTransactionFailed) ||
			errors.Is(err, domaingiveaway.ErrNoEligibleEntries) ||
			errors.Is(err, domaingiveaway.ErrDuplicateWinner) ||
			errors.As(err, &inventoryErr) {
			continue
		}
		t.Fatalf("unexpected draw error: %v", err)
	}

	winners, err := h.svc.ListWinners(ctx)
	if err != nil {
		t.Fatalf("ListWinners() error = %v", err)
	}
	if len(winners) > 4 {
		t.Fatalf("winners = %d, more than the inventory allows", len(winners))
	}

	participants := make(map[uint64]struct{})
	codes := make(map[uint64]struct{})
	for _, winner := range winners {
		if _, dup := participants[winner.ParticipantID]; dup {
			t.Fatalf("participant %d bound twice under concurrency", winner.ParticipantID)
		}
		if _, dup := codes[winner.GiftCodeID]; dup {
			t.Fatalf("gift code %d bound twice under concurrency", winner.GiftCodeID)
		}
		participants[winner.ParticipantID] = struct{}{}
		codes[winner.GiftCodeID] = struct{}{}
	}
}

func TestDrawWinnersWritesStatusCache(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	h.seedCandidate(t, "alice")
	h.seedGiftCode(t, "CODE-1")

	winners, err := h.svc.DrawWinners(ctx, 1)
	if err != nil {
		t.Fatalf("DrawWinners() error = %v", err)
	}

	cached, found, err := h.cache.Get(ctx, cacheWinnerStatusKey(winners[0].WinnerID))
	if err != nil || !found {
		t.Fatalf("cache miss for winner status (found=%t err=%v)", found, err)
	}
	if cached != string(domaingiveaway.WinnerPending) {
		t.Fatalf("cached status = %s, want PENDING", cached)
	}
}
