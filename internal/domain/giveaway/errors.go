package giveaway

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWinnerCount = errors.New("winner count must be positive")
	ErrNoEligibleEntries  = errors.New("no eligible entries found")

	// ErrDuplicateWinner signals an invariant violation: a participant or a
	// gift code would be bound twice. Always a defect, never expected.
	ErrDuplicateWinner = errors.New("duplicate winner binding detected")

	// ErrDrawTransactionFailed is transient; the caller may retry the whole
	// draw, which re-reads inventory under a fresh transaction.
	ErrDrawTransactionFailed = errors.New("draw transaction failed")

	// ErrSelectionExhausted bounds the reject-and-resample loop. Under
	// correct uniform sampling it does not trigger.
	ErrSelectionExhausted = errors.New("selection attempts exhausted")

	ErrSendFailed = errors.New("notification send failed")

	ErrDuplicateGiftCode = errors.New("gift code already exists")

	ErrParticipantNotFound  = errors.New("participant not found")
	ErrEntryNotFound        = errors.New("entry not found")
	ErrWinnerNotFound       = errors.New("winner not found")
	ErrNotificationNotFound = errors.New("notification task not found")
	ErrGiftCodeNotFound     = errors.New("gift code not found")
)

// InsufficientEntriesError reports an unmet capacity precondition. The draw
// is never partially satisfied.
type InsufficientEntriesError struct {
	Required  int
	Available int
}

func (e *InsufficientEntriesError) Error() string {
	return fmt.Sprintf("not enough eligible entries: required %d, available %d", e.Required, e.Available)
}

type InsufficientInventoryError struct {
	Required  int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("not enough gift codes: required %d, available %d", e.Required, e.Available)
}
