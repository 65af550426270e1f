package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores archived loan events
type Repository interface {
	Create(ctx context.Context, event *LoanEvent) error
	ListByLoanID(ctx context.Context, loanID int64, limit int) ([]*LoanEvent, error)
}

// ErrDuplicateEvent indicates the event was already archived
type ErrDuplicateEvent struct {
	EventID uuid.UUID
}

func (e ErrDuplicateEvent) Error() string {
	return "duplicate loan event: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEvent
func (e ErrDuplicateEvent) Is(target error) bool {
	t, ok := target.(ErrDuplicateEvent)
	if !ok {
		return false
	}
	// If the target EventID is empty, consider it a match for any ErrDuplicateEvent
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}
