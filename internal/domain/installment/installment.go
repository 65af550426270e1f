package installment

import (
	"fmt"
	"time"

	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the payment state of an installment
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// Installment is one scheduled repayment of a loan
type Installment struct {
	ID        int64           `json:"id"`
	LoanID    int64           `json:"loan_id"`
	Sequence  int             `json:"sequence"`
	DueDate   time.Time       `json:"due_date"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsPayable is the single rule deciding whether a payment may be taken
func (i *Installment) IsPayable() bool {
	return i.Status == StatusPending
}

// MarkPaid settles the installment. PAID is terminal.
func (i *Installment) MarkPaid(now time.Time) error {
	if !i.IsPayable() {
		return fmt.Errorf("installment %d is %s: %w", i.ID, i.Status, shared.ErrIllegalStateTransition)
	}
	i.Status = StatusPaid
	i.PaidAt = &now
	i.UpdatedAt = now
	return nil
}

// AllPaid reports whether every installment in the set is settled. An empty
// set is never considered paid.
func AllPaid(installments []*Installment) bool {
	if len(installments) == 0 {
		return false
	}
	for _, i := range installments {
		if i.Status != StatusPaid {
			return false
		}
	}
	return true
}
