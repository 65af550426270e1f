package installment

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines installment persistence operations
type Repository interface {
	CreateBatch(ctx context.Context, installments []*Installment) error
	GetByID(ctx context.Context, id int64) (*Installment, error)
	List(ctx context.Context) ([]*Installment, error)
	ListByLoanID(ctx context.Context, loanID int64) ([]*Installment, error)

	// MarkPaid flips a PENDING row to PAID. It returns ErrInstallmentNotPending
	// when no pending row matched, which covers a concurrent payment.
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) error
	WithTx(tx pgx.Tx) Repository
}

// ErrInstallmentNotFound indicates missing installment
type ErrInstallmentNotFound struct {
	InstallmentID int64
}

func (e ErrInstallmentNotFound) Error() string {
	return "installment not found: " + strconv.FormatInt(e.InstallmentID, 10)
}

// Is matches any ErrInstallmentNotFound when the target carries no ID
func (e ErrInstallmentNotFound) Is(target error) bool {
	t, ok := target.(ErrInstallmentNotFound)
	if !ok {
		return false
	}
	if t.InstallmentID == 0 {
		return true
	}
	return e.InstallmentID == t.InstallmentID
}

// ErrInstallmentNotPending indicates the guarded PAID update matched nothing
type ErrInstallmentNotPending struct {
	InstallmentID int64
}

func (e ErrInstallmentNotPending) Error() string {
	return "installment is not pending: " + strconv.FormatInt(e.InstallmentID, 10)
}
