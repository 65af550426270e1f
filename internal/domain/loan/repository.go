package loan

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository defines loan persistence operations
type Repository interface {
	Create(ctx context.Context, loan *Loan) error
	GetByID(ctx context.Context, id int64) (*Loan, error)
	List(ctx context.Context) ([]*Loan, error)
	ListByClientID(ctx context.Context, clientID int64) ([]*Loan, error)
	CountByClientAndStatus(ctx context.Context, clientID int64, status Status) (int, error)
	Update(ctx context.Context, loan *Loan) error
	Delete(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrLoanNotFound indicates missing loan
type ErrLoanNotFound struct {
	LoanID int64
}

func (e ErrLoanNotFound) Error() string {
	return "loan not found: " + strconv.FormatInt(e.LoanID, 10)
}

// Is matches any ErrLoanNotFound when the target carries no ID
func (e ErrLoanNotFound) Is(target error) bool {
	t, ok := target.(ErrLoanNotFound)
	if !ok {
		return false
	}
	if t.LoanID == 0 {
		return true
	}
	return e.LoanID == t.LoanID
}
