package account

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

// Gateway defines the operations the loan service needs from the account and
// transaction services
type Gateway interface {
	GetAccountByID(ctx context.Context, id int64) (*Account, error)
	ListTransactions(ctx context.Context, accountID int64) ([]Transaction, error)
	SubmitTransaction(ctx context.Context, accountID int64, tx Transaction) error
	UpdateAccount(ctx context.Context, id int64, patch Patch) error
}

// Patch carries the mutable account fields
type Patch struct {
	Balance *decimal.Decimal
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID int64
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + strconv.FormatInt(e.AccountID, 10)
}

// Is matches any ErrAccountNotFound when the target carries no ID
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == 0 || e.AccountID == t.AccountID
}
