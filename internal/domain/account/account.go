package account

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType names a ledger entry kind as reported by the transaction service
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDITO"
	TransactionTypeDebit  TransactionType = "DEBITO"
)

var (
	incomeTypes  = map[string]struct{}{"DEPOSITO": {}, "DEPÓSITO": {}, "DEPOSIT": {}, "CREDITO": {}, "CRÉDITO": {}, "CREDIT": {}}
	expenseTypes = map[string]struct{}{"RETIRO": {}, "WITHDRAWAL": {}, "DEBITO": {}, "DÉBITO": {}, "DEBIT": {}}
)

// IsIncome reports whether the type adds money to the account
func (t TransactionType) IsIncome() bool {
	_, ok := incomeTypes[normalize(t)]
	return ok
}

// IsExpense reports whether the type takes money out of the account
func (t TransactionType) IsExpense() bool {
	_, ok := expenseTypes[normalize(t)]
	return ok
}

func normalize(t TransactionType) string {
	return strings.ToUpper(strings.TrimSpace(string(t)))
}

// Account is the loan service's view of an account owned by the account service
type Account struct {
	ID       int64           `json:"id"`
	ClientID int64           `json:"client_id"`
	Type     string          `json:"type"`
	Status   string          `json:"status"`
	Balance  decimal.Decimal `json:"balance"`
}

// IsActive accepts both spellings used by the account service
func (a *Account) IsActive() bool {
	switch strings.ToUpper(strings.TrimSpace(a.Status)) {
	case "ACTIVA", "ACTIVO", "ACTIVE":
		return true
	}
	return false
}

// CanWithdraw checks if the account has sufficient funds for a debit
func (a *Account) CanWithdraw(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Transaction is a ledger entry recorded against an account
type Transaction struct {
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference,omitempty"`
}

// CashFlow sums income and expense entries. Unknown types are ignored.
func CashFlow(txs []Transaction) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.Type.IsIncome():
			income = income.Add(tx.Amount.Abs())
		case tx.Type.IsExpense():
			expense = expense.Add(tx.Amount.Abs())
		}
	}
	return income, expense
}
