package loan

import (
	"fmt"
	"time"

	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a loan
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusFinished Status = "FINISHED"
)

// Stored scale of loan terms
const (
	AmountScale = 2
	RateScale   = 4
)

// Loan represents a credit extended to a client against one of their accounts.
// Installments are stored separately and reference the loan by ID only.
type Loan struct {
	ID               int64           `json:"id"`
	ClientID         int64           `json:"client_id"`
	AccountID        int64           `json:"account_id"`
	Amount           decimal.Decimal `json:"amount"`
	TermMonths       int             `json:"term_months"`
	InterestRate     decimal.Decimal `json:"interest_rate"` // annual, as a fraction
	Status           Status          `json:"status"`
	DisbursementDate *time.Time      `json:"disbursement_date,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewLoan creates a pending loan. Policy checks are the caller's concern.
func NewLoan(clientID, accountID int64, amount decimal.Decimal, termMonths int, rate decimal.Decimal) (*Loan, error) {
	if clientID <= 0 || accountID <= 0 {
		return nil, fmt.Errorf("client and account are required: %w", shared.ErrInvalidData)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", shared.ErrInvalidData)
	}
	if termMonths <= 0 {
		return nil, fmt.Errorf("term must be positive: %w", shared.ErrInvalidData)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("interest rate cannot be negative: %w", shared.ErrInvalidData)
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places: %w", amount.String(), AmountScale, shared.ErrInvalidData)
	}
	if !rate.Equal(rate.Round(RateScale)) {
		return nil, fmt.Errorf("interest rate %s has more than %d decimal places: %w", rate.String(), RateScale, shared.ErrInvalidData)
	}

	now := time.Now().UTC()
	return &Loan{
		ClientID:     clientID,
		AccountID:    accountID,
		Amount:       amount,
		TermMonths:   termMonths,
		InterestRate: rate,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// TotalPayable is principal plus simple interest over the term, rounded to cents
func (l *Loan) TotalPayable() decimal.Decimal {
	years := decimal.NewFromInt(int64(l.TermMonths)).Div(decimal.NewFromInt(12))
	factor := decimal.NewFromInt(1).Add(l.InterestRate.Mul(years))
	return l.Amount.Mul(factor).Round(2)
}

// Approve moves a pending loan to APPROVED and stamps the disbursement date
func (l *Loan) Approve(now time.Time) error {
	if l.Status != StatusPending {
		return l.illegal(StatusApproved)
	}
	l.Status = StatusApproved
	l.DisbursementDate = &now
	l.UpdatedAt = now
	return nil
}

// Reject moves a pending loan to REJECTED
func (l *Loan) Reject(now time.Time) error {
	if l.Status != StatusPending {
		return l.illegal(StatusRejected)
	}
	l.Status = StatusRejected
	l.UpdatedAt = now
	return nil
}

// Finish closes an approved loan once its last installment is paid
func (l *Loan) Finish(now time.Time) error {
	if l.Status != StatusApproved {
		return l.illegal(StatusFinished)
	}
	l.Status = StatusFinished
	l.UpdatedAt = now
	return nil
}

// IsEditable reports whether the loan's terms may still change
func (l *Loan) IsEditable() bool {
	return l.Status == StatusPending
}

func (l *Loan) illegal(to Status) error {
	return fmt.Errorf("loan %d cannot move from %s to %s: %w", l.ID, l.Status, to, shared.ErrIllegalStateTransition)
}
