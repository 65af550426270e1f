package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/shopspring/decimal"
)

// TxManager runs a unit of work inside one database transaction
type TxManager interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// NotificationPublisher hands loan events off for asynchronous delivery.
// Publish never blocks on the broker and never reports delivery failures.
type NotificationPublisher interface {
	Publish(ctx context.Context, event *notification.LoanEvent)
}

// LoanRequest carries the client-supplied terms of a loan
type LoanRequest struct {
	ClientID     int64
	AccountID    int64
	Amount       decimal.Decimal
	TermMonths   int
	InterestRate decimal.Decimal
}

// LoanService defines the loan lifecycle operations
type LoanService interface {
	// CreateLoan validates the client, account and credit policy, then stores a PENDING loan
	CreateLoan(ctx context.Context, req LoanRequest) (*loan.Loan, error)

	// UpdateLoan changes the terms of a PENDING loan, re-running every check
	UpdateLoan(ctx context.Context, id int64, req LoanRequest) (*loan.Loan, error)

	// DeleteLoan removes a loan and, through the foreign key, its installments
	DeleteLoan(ctx context.Context, id int64) error

	GetLoan(ctx context.Context, id int64) (*loan.Loan, error)
	ListLoans(ctx context.Context) ([]*loan.Loan, error)
	ListLoansByClient(ctx context.Context, clientID int64) ([]*loan.Loan, error)

	// AcceptLoan disburses the principal, writes the schedule and approves the loan
	AcceptLoan(ctx context.Context, id int64) (*loan.Loan, error)

	// RejectLoan closes a PENDING loan without disbursement
	RejectLoan(ctx context.Context, id int64) (*loan.Loan, error)
}

// InstallmentService defines installment queries and payment
type InstallmentService interface {
	// PayInstallment debits the account, marks the installment PAID and
	// finishes the loan once nothing is left to pay
	PayInstallment(ctx context.Context, installmentID, accountID int64) (*installment.Installment, error)

	GetInstallment(ctx context.Context, id int64) (*installment.Installment, error)
	ListInstallments(ctx context.Context) ([]*installment.Installment, error)
	ListInstallmentsByLoan(ctx context.Context, loanID int64) ([]*installment.Installment, error)
}

// NotificationService reads archived loan events
type NotificationService interface {
	ListByLoan(ctx context.Context, loanID int64, limit int) ([]*notification.LoanEvent, error)
}
