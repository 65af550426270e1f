package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/domain/account"
	"github.com/microlending/loan-engine/internal/domain/client"
	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/microlending/loan-engine/internal/domain/shared"
)

// LoanServiceImpl implements the LoanService interface
type LoanServiceImpl struct {
	loanRepo        loan.Repository
	installmentRepo installment.Repository
	txManager       TxManager
	clients         client.Gateway
	accounts        account.Gateway
	evaluator       CreditEvaluator
	publisher       NotificationPublisher
	policy          config.LoanPolicyConfig
	logger          *slog.Logger
	now             func() time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(
	logger *slog.Logger,
	loanRepo loan.Repository,
	installmentRepo installment.Repository,
	txManager TxManager,
	clients client.Gateway,
	accounts account.Gateway,
	evaluator CreditEvaluator,
	publisher NotificationPublisher,
	policy config.LoanPolicyConfig,
) *LoanServiceImpl {
	return &LoanServiceImpl{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		txManager:       txManager,
		clients:         clients,
		accounts:        accounts,
		evaluator:       evaluator,
		publisher:       publisher,
		policy:          policy,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *LoanServiceImpl) log(ctx context.Context) *slog.Logger {
	if id := shared.CorrelationIDFromContext(ctx); id != "" {
		return s.logger.With("correlation_id", id)
	}
	return s.logger
}

// CreateLoan stores a PENDING loan once the client, the account and every
// policy check pass. No ledger entry or installment is written here.
func (s *LoanServiceImpl) CreateLoan(ctx context.Context, req LoanRequest) (*loan.Loan, error) {
	logger := s.log(ctx)

	l, err := loan.NewLoan(req.ClientID, req.AccountID, req.Amount, req.TermMonths, req.InterestRate)
	if err != nil {
		return nil, err
	}

	c, err := s.fetchClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if _, err := s.fetchAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}

	if err := evaluate(ctx, s.evaluator, req); err != nil {
		logger.Info("Loan request failed credit evaluation",
			"client_id", req.ClientID,
			"account_id", req.AccountID,
			"amount", req.Amount.String(),
			"reason", err.Error(),
		)
		return nil, err
	}

	if err := s.loanRepo.Create(ctx, l); err != nil {
		return nil, err
	}

	logger.Info("Loan created",
		"loan_id", l.ID,
		"client_id", l.ClientID,
		"amount", l.Amount.String(),
		"term_months", l.TermMonths,
	)

	s.publisher.Publish(ctx, notification.NewLoanEvent(notification.EventLoanCreated, l, c, shared.CorrelationIDFromContext(ctx)))
	return l, nil
}

// UpdateLoan replaces the terms of a PENDING loan
func (s *LoanServiceImpl) UpdateLoan(ctx context.Context, id int64, req LoanRequest) (*loan.Loan, error) {
	l, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsEditable() {
		return nil, fmt.Errorf("loan %d is %s and can no longer be modified: %w", l.ID, l.Status, shared.ErrIllegalStateTransition)
	}

	updated, err := loan.NewLoan(req.ClientID, req.AccountID, req.Amount, req.TermMonths, req.InterestRate)
	if err != nil {
		return nil, err
	}

	if _, err := s.fetchClient(ctx, req.ClientID); err != nil {
		return nil, err
	}
	if _, err := s.fetchAccount(ctx, req.AccountID); err != nil {
		return nil, err
	}
	if err := evaluate(ctx, s.evaluator, req); err != nil {
		return nil, err
	}

	l.ClientID = updated.ClientID
	l.AccountID = updated.AccountID
	l.Amount = updated.Amount
	l.TermMonths = updated.TermMonths
	l.InterestRate = updated.InterestRate
	l.UpdatedAt = s.now()

	if err := s.loanRepo.Update(ctx, l); err != nil {
		return nil, err
	}

	s.log(ctx).Info("Loan updated", "loan_id", l.ID)
	return l, nil
}

func (s *LoanServiceImpl) DeleteLoan(ctx context.Context, id int64) error {
	if err := s.loanRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log(ctx).Info("Loan deleted", "loan_id", id)
	return nil
}

func (s *LoanServiceImpl) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	return s.loanRepo.GetByID(ctx, id)
}

func (s *LoanServiceImpl) ListLoans(ctx context.Context) ([]*loan.Loan, error) {
	return s.loanRepo.List(ctx)
}

// ListLoansByClient confirms the client exists before listing its loans
func (s *LoanServiceImpl) ListLoansByClient(ctx context.Context, clientID int64) ([]*loan.Loan, error) {
	if _, err := s.fetchClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.loanRepo.ListByClientID(ctx, clientID)
}

// AcceptLoan moves a PENDING loan to APPROVED. The disbursement is written to
// the external ledger before the local transaction; a failure after that point
// is not compensated and leaves the loan PENDING with the credit applied.
func (s *LoanServiceImpl) AcceptLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	logger := s.log(ctx).With("loan_id", id)

	l, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != loan.StatusPending {
		return nil, fmt.Errorf("loan %d is %s, only PENDING loans can be approved: %w", l.ID, l.Status, shared.ErrIllegalStateTransition)
	}

	c, err := s.fetchClient(ctx, l.ClientID)
	if err != nil {
		return nil, err
	}
	acc, err := s.fetchAccount(ctx, l.AccountID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, fmt.Errorf("client %d is not active (%s): %w", c.ID, c.Status, shared.ErrPolicyViolation)
	}
	if !acc.IsActive() {
		return nil, fmt.Errorf("account %d is not active (%s): %w", acc.ID, acc.Status, shared.ErrPolicyViolation)
	}

	active, err := s.loanRepo.CountByClientAndStatus(ctx, l.ClientID, loan.StatusApproved)
	if err != nil {
		return nil, err
	}
	if active >= s.policy.MaxActiveLoans {
		return nil, fmt.Errorf("client %d already has %d active loans (limit %d): %w",
			l.ClientID, active, s.policy.MaxActiveLoans, shared.ErrPolicyViolation)
	}

	now := s.now()
	disbursement := account.Transaction{
		Amount:    l.Amount,
		Type:      account.TransactionTypeCredit,
		Date:      now,
		Reference: fmt.Sprintf("loan disbursement id:%d", l.ID),
	}
	if err := s.accounts.SubmitTransaction(ctx, l.AccountID, disbursement); err != nil {
		logger.Error("Failed to submit disbursement to ledger", "account_id", l.AccountID, "error", err)
		return nil, fmt.Errorf("failed to submit disbursement: %w", err)
	}

	if s.policy.SyncAccountBalance {
		balance := acc.Balance.Add(l.Amount)
		if err := s.accounts.UpdateAccount(ctx, l.AccountID, account.Patch{Balance: &balance}); err != nil {
			logger.Error("Failed to sync account balance after disbursement", "account_id", l.AccountID, "error", err)
			return nil, fmt.Errorf("failed to update account balance: %w", err)
		}
	}

	schedule, err := BuildSchedule(l, now)
	if err != nil {
		return nil, err
	}
	if err := l.Approve(now); err != nil {
		return nil, err
	}

	err = s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.installmentRepo.WithTx(tx).CreateBatch(ctx, schedule); err != nil {
			return err
		}
		return s.loanRepo.WithTx(tx).Update(ctx, l)
	})
	if err != nil {
		logger.Error("Disbursement applied but loan approval was not persisted", "error", err)
		return nil, err
	}

	logger.Info("Loan approved",
		"client_id", l.ClientID,
		"amount", l.Amount.String(),
		"installments", len(schedule),
	)

	s.publisher.Publish(ctx, notification.NewLoanEvent(notification.EventLoanApproved, l, c, shared.CorrelationIDFromContext(ctx)))
	return l, nil
}

// RejectLoan moves a PENDING loan to REJECTED
func (s *LoanServiceImpl) RejectLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	l, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.Reject(s.now()); err != nil {
		return nil, err
	}
	if err := s.loanRepo.Update(ctx, l); err != nil {
		return nil, err
	}

	s.log(ctx).Info("Loan rejected", "loan_id", l.ID)

	s.publisher.Publish(ctx, notification.NewLoanEvent(notification.EventLoanRejected, l, s.lookupClient(ctx, l.ClientID), shared.CorrelationIDFromContext(ctx)))
	return l, nil
}

func (s *LoanServiceImpl) fetchClient(ctx context.Context, id int64) (*client.Client, error) {
	c, err := s.clients.GetClientByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client %d: %w", id, err)
	}
	return c, nil
}

func (s *LoanServiceImpl) fetchAccount(ctx context.Context, id int64) (*account.Account, error) {
	acc, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %d: %w", id, err)
	}
	return acc, nil
}

// lookupClient resolves the client for an event payload; a failure only thins
// the payload
func (s *LoanServiceImpl) lookupClient(ctx context.Context, id int64) *client.Client {
	c, err := s.clients.GetClientByID(ctx, id)
	if err != nil {
		s.log(ctx).Warn("Client lookup for notification failed", "client_id", id, "error", err)
		return nil
	}
	return c
}
