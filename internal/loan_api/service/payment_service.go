package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/microlending/loan-engine/internal/domain/account"
	"github.com/microlending/loan-engine/internal/domain/client"
	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/microlending/loan-engine/internal/domain/shared"
)

// InstallmentServiceImpl implements the InstallmentService interface
type InstallmentServiceImpl struct {
	installmentRepo installment.Repository
	loanRepo        loan.Repository
	txManager       TxManager
	accounts        account.Gateway
	clients         client.Gateway
	publisher       NotificationPublisher
	logger          *slog.Logger
	now             func() time.Time
}

// NewInstallmentService creates a new installment service
func NewInstallmentService(
	logger *slog.Logger,
	installmentRepo installment.Repository,
	loanRepo loan.Repository,
	txManager TxManager,
	accounts account.Gateway,
	clients client.Gateway,
	publisher NotificationPublisher,
) *InstallmentServiceImpl {
	return &InstallmentServiceImpl{
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
		txManager:       txManager,
		accounts:        accounts,
		clients:         clients,
		publisher:       publisher,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// PayInstallment settles one installment from the given account. The ledger
// debit happens before the local transaction and is not reversed if that
// transaction fails.
func (s *InstallmentServiceImpl) PayInstallment(ctx context.Context, installmentID, accountID int64) (*installment.Installment, error) {
	logger := s.logger.With("installment_id", installmentID, "account_id", accountID)
	if id := shared.CorrelationIDFromContext(ctx); id != "" {
		logger = logger.With("correlation_id", id)
	}

	inst, err := s.installmentRepo.GetByID(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if !inst.IsPayable() {
		return nil, fmt.Errorf("installment %d is %s: %w", inst.ID, inst.Status, shared.ErrIllegalStateTransition)
	}
	if !inst.Amount.IsPositive() {
		return nil, fmt.Errorf("installment %d has non-positive amount %s: %w", inst.ID, inst.Amount.String(), shared.ErrInvalidData)
	}

	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %d: %w", accountID, err)
	}
	if !acc.CanWithdraw(inst.Amount) {
		return nil, fmt.Errorf("account %d balance %s does not cover %s: %w",
			acc.ID, acc.Balance.StringFixed(2), inst.Amount.StringFixed(2), shared.ErrInsufficientFunds)
	}

	now := s.now()
	debit := account.Transaction{
		Amount:    inst.Amount,
		Type:      account.TransactionTypeDebit,
		Date:      now,
		Reference: fmt.Sprintf("installment payment id:%d", inst.ID),
	}
	if err := s.accounts.SubmitTransaction(ctx, accountID, debit); err != nil {
		logger.Error("Failed to submit installment debit to ledger", "error", err)
		return nil, fmt.Errorf("failed to submit installment debit: %w", err)
	}

	var finished *loan.Loan
	err = s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		installments := s.installmentRepo.WithTx(tx)
		if err := installments.MarkPaid(ctx, inst.ID, now); err != nil {
			var notPending installment.ErrInstallmentNotPending
			if errors.As(err, &notPending) {
				return fmt.Errorf("installment %d was paid concurrently: %w", inst.ID, shared.ErrIllegalStateTransition)
			}
			return err
		}

		siblings, err := installments.ListByLoanID(ctx, inst.LoanID)
		if err != nil {
			return err
		}
		if !installment.AllPaid(siblings) {
			return nil
		}

		loans := s.loanRepo.WithTx(tx)
		l, err := loans.GetByID(ctx, inst.LoanID)
		if err != nil {
			return err
		}
		if err := l.Finish(now); err != nil {
			return err
		}
		if err := loans.Update(ctx, l); err != nil {
			return err
		}
		finished = l
		return nil
	})
	if err != nil {
		logger.Error("Debit applied but installment payment was not persisted", "error", err)
		return nil, err
	}

	if err := inst.MarkPaid(now); err != nil {
		return nil, err
	}
	logger.Info("Installment paid", "loan_id", inst.LoanID, "amount", inst.Amount.String())

	if finished != nil {
		logger.Info("Loan finished", "loan_id", finished.ID)
		s.publisher.Publish(ctx, notification.NewLoanEvent(
			notification.EventLoanFinished, finished, s.lookupClient(ctx, finished.ClientID), shared.CorrelationIDFromContext(ctx)))
	}

	return inst, nil
}

func (s *InstallmentServiceImpl) GetInstallment(ctx context.Context, id int64) (*installment.Installment, error) {
	return s.installmentRepo.GetByID(ctx, id)
}

func (s *InstallmentServiceImpl) ListInstallments(ctx context.Context) ([]*installment.Installment, error) {
	return s.installmentRepo.List(ctx)
}

// ListInstallmentsByLoan returns the schedule of an existing loan
func (s *InstallmentServiceImpl) ListInstallmentsByLoan(ctx context.Context, loanID int64) ([]*installment.Installment, error) {
	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.installmentRepo.ListByLoanID(ctx, loanID)
}

func (s *InstallmentServiceImpl) lookupClient(ctx context.Context, id int64) *client.Client {
	c, err := s.clients.GetClientByID(ctx, id)
	if err != nil {
		s.logger.Warn("Client lookup for notification failed", "client_id", id, "error", err)
		return nil
	}
	return c
}
