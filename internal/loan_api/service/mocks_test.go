package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/microlending/loan-engine/internal/domain/account"
	"github.com/microlending/loan-engine/internal/domain/client"
	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loan.Loan), args.Error(1)
}

func (m *MockLoanRepository) List(ctx context.Context) ([]*loan.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*loan.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListByClientID(ctx context.Context, clientID int64) ([]*loan.Loan, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*loan.Loan), args.Error(1)
}

func (m *MockLoanRepository) CountByClientAndStatus(ctx context.Context, clientID int64, status loan.Status) (int, error) {
	args := m.Called(ctx, clientID, status)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLoanRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(loan.Repository)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, installments []*installment.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) GetByID(ctx context.Context, id int64) (*installment.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) List(ctx context.Context) ([]*installment.Installment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListByLoanID(ctx context.Context, loanID int64) ([]*installment.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	args := m.Called(ctx, id, paidAt)
	return args.Error(0)
}

func (m *MockInstallmentRepository) WithTx(tx pgx.Tx) installment.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(installment.Repository)
}

// MockTxManager runs fn with a nil transaction unless an error is configured
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(nil)
}

type MockClientGateway struct {
	mock.Mock
}

func (m *MockClientGateway) GetClientByID(ctx context.Context, id int64) (*client.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

type MockAccountGateway struct {
	mock.Mock
}

func (m *MockAccountGateway) GetAccountByID(ctx context.Context, id int64) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountGateway) ListTransactions(ctx context.Context, accountID int64) ([]account.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.Transaction), args.Error(1)
}

func (m *MockAccountGateway) SubmitTransaction(ctx context.Context, accountID int64, tx account.Transaction) error {
	args := m.Called(ctx, accountID, tx)
	return args.Error(0)
}

func (m *MockAccountGateway) UpdateAccount(ctx context.Context, id int64, patch account.Patch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

type MockCreditEvaluator struct {
	mock.Mock
}

func (m *MockCreditEvaluator) EvaluateAmount(termMonths int, amount, rate decimal.Decimal) error {
	args := m.Called(termMonths, amount, rate)
	return args.Error(0)
}

func (m *MockCreditEvaluator) EvaluateTerm(termMonths int, amount, rate decimal.Decimal) error {
	args := m.Called(termMonths, amount, rate)
	return args.Error(0)
}

func (m *MockCreditEvaluator) EvaluateRate(rate, amount decimal.Decimal, termMonths int) error {
	args := m.Called(rate, amount, termMonths)
	return args.Error(0)
}

func (m *MockCreditEvaluator) EvaluateCreditCapacity(ctx context.Context, accountID int64, requested decimal.Decimal) error {
	args := m.Called(ctx, accountID, requested)
	return args.Error(0)
}

// passAll makes every policy check succeed
func (m *MockCreditEvaluator) passAll() *MockCreditEvaluator {
	m.On("EvaluateAmount", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("EvaluateTerm", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("EvaluateRate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("EvaluateCreditCapacity", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return m
}

type MockNotificationPublisher struct {
	mock.Mock
}

func (m *MockNotificationPublisher) Publish(ctx context.Context, event *notification.LoanEvent) {
	m.Called(ctx, event)
}

// eventOfType matches a published event by type
func eventOfType(t notification.EventType) interface{} {
	return mock.MatchedBy(func(e *notification.LoanEvent) bool { return e.EventType == t })
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *notification.LoanEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) ListByLoanID(ctx context.Context, loanID int64, limit int) ([]*notification.LoanEvent, error) {
	args := m.Called(ctx, loanID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.LoanEvent), args.Error(1)
}
