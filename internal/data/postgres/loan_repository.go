// Package postgres provides PostgreSQL implementations of the loan and
// installment repositories. Every repository can be rebound to a transaction
// with WithTx so the services can group writes atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/platform/persistence"
)

const (
	loanColumns = `id, client_id, account_id, amount, term_months, interest_rate, status, disbursement_date, created_at, updated_at`

	insertLoanQuery = `
		INSERT INTO loans (client_id, account_id, amount, term_months, interest_rate, status, disbursement_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	getLoanByIDQuery = `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	listLoansQuery = `SELECT ` + loanColumns + ` FROM loans ORDER BY id`

	listLoansByClientQuery = `SELECT ` + loanColumns + ` FROM loans WHERE client_id = $1 ORDER BY id`

	countLoansByClientAndStatusQuery = `SELECT COUNT(*) FROM loans WHERE client_id = $1 AND status = $2`

	updateLoanQuery = `
		UPDATE loans
		SET client_id = $1, account_id = $2, amount = $3, term_months = $4, interest_rate = $5,
			status = $6, disbursement_date = $7, updated_at = $8
		WHERE id = $9
	`

	deleteLoanQuery = `DELETE FROM loans WHERE id = $1`
)

// LoanRepository implements the loan.Repository interface for PostgreSQL
type LoanRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLoanRepository creates a new PostgreSQL loan repository
func NewLoanRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.Repository {
	return &LoanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *LoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	return &LoanRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the loan and fills in its generated ID
func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	err := r.querier.QueryRow(ctx, insertLoanQuery,
		l.ClientID,
		l.AccountID,
		l.Amount,
		l.TermMonths,
		l.InterestRate,
		l.Status,
		l.DisbursementDate,
		l.CreatedAt,
		l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		r.logger.Error("Failed to create loan", "client_id", l.ClientID, "error", err)
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	l, err := scanLoan(r.querier.QueryRow(ctx, getLoanByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound{LoanID: id}
		}
		r.logger.Error("Failed to get loan", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	return l, nil
}

// List returns every loan ordered by ID
func (r *LoanRepository) List(ctx context.Context) ([]*loan.Loan, error) {
	return r.list(ctx, listLoansQuery)
}

// ListByClientID returns the loans held by one client
func (r *LoanRepository) ListByClientID(ctx context.Context, clientID int64) ([]*loan.Loan, error) {
	return r.list(ctx, listLoansByClientQuery, clientID)
}

func (r *LoanRepository) list(ctx context.Context, query string, args ...interface{}) ([]*loan.Loan, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list loans", "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.Error("Failed to scan loan row", "error", err)
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}

	return loans, nil
}

// CountByClientAndStatus counts a client's loans in the given status
func (r *LoanRepository) CountByClientAndStatus(ctx context.Context, clientID int64, status loan.Status) (int, error) {
	var count int
	if err := r.querier.QueryRow(ctx, countLoansByClientAndStatusQuery, clientID, status).Scan(&count); err != nil {
		r.logger.Error("Failed to count loans", "client_id", clientID, "status", status, "error", err)
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}

	return count, nil
}

// Update persists every mutable loan column
func (r *LoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	result, err := r.querier.Exec(ctx, updateLoanQuery,
		l.ClientID,
		l.AccountID,
		l.Amount,
		l.TermMonths,
		l.InterestRate,
		l.Status,
		l.DisbursementDate,
		l.UpdatedAt,
		l.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update loan", "id", l.ID, "error", err)
		return fmt.Errorf("failed to update loan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return loan.ErrLoanNotFound{LoanID: l.ID}
	}

	return nil
}

// Delete removes the loan. Installments go with it through ON DELETE CASCADE.
func (r *LoanRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.querier.Exec(ctx, deleteLoanQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete loan", "id", id, "error", err)
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return loan.ErrLoanNotFound{LoanID: id}
	}

	return nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID,
		&l.ClientID,
		&l.AccountID,
		&l.Amount,
		&l.TermMonths,
		&l.InterestRate,
		&l.Status,
		&l.DisbursementDate,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
