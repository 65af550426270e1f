package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/platform/persistence"
)

const (
	installmentColumns = `id, loan_id, sequence, due_date, amount, status, paid_at, created_at, updated_at`

	insertInstallmentQuery = `
		INSERT INTO installments (loan_id, sequence, due_date, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	getInstallmentByIDQuery = `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1`

	listInstallmentsQuery = `SELECT ` + installmentColumns + ` FROM installments ORDER BY loan_id, sequence`

	listInstallmentsByLoanQuery = `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 ORDER BY sequence`

	markInstallmentPaidQuery = `
		UPDATE installments
		SET status = $1, paid_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`
)

// InstallmentRepository implements the installment.Repository interface for PostgreSQL
type InstallmentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewInstallmentRepository creates a new PostgreSQL installment repository
func NewInstallmentRepository(logger *slog.Logger, db *persistence.PostgresDB) installment.Repository {
	return &InstallmentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *InstallmentRepository) WithTx(tx pgx.Tx) installment.Repository {
	return &InstallmentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateBatch inserts the schedule row by row. It is meant to run inside a
// transaction so a partial schedule is never visible.
func (r *InstallmentRepository) CreateBatch(ctx context.Context, installments []*installment.Installment) error {
	for _, inst := range installments {
		err := r.querier.QueryRow(ctx, insertInstallmentQuery,
			inst.LoanID,
			inst.Sequence,
			inst.DueDate,
			inst.Amount,
			inst.Status,
			inst.CreatedAt,
			inst.UpdatedAt,
		).Scan(&inst.ID)
		if err != nil {
			r.logger.Error("Failed to create installment", "loan_id", inst.LoanID, "sequence", inst.Sequence, "error", err)
			return fmt.Errorf("failed to create installment %d of loan %d: %w", inst.Sequence, inst.LoanID, err)
		}
	}

	return nil
}

// GetByID retrieves an installment by its ID
func (r *InstallmentRepository) GetByID(ctx context.Context, id int64) (*installment.Installment, error) {
	inst, err := scanInstallment(r.querier.QueryRow(ctx, getInstallmentByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, installment.ErrInstallmentNotFound{InstallmentID: id}
		}
		r.logger.Error("Failed to get installment", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}

	return inst, nil
}

// List returns every installment grouped by loan
func (r *InstallmentRepository) List(ctx context.Context) ([]*installment.Installment, error) {
	return r.list(ctx, listInstallmentsQuery)
}

// ListByLoanID returns a loan's schedule ordered by sequence
func (r *InstallmentRepository) ListByLoanID(ctx context.Context, loanID int64) ([]*installment.Installment, error) {
	return r.list(ctx, listInstallmentsByLoanQuery, loanID)
}

func (r *InstallmentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*installment.Installment, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list installments", "error", err)
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	installments := make([]*installment.Installment, 0)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			r.logger.Error("Failed to scan installment row", "error", err)
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installments: %w", err)
	}

	return installments, nil
}

// MarkPaid performs the guarded PENDING to PAID update
func (r *InstallmentRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	result, err := r.querier.Exec(ctx, markInstallmentPaidQuery,
		installment.StatusPaid,
		paidAt,
		id,
		installment.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to mark installment paid", "id", id, "error", err)
		return fmt.Errorf("failed to mark installment paid: %w", err)
	}

	if result.RowsAffected() == 0 {
		return installment.ErrInstallmentNotPending{InstallmentID: id}
	}

	return nil
}

func scanInstallment(row pgx.Row) (*installment.Installment, error) {
	var inst installment.Installment
	err := row.Scan(
		&inst.ID,
		&inst.LoanID,
		&inst.Sequence,
		&inst.DueDate,
		&inst.Amount,
		&inst.Status,
		&inst.PaidAt,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
