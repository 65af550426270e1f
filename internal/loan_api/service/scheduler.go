package service

import (
	"fmt"
	"time"

	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BuildSchedule splits the loan's total payable into TermMonths monthly
// installments. Regular installments are rounded down to cents and the last
// one takes the remainder, so the amounts always sum to the total.
func BuildSchedule(l *loan.Loan, disbursed time.Time) ([]*installment.Installment, error) {
	if l.TermMonths <= 0 {
		return nil, fmt.Errorf("loan %d has no term: %w", l.ID, shared.ErrInvalidData)
	}

	total := l.TotalPayable()
	term := decimal.NewFromInt(int64(l.TermMonths))
	regular := total.Div(term).RoundDown(2)
	if !regular.IsPositive() {
		return nil, fmt.Errorf("loan %d total %s is too small for %d installments: %w",
			l.ID, total.StringFixed(2), l.TermMonths, shared.ErrInvalidData)
	}
	last := total.Sub(regular.Mul(decimal.NewFromInt(int64(l.TermMonths - 1))))

	schedule := make([]*installment.Installment, 0, l.TermMonths)
	for seq := 1; seq <= l.TermMonths; seq++ {
		amount := regular
		if seq == l.TermMonths {
			amount = last
		}
		schedule = append(schedule, &installment.Installment{
			LoanID:    l.ID,
			Sequence:  seq,
			DueDate:   addMonthsClamped(disbursed, seq),
			Amount:    amount,
			Status:    installment.StatusPending,
			CreatedAt: disbursed,
			UpdatedAt: disbursed,
		})
	}
	return schedule, nil
}

// addMonthsClamped moves t forward by n calendar months, pinning the day to
// the end of the target month when it would overflow (Jan 31 + 1 = Feb 28/29).
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	lastDay := time.Date(y, m+time.Month(n)+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+time.Month(n), d, hh, mm, ss, t.Nanosecond(), t.Location())
}
