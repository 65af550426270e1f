package service

import (
	"testing"
	"time"

	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule(t *testing.T) {
	disbursed := time.Date(2024, 1, 31, 10, 30, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		amount      string
		rate        string
		term        int
		wantRegular string
		wantLast    string
		wantTotal   string
	}{
		{name: "EvenSplit", amount: "1000", rate: "0.10", term: 6, wantRegular: "175", wantLast: "175", wantTotal: "1050"},
		{name: "LastTakesRemainder", amount: "1000", rate: "0.12", term: 12, wantRegular: "93.33", wantLast: "93.37", wantTotal: "1120"},
		{name: "ZeroRate", amount: "1000", rate: "0", term: 7, wantRegular: "142.85", wantLast: "142.9", wantTotal: "1000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := &loan.Loan{
				ID:           7,
				Amount:       decimal.RequireFromString(tc.amount),
				TermMonths:   tc.term,
				InterestRate: decimal.RequireFromString(tc.rate),
			}

			schedule, err := BuildSchedule(l, disbursed)
			require.NoError(t, err)
			require.Len(t, schedule, tc.term)

			sum := decimal.Zero
			for i, inst := range schedule {
				assert.Equal(t, int64(7), inst.LoanID)
				assert.Equal(t, i+1, inst.Sequence)
				assert.Equal(t, installment.StatusPending, inst.Status)
				assert.Nil(t, inst.PaidAt)
				sum = sum.Add(inst.Amount)
			}

			assert.True(t, decimal.RequireFromString(tc.wantRegular).Equal(schedule[0].Amount), "regular: %s", schedule[0].Amount)
			assert.True(t, decimal.RequireFromString(tc.wantLast).Equal(schedule[tc.term-1].Amount), "last: %s", schedule[tc.term-1].Amount)
			assert.True(t, decimal.RequireFromString(tc.wantTotal).Equal(sum), "sum: %s", sum)
			assert.True(t, l.TotalPayable().Equal(sum))
		})
	}
}

func TestBuildSchedule_DueDatesClampToMonthEnd(t *testing.T) {
	disbursed := time.Date(2024, 1, 31, 10, 30, 0, 0, time.UTC)
	l := &loan.Loan{ID: 1, Amount: decimal.NewFromInt(1200), TermMonths: 4, InterestRate: decimal.Zero}

	schedule, err := BuildSchedule(l, disbursed)
	require.NoError(t, err)

	want := []time.Time{
		time.Date(2024, 2, 29, 10, 30, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 10, 30, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 10, 30, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 10, 30, 0, 0, time.UTC),
	}
	for i, inst := range schedule {
		assert.True(t, want[i].Equal(inst.DueDate), "sequence %d: got %s", inst.Sequence, inst.DueDate)
	}
}

func TestBuildSchedule_Invalid(t *testing.T) {
	now := time.Now()

	_, err := BuildSchedule(&loan.Loan{ID: 1, Amount: decimal.NewFromInt(100), TermMonths: 0}, now)
	assert.ErrorIs(t, err, shared.ErrInvalidData)

	_, err = BuildSchedule(&loan.Loan{ID: 2, Amount: decimal.RequireFromString("0.05"), TermMonths: 12, InterestRate: decimal.Zero}, now)
	assert.ErrorIs(t, err, shared.ErrInvalidData)
}

func TestAddMonthsClamped(t *testing.T) {
	base := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), addMonthsClamped(base, 2))
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), addMonthsClamped(base, 14))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), addMonthsClamped(time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC), 1))
}
