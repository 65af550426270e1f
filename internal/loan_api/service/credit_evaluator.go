package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/domain/account"
	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreditEvaluator applies the lending policy to requested loan terms
type CreditEvaluator interface {
	EvaluateAmount(termMonths int, amount, rate decimal.Decimal) error
	EvaluateTerm(termMonths int, amount, rate decimal.Decimal) error
	EvaluateRate(rate, amount decimal.Decimal, termMonths int) error
	EvaluateCreditCapacity(ctx context.Context, accountID int64, requested decimal.Decimal) error
}

// PolicyEvaluator implements CreditEvaluator against configured thresholds and
// the account's transaction history
type PolicyEvaluator struct {
	policy   config.LoanPolicyConfig
	accounts account.Gateway
	logger   *slog.Logger
}

func NewCreditEvaluator(logger *slog.Logger, policy config.LoanPolicyConfig, accounts account.Gateway) *PolicyEvaluator {
	return &PolicyEvaluator{
		policy:   policy,
		accounts: accounts,
		logger:   logger,
	}
}

func (e *PolicyEvaluator) EvaluateAmount(_ int, amount, _ decimal.Decimal) error {
	if amount.LessThan(e.policy.MinAmount) {
		return fmt.Errorf("amount %s is below the minimum of %s: %w",
			amount.String(), e.policy.MinAmount.String(), shared.ErrPolicyViolation)
	}
	return nil
}

func (e *PolicyEvaluator) EvaluateTerm(termMonths int, _, _ decimal.Decimal) error {
	if termMonths < e.policy.MinTermMonths {
		return fmt.Errorf("term of %d months is below the minimum of %d: %w",
			termMonths, e.policy.MinTermMonths, shared.ErrPolicyViolation)
	}
	if termMonths > e.policy.MaxTermMonths {
		return fmt.Errorf("term of %d months exceeds the maximum of %d: %w",
			termMonths, e.policy.MaxTermMonths, shared.ErrPolicyViolation)
	}
	return nil
}

func (e *PolicyEvaluator) EvaluateRate(rate, _ decimal.Decimal, _ int) error {
	if rate.GreaterThan(e.policy.MaxInterestRate) {
		return fmt.Errorf("interest rate %s exceeds the maximum of %s: %w",
			rate.String(), e.policy.MaxInterestRate.String(), shared.ErrPolicyViolation)
	}
	return nil
}

// EvaluateCreditCapacity requires the account's net cash flow to cover the
// requested amount. A request equal to the net flow passes.
func (e *PolicyEvaluator) EvaluateCreditCapacity(ctx context.Context, accountID int64, requested decimal.Decimal) error {
	txs, err := e.accounts.ListTransactions(ctx, accountID)
	if err != nil {
		e.logger.Error("Failed to list transactions for credit evaluation", "account_id", accountID, "error", err)
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	income, expense := account.CashFlow(txs)
	if expense.GreaterThan(income) {
		return fmt.Errorf("expenses %s exceed income %s: %w",
			expense.StringFixed(2), income.StringFixed(2), shared.ErrPolicyViolation)
	}

	net := income.Sub(expense)
	if requested.GreaterThan(net) {
		return fmt.Errorf("requested %s exceeds net cash flow %s: %w",
			requested.StringFixed(2), net.StringFixed(2), shared.ErrPolicyViolation)
	}

	e.logger.Debug("Credit capacity check passed",
		"account_id", accountID,
		"income", income.String(),
		"expense", expense.String(),
		"requested", requested.String(),
	)
	return nil
}

// evaluate runs every check in policy order and stops at the first failure
func evaluate(ctx context.Context, ev CreditEvaluator, req LoanRequest) error {
	if err := ev.EvaluateAmount(req.TermMonths, req.Amount, req.InterestRate); err != nil {
		return err
	}
	if err := ev.EvaluateTerm(req.TermMonths, req.Amount, req.InterestRate); err != nil {
		return err
	}
	if err := ev.EvaluateRate(req.InterestRate, req.Amount, req.TermMonths); err != nil {
		return err
	}
	return ev.EvaluateCreditCapacity(ctx, req.AccountID, req.Amount)
}
