package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/microlending/loan-engine/internal/domain/account"
	"github.com/microlending/loan-engine/internal/domain/client"
	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/microlending/loan-engine/internal/loan_api/middleware"
)

// respondServiceError maps a service error onto the response envelope
func respondServiceError(c *gin.Context, logger *slog.Logger, op string, err error) {
	log := logger.With("operation", op, "correlation_id", middleware.GetCorrelationID(c))

	switch {
	case errors.Is(err, loan.ErrLoanNotFound{}):
		RespondNotFound(c, "Loan not found")
	case errors.Is(err, installment.ErrInstallmentNotFound{}):
		RespondNotFound(c, "Installment not found")
	case errors.Is(err, client.ErrClientNotFound{}):
		RespondNotFound(c, "Client not found")
	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondNotFound(c, "Account not found")
	case errors.Is(err, shared.ErrPolicyViolation):
		log.Info("Request rejected by credit policy", "error", err)
		RespondRuleViolation(c, "POLICY_VIOLATION", err.Error())
	case errors.Is(err, shared.ErrInsufficientFunds):
		RespondRuleViolation(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, shared.ErrInvalidData):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, shared.ErrIllegalStateTransition):
		RespondConflict(c, err.Error())
	default:
		log.Error("Request failed", "error", err)
		RespondInternalError(c)
	}
}
