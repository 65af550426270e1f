package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/microlending/loan-engine/internal/loan_api/service"
)

// InstallmentHandler handles HTTP requests for installment operations
type InstallmentHandler struct {
	installmentService service.InstallmentService
	logger             *slog.Logger
}

// NewInstallmentHandler creates a new installment handler
func NewInstallmentHandler(logger *slog.Logger, installmentService service.InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{
		installmentService: installmentService,
		logger:             logger,
	}
}

// Pay settles an installment by debiting the given account
func (h *InstallmentHandler) Pay(c *gin.Context) {
	accountID, ok := parseIDParam(c, "cuentaId")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inst, err := h.installmentService.PayInstallment(c.Request.Context(), id, accountID)
	if err != nil {
		respondServiceError(c, h.logger, "pay_installment", err)
		return
	}
	RespondOK(c, mapInstallmentToResponse(inst))
}

func (h *InstallmentHandler) List(c *gin.Context) {
	installments, err := h.installmentService.ListInstallments(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, "list_installments", err)
		return
	}
	RespondOK(c, mapInstallmentsToResponse(installments))
}

func (h *InstallmentHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inst, err := h.installmentService.GetInstallment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, "get_installment", err)
		return
	}
	RespondOK(c, mapInstallmentToResponse(inst))
}

func (h *InstallmentHandler) ListByLoan(c *gin.Context) {
	loanID, ok := parseIDParam(c, "prestamoId")
	if !ok {
		return
	}

	installments, err := h.installmentService.ListInstallmentsByLoan(c.Request.Context(), loanID)
	if err != nil {
		respondServiceError(c, h.logger, "list_installments_by_loan", err)
		return
	}
	RespondOK(c, mapInstallmentsToResponse(installments))
}
