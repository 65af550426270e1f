package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/microlending/loan-engine/internal/loan_api/service"
)

// LoanHandler handles HTTP requests for loan operations
type LoanHandler struct {
	loanService         service.LoanService
	notificationService service.NotificationService
	logger              *slog.Logger
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(logger *slog.Logger, loanService service.LoanService, notificationService service.NotificationService) *LoanHandler {
	return &LoanHandler{
		loanService:         loanService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// Create registers a PENDING loan after credit evaluation
func (h *LoanHandler) Create(c *gin.Context) {
	var req LoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	l, err := h.loanService.CreateLoan(c.Request.Context(), req.toService())
	if err != nil {
		respondServiceError(c, h.logger, "create_loan", err)
		return
	}

	RespondCreated(c, mapLoanToResponse(l))
}

func (h *LoanHandler) List(c *gin.Context) {
	loans, err := h.loanService.ListLoans(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, "list_loans", err)
		return
	}
	RespondOK(c, mapLoansToResponse(loans))
}

func (h *LoanHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	l, err := h.loanService.GetLoan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, "get_loan", err)
		return
	}
	RespondOK(c, mapLoanToResponse(l))
}

func (h *LoanHandler) ListByClient(c *gin.Context) {
	clientID, ok := parseIDParam(c, "clienteId")
	if !ok {
		return
	}

	loans, err := h.loanService.ListLoansByClient(c.Request.Context(), clientID)
	if err != nil {
		respondServiceError(c, h.logger, "list_loans_by_client", err)
		return
	}
	RespondOK(c, mapLoansToResponse(loans))
}

// Update changes the terms of a PENDING loan
func (h *LoanHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req LoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	l, err := h.loanService.UpdateLoan(c.Request.Context(), id, req.toService())
	if err != nil {
		respondServiceError(c, h.logger, "update_loan", err)
		return
	}
	RespondOK(c, mapLoanToResponse(l))
}

func (h *LoanHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.loanService.DeleteLoan(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.logger, "delete_loan", err)
		return
	}
	RespondNoContent(c)
}

// Approve disburses and approves a PENDING loan
func (h *LoanHandler) Approve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	l, err := h.loanService.AcceptLoan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, "accept_loan", err)
		return
	}
	RespondOK(c, mapLoanToResponse(l))
}

func (h *LoanHandler) Reject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	l, err := h.loanService.RejectLoan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, "reject_loan", err)
		return
	}
	RespondOK(c, mapLoanToResponse(l))
}

// ListNotifications returns the archived events of a loan, newest first
func (h *LoanHandler) ListNotifications(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var params NotificationListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	events, err := h.notificationService.ListByLoan(c.Request.Context(), id, params.Limit)
	if err != nil {
		respondServiceError(c, h.logger, "list_loan_notifications", err)
		return
	}
	RespondOK(c, mapEventsToResponse(events))
}
