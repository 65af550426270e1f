package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microlending/loan-engine/internal/domain/client"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/microlending/loan-engine/internal/domain/shared"
	"github.com/microlending/loan-engine/internal/loan_api/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleLoan(status loan.Status) *loan.Loan {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	l := &loan.Loan{
		ID:           7,
		ClientID:     1,
		AccountID:    2,
		Amount:       decimal.NewFromInt(2000),
		TermMonths:   6,
		InterestRate: decimal.RequireFromString("0.2"),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == loan.StatusApproved {
		l.DisbursementDate = &now
	}
	return l
}

func newLoanRouter() (*gin.Engine, *MockLoanService, *MockNotificationService) {
	loans := new(MockLoanService)
	notifications := new(MockNotificationService)
	h := NewLoanHandler(newTestLogger(), loans, notifications)

	r := setupTestRouter()
	r.POST("/prestamos", h.Create)
	r.GET("/prestamos", h.List)
	r.GET("/prestamos/:id", h.GetByID)
	r.GET("/prestamos/cliente/:clienteId", h.ListByClient)
	r.GET("/prestamos/:id/notificaciones", h.ListNotifications)
	r.PUT("/prestamos/:id", h.Update)
	r.DELETE("/prestamos/:id", h.Delete)
	r.POST("/prestamos/aprobar/:id", h.Approve)
	r.POST("/prestamos/rechazar/:id", h.Reject)
	return r, loans, notifications
}

func TestLoanHandler_Create(t *testing.T) {
	body := `{"client_id":1,"account_id":2,"amount":"2000","term_months":6,"interest_rate":0.2}`

	t.Run("Success", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req service.LoanRequest) bool {
			return req.ClientID == 1 && req.AccountID == 2 && req.TermMonths == 6 &&
				req.Amount.Equal(decimal.NewFromInt(2000)) && req.InterestRate.Equal(decimal.RequireFromString("0.2"))
		})).Return(sampleLoan(loan.StatusPending), nil).Once()

		rr, env := doRequest(t, r, http.MethodPost, "/prestamos", body)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.NotEmpty(t, env.CorrelationID)
		var resp LoanResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, int64(7), resp.ID)
		assert.Equal(t, "PENDING", resp.Status)
		assert.Equal(t, "2000.00", resp.Amount)
		assert.Equal(t, "2200.00", resp.TotalPayable)
		assert.Empty(t, resp.DisbursementDate)
		loans.AssertExpectations(t)
	})

	t.Run("InvalidBody", func(t *testing.T) {
		invalid := []string{
			`{"client_id":1,"account_id":2,"amount":"-5","term_months":6,"interest_rate":"0.2"}`,
			`{"client_id":1,"account_id":2,"amount":"2000","term_months":0,"interest_rate":"0.2"}`,
			`{"account_id":2,"amount":"2000","term_months":6,"interest_rate":"0.2"}`,
			`{"client_id":1,"account_id":2,"amount":"2000","term_months":6,"interest_rate":"-0.1"}`,
			`{"client_id":1,"account_id":2,"amount":"abc","term_months":6}`,
		}
		for i, b := range invalid {
			t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
				r, loans, _ := newLoanRouter()
				rr, env := doRequest(t, r, http.MethodPost, "/prestamos", b)

				assert.Equal(t, http.StatusBadRequest, rr.Code)
				require.NotNil(t, env.Error)
				assert.Equal(t, "BAD_REQUEST", env.Error.Code)
				loans.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
			})
		}
	})

	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"PolicyViolation", fmt.Errorf("amount below minimum: %w", shared.ErrPolicyViolation), http.StatusBadRequest, "POLICY_VIOLATION"},
		{"ClientNotFound", fmt.Errorf("failed to fetch client 1: %w", client.ErrClientNotFound{ClientID: 1}), http.StatusNotFound, "NOT_FOUND"},
		{"InvalidData", fmt.Errorf("term must be positive: %w", shared.ErrInvalidData), http.StatusBadRequest, "BAD_REQUEST"},
		{"IntegrationFailure", fmt.Errorf("client service returned 503: %w", shared.ErrIntegrationFailure), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, loans, _ := newLoanRouter()
			loans.On("CreateLoan", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			rr, env := doRequest(t, r, http.MethodPost, "/prestamos", body)

			assert.Equal(t, tc.wantStatus, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.wantCode, env.Error.Code)
		})
	}
}

func TestLoanHandler_Queries(t *testing.T) {
	t.Run("GetByID", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("GetLoan", mock.Anything, int64(7)).Return(sampleLoan(loan.StatusApproved), nil).Once()

		rr, env := doRequest(t, r, http.MethodGet, "/prestamos/7", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp LoanResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "APPROVED", resp.Status)
		assert.Equal(t, "2024-05-10T12:00:00Z", resp.DisbursementDate)
	})

	t.Run("GetByIDNotFound", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("GetLoan", mock.Anything, int64(99)).Return(nil, loan.ErrLoanNotFound{LoanID: 99}).Once()

		rr, env := doRequest(t, r, http.MethodGet, "/prestamos/99", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		r, loans, _ := newLoanRouter()

		rr, _ := doRequest(t, r, http.MethodGet, "/prestamos/abc", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		loans.AssertNotCalled(t, "GetLoan", mock.Anything, mock.Anything)
	})

	t.Run("List", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("ListLoans", mock.Anything).Return([]*loan.Loan{sampleLoan(loan.StatusPending), sampleLoan(loan.StatusRejected)}, nil).Once()

		rr, env := doRequest(t, r, http.MethodGet, "/prestamos", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp []LoanResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Len(t, resp, 2)
	})

	t.Run("ListByClient", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("ListLoansByClient", mock.Anything, int64(1)).Return([]*loan.Loan{}, nil).Once()

		rr, env := doRequest(t, r, http.MethodGet, "/prestamos/cliente/1", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, string(env.Data))
		loans.AssertExpectations(t)
	})

	t.Run("Notifications", func(t *testing.T) {
		r, _, notifications := newLoanRouter()
		event := notification.NewLoanEvent(notification.EventLoanApproved, sampleLoan(loan.StatusApproved), nil, "corr")
		notifications.On("ListByLoan", mock.Anything, int64(7), 50).Return([]*notification.LoanEvent{event}, nil).Once()

		rr, env := doRequest(t, r, http.MethodGet, "/prestamos/7/notificaciones", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp []NotificationResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "LOAN_APPROVED", resp[0].EventType)
		assert.Equal(t, event.EventID.String(), resp[0].EventID)
		notifications.AssertExpectations(t)
	})

	t.Run("NotificationsLimitOutOfRange", func(t *testing.T) {
		r, _, notifications := newLoanRouter()

		rr, _ := doRequest(t, r, http.MethodGet, "/prestamos/7/notificaciones?limit=500", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		notifications.AssertNotCalled(t, "ListByLoan", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoanHandler_Transitions(t *testing.T) {
	t.Run("Approve", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("AcceptLoan", mock.Anything, int64(7)).Return(sampleLoan(loan.StatusApproved), nil).Once()

		rr, env := doRequest(t, r, http.MethodPost, "/prestamos/aprobar/7", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp LoanResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "APPROVED", resp.Status)
	})

	t.Run("ApproveNotPending", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("AcceptLoan", mock.Anything, int64(7)).
			Return(nil, fmt.Errorf("loan 7 is APPROVED: %w", shared.ErrIllegalStateTransition)).Once()

		rr, env := doRequest(t, r, http.MethodPost, "/prestamos/aprobar/7", "")

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "CONFLICT", env.Error.Code)
	})

	t.Run("ApproveLedgerDown", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("AcceptLoan", mock.Anything, int64(7)).
			Return(nil, fmt.Errorf("failed to submit disbursement: %w", shared.ErrIntegrationFailure)).Once()

		rr, env := doRequest(t, r, http.MethodPost, "/prestamos/aprobar/7", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "An internal server error occurred", env.Error.Message)
	})

	t.Run("Reject", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("RejectLoan", mock.Anything, int64(7)).Return(sampleLoan(loan.StatusRejected), nil).Once()

		rr, _ := doRequest(t, r, http.MethodPost, "/prestamos/rechazar/7", "")

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Update", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("UpdateLoan", mock.Anything, int64(7), mock.AnythingOfType("service.LoanRequest")).
			Return(sampleLoan(loan.StatusPending), nil).Once()

		rr, _ := doRequest(t, r, http.MethodPut, "/prestamos/7",
			`{"client_id":1,"account_id":2,"amount":"2000","term_months":6,"interest_rate":"0.2"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		loans.AssertExpectations(t)
	})

	t.Run("Delete", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("DeleteLoan", mock.Anything, int64(7)).Return(nil).Once()

		rr, _ := doRequest(t, r, http.MethodDelete, "/prestamos/7", "")

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("DeleteLoan", mock.Anything, int64(8)).Return(loan.ErrLoanNotFound{LoanID: 8}).Once()

		rr, _ := doRequest(t, r, http.MethodDelete, "/prestamos/8", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("UnknownError", func(t *testing.T) {
		r, loans, _ := newLoanRouter()
		loans.On("RejectLoan", mock.Anything, int64(7)).Return(nil, errors.New("boom")).Once()

		rr, _ := doRequest(t, r, http.MethodPost, "/prestamos/rechazar/7", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
