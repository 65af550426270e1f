package handler

import (
	"reflect"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microlending/loan-engine/internal/domain/installment"
	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/microlending/loan-engine/internal/loan_api/service"
	"github.com/shopspring/decimal"
)

// LoanRequest represents a request to create or update a loan
type LoanRequest struct {
	ClientID     int64           `json:"client_id" binding:"required,gt=0"`
	AccountID    int64           `json:"account_id" binding:"required,gt=0"`
	Amount       decimal.Decimal `json:"amount" binding:"required,gt=0"`
	TermMonths   int             `json:"term_months" binding:"required,gt=0"`
	InterestRate decimal.Decimal `json:"interest_rate" binding:"gte=0"`
}

func (r LoanRequest) toService() service.LoanRequest {
	return service.LoanRequest{
		ClientID:     r.ClientID,
		AccountID:    r.AccountID,
		Amount:       r.Amount,
		TermMonths:   r.TermMonths,
		InterestRate: r.InterestRate,
	}
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID               int64  `json:"id"`
	ClientID         int64  `json:"client_id"`
	AccountID        int64  `json:"account_id"`
	Amount           string `json:"amount"`
	TermMonths       int    `json:"term_months"`
	InterestRate     string `json:"interest_rate"`
	TotalPayable     string `json:"total_payable"`
	Status           string `json:"status"`
	DisbursementDate string `json:"disbursement_date,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID        int64  `json:"id"`
	LoanID    int64  `json:"loan_id"`
	Sequence  int    `json:"sequence"`
	DueDate   string `json:"due_date"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	PaidAt    string `json:"paid_at,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NotificationResponse represents an archived loan event
type NotificationResponse struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	LoanID     int64  `json:"loan_id"`
	ClientID   int64  `json:"client_id"`
	Email      string `json:"email,omitempty"`
	Subject    string `json:"subject"`
	Message    string `json:"message"`
	SentAt     string `json:"sent_at"`
	ArchivedAt string `json:"archived_at,omitempty"`
}

// NotificationListParams bounds the archived events returned for a loan
type NotificationListParams struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=100"`
}

var registerOnce sync.Once

// RegisterValidators lets gin's validator compare decimal fields with numeric
// tags such as gt=0
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
}

func mapLoanToResponse(l *loan.Loan) LoanResponse {
	resp := LoanResponse{
		ID:           l.ID,
		ClientID:     l.ClientID,
		AccountID:    l.AccountID,
		Amount:       l.Amount.StringFixed(2),
		TermMonths:   l.TermMonths,
		InterestRate: l.InterestRate.String(),
		TotalPayable: l.TotalPayable().StringFixed(2),
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    l.UpdatedAt.Format(time.RFC3339),
	}
	if l.DisbursementDate != nil {
		resp.DisbursementDate = l.DisbursementDate.Format(time.RFC3339)
	}
	return resp
}

func mapLoansToResponse(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, 0, len(loans))
	for _, l := range loans {
		resp = append(resp, mapLoanToResponse(l))
	}
	return resp
}

func mapInstallmentToResponse(i *installment.Installment) InstallmentResponse {
	resp := InstallmentResponse{
		ID:        i.ID,
		LoanID:    i.LoanID,
		Sequence:  i.Sequence,
		DueDate:   i.DueDate.Format(time.DateOnly),
		Amount:    i.Amount.StringFixed(2),
		Status:    string(i.Status),
		CreatedAt: i.CreatedAt.Format(time.RFC3339),
		UpdatedAt: i.UpdatedAt.Format(time.RFC3339),
	}
	if i.PaidAt != nil {
		resp.PaidAt = i.PaidAt.Format(time.RFC3339)
	}
	return resp
}

func mapInstallmentsToResponse(installments []*installment.Installment) []InstallmentResponse {
	resp := make([]InstallmentResponse, 0, len(installments))
	for _, i := range installments {
		resp = append(resp, mapInstallmentToResponse(i))
	}
	return resp
}

func mapEventsToResponse(events []*notification.LoanEvent) []NotificationResponse {
	resp := make([]NotificationResponse, 0, len(events))
	for _, e := range events {
		n := NotificationResponse{
			EventID:   e.EventID.String(),
			EventType: string(e.EventType),
			LoanID:    e.LoanID,
			ClientID:  e.Client.ID,
			Email:     e.Client.Email,
			Subject:   e.Subject,
			Message:   e.Message,
			SentAt:    e.SentAt.Format(time.RFC3339),
		}
		if e.ArchivedAt != nil {
			n.ArchivedAt = e.ArchivedAt.Format(time.RFC3339)
		}
		resp = append(resp, n)
	}
	return resp
}
