package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microlending/loan-engine/internal/domain/client"
	"github.com/microlending/loan-engine/internal/domain/loan"
)

// EventType names a loan lifecycle change
type EventType string

const (
	EventLoanCreated  EventType = "LOAN_CREATED"
	EventLoanApproved EventType = "LOAN_APPROVED"
	EventLoanRejected EventType = "LOAN_REJECTED"
	EventLoanFinished EventType = "LOAN_FINISHED"
)

// ClientSummary is the client snapshot carried inside an event
type ClientSummary struct {
	ID     int64  `json:"id" bson:"id"`
	Name   string `json:"name" bson:"name"`
	TaxID  string `json:"tax_id" bson:"tax_id"`
	Email  string `json:"email" bson:"email"`
	Status string `json:"status" bson:"status"`
}

// LoanEvent is the message published to the loan-events topic and archived by
// the notification archiver
type LoanEvent struct {
	EventID       uuid.UUID     `json:"event_id" bson:"event_id"`
	EventType     EventType     `json:"event_type" bson:"event_type"`
	Client        ClientSummary `json:"client" bson:"client"`
	LoanID        int64         `json:"loan_id" bson:"loan_id"`
	Subject       string        `json:"subject" bson:"subject"`
	Message       string        `json:"message" bson:"message"`
	SentAt        time.Time     `json:"sent_at" bson:"sent_at"`
	CorrelationID string        `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	ArchivedAt    *time.Time    `json:"archived_at,omitempty" bson:"archived_at,omitempty"`
}

// NewLoanEvent builds the event for a loan transition. c may be nil when the
// client could not be resolved; the summary then carries only the ID.
func NewLoanEvent(eventType EventType, l *loan.Loan, c *client.Client, correlationID string) *LoanEvent {
	summary := ClientSummary{ID: l.ClientID}
	if c != nil {
		summary = ClientSummary{ID: c.ID, Name: c.Name, TaxID: c.TaxID, Email: c.Email, Status: c.Status}
	}

	subject, message := describe(eventType, l)
	return &LoanEvent{
		EventID:       uuid.New(),
		EventType:     eventType,
		Client:        summary,
		LoanID:        l.ID,
		Subject:       subject,
		Message:       message,
		SentAt:        time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

func describe(eventType EventType, l *loan.Loan) (string, string) {
	switch eventType {
	case EventLoanCreated:
		return "Loan request received",
			fmt.Sprintf("Loan %d for %s over %d months was registered and is pending approval.", l.ID, l.Amount.StringFixed(2), l.TermMonths)
	case EventLoanApproved:
		return "Loan approved",
			fmt.Sprintf("Loan %d for %s was approved and disbursed to account %d. Total payable: %s in %d installments.",
				l.ID, l.Amount.StringFixed(2), l.AccountID, l.TotalPayable().StringFixed(2), l.TermMonths)
	case EventLoanRejected:
		return "Loan rejected", fmt.Sprintf("Loan %d for %s was rejected.", l.ID, l.Amount.StringFixed(2))
	case EventLoanFinished:
		return "Loan paid off", fmt.Sprintf("All installments of loan %d are paid. The loan is closed.", l.ID)
	default:
		return string(eventType), fmt.Sprintf("Loan %d changed to %s.", l.ID, l.Status)
	}
}
