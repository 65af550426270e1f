package service

import (
	"context"

	"github.com/microlending/loan-engine/internal/domain/loan"
	"github.com/microlending/loan-engine/internal/domain/notification"
)

const defaultNotificationLimit = 50

// NotificationServiceImpl implements the NotificationService interface
type NotificationServiceImpl struct {
	loanRepo  loan.Repository
	eventRepo notification.Repository
}

func NewNotificationService(loanRepo loan.Repository, eventRepo notification.Repository) *NotificationServiceImpl {
	return &NotificationServiceImpl{loanRepo: loanRepo, eventRepo: eventRepo}
}

// ListByLoan returns the archived events of an existing loan, newest first
func (s *NotificationServiceImpl) ListByLoan(ctx context.Context, loanID int64, limit int) ([]*notification.LoanEvent, error) {
	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return s.eventRepo.ListByLoanID(ctx, loanID, limit)
}
