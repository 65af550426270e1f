package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/microlending/loan-engine/internal/domain/notification"
)

// EventArchiver writes loan events to the notification repository
type EventArchiver struct {
	repo   notification.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewArchiveService(logger *slog.Logger, repo notification.Repository) *EventArchiver {
	return &EventArchiver{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Archive stamps the event and stores it. An event that was already archived
// is acknowledged so redeliveries do not loop.
func (s *EventArchiver) Archive(ctx context.Context, event *notification.LoanEvent) error {
	if event == nil {
		return errors.New("loan event is nil")
	}

	logger := s.logger.With("event_id", event.EventID.String(), "loan_id", event.LoanID)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	archivedAt := s.now()
	event.ArchivedAt = &archivedAt

	if err := s.repo.Create(ctx, event); err != nil {
		if errors.Is(err, notification.ErrDuplicateEvent{}) {
			logger.Info("Loan event already archived, skipping")
			return nil
		}
		logger.Error("Failed to archive loan event", "error", err)
		return fmt.Errorf("failed to archive loan event %s: %w", event.EventID, err)
	}

	logger.Info("Archived loan event", "event_type", event.EventType)
	return nil
}
