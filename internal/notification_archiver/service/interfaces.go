package service

import (
	"context"

	"github.com/microlending/loan-engine/internal/domain/notification"
)

// ArchiveService stores loan events consumed from the loan-events topic.
// A returned error means the event was not stored and must be redelivered.
type ArchiveService interface {
	Archive(ctx context.Context, event *notification.LoanEvent) error
}
