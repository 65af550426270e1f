package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/microlending/loan-engine/internal/platform/persistence"
)

const defaultListLimit = 100

// NotificationRepository implements the notification.Repository interface for MongoDB
type NotificationRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewNotificationRepository creates a new MongoDB loan event repository
func NewNotificationRepository(logger *slog.Logger, db *mongo.Database) notification.Repository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create archives a loan event. The unique index on event_id turns a redelivered
// message into ErrDuplicateEvent instead of a second document.
func (r *NotificationRepository) Create(ctx context.Context, event *notification.LoanEvent) error {
	collection := r.db.Collection(persistence.LoanEventsCollection)

	archivedAt := time.Now().UTC()
	event.ArchivedAt = &archivedAt

	if _, err := collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return notification.ErrDuplicateEvent{EventID: event.EventID}
		}
		r.logger.Error("Failed to archive loan event",
			"event_id", event.EventID.String(),
			"loan_id", event.LoanID,
			"error", err)
		return fmt.Errorf("failed to archive loan event: %w", err)
	}

	return nil
}

// ListByLoanID returns a loan's archived events, newest first
func (r *NotificationRepository) ListByLoanID(ctx context.Context, loanID int64, limit int) ([]*notification.LoanEvent, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	collection := r.db.Collection(persistence.LoanEventsCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"loan_id": loanID}, opts)
	if err != nil {
		r.logger.Error("Failed to query loan events", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("failed to query loan events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*notification.LoanEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode loan events", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("failed to decode loan events: %w", err)
	}

	return events, nil
}
