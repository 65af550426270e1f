package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/microlending/loan-engine/internal/notification_archiver/service"
	"github.com/microlending/loan-engine/internal/platform/messaging/producers"
)

// LoanEventHandler turns loan-events messages into archive calls
type LoanEventHandler struct {
	archiveService service.ArchiveService
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

func NewLoanEventHandler(
	logger *slog.Logger,
	archiveService service.ArchiveService,
	producer producers.DeadLetterPublisher,
) *LoanEventHandler {
	return &LoanEventHandler{
		archiveService: archiveService,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage archives one event. Unreadable payloads are parked on the DLQ
// and acknowledged. Archive failures and DLQ write failures are returned so the
// offset stays uncommitted.
func (h *LoanEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := decodeLoanEvent(value)
	if err != nil {
		return h.deadLetter(ctx, key, value, err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received loan event",
		"event_id", event.EventID.String(),
		"event_type", event.EventType,
		"loan_id", event.LoanID,
	)

	if err := h.archiveService.Archive(ctx, event); err != nil {
		logger.Error("Failed to archive loan event", "event_id", event.EventID.String(), "error", err)
		return fmt.Errorf("archiving loan event %s failed: %w", event.EventID.String(), err)
	}

	return nil
}

func (h *LoanEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	const unreadable = "Failed to decode loan event from Kafka message"
	h.logger.Error(unreadable, "error", cause, "message_key", string(key))

	// Redelivery cannot fix a payload, so without a DLQ the message is dropped.
	if h.producer == nil {
		h.logger.Warn("No DLQ configured, dropping unprocessable message", "message_key", string(key))
		return nil
	}

	reason := fmt.Sprintf("%s: %s", unreadable, cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		if errors.Is(err, producers.ErrDLQDisabled) {
			return nil
		}
		h.logger.Error("Failed to publish message to DLQ after decode error",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to decode message value: %w", cause)
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}

// decodeLoanEvent rejects payloads that parse as JSON but cannot identify an event
func decodeLoanEvent(value []byte) (*notification.LoanEvent, error) {
	var event notification.LoanEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}
	if event.EventID == uuid.Nil {
		return nil, errors.New("event_id is missing")
	}
	if event.EventType == "" {
		return nil, errors.New("event_type is missing")
	}
	if event.LoanID <= 0 {
		return nil, errors.New("loan_id must be positive")
	}
	return &event, nil
}
