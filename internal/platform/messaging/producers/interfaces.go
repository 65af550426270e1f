package producers

import (
	"context"

	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/segmentio/kafka-go"
)

// LoanEventPublisher publishes loan lifecycle events to the primary topic
type LoanEventPublisher interface {
	PublishEvent(ctx context.Context, event *notification.LoanEvent) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
