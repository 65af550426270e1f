package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/segmentio/kafka-go"
)

// LoanEventProducer writes loan events keyed by loan ID, so every event of a
// loan lands on the same partition in order
type LoanEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewLoanEventProducer dials the brokers, makes sure the topic exists and
// returns a synchronous writer
func NewLoanEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*LoanEventProducer, error) {
	if cfg.LoanEventsTopic == "" {
		return nil, fmt.Errorf("kafka loan events topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for loan event producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.LoanEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, topicLookupBackoff, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure loan events topic %s exists: %w", cfg.LoanEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.LoanEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &LoanEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.LoanEventsTopic,
	}, nil
}

// PublishEvent serializes the event and writes it to the loan events topic
func (p *LoanEventProducer) PublishEvent(ctx context.Context, event *notification.LoanEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal loan event: %w", err)
	}

	key := strconv.FormatInt(event.LoanID, 10)
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.EventType)},
			{Key: "correlation-id", Value: []byte(event.CorrelationID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish loan event",
			"topic", p.topic,
			"loan_id", event.LoanID,
			"event_type", event.EventType,
			"error", err,
		)
		return fmt.Errorf("failed to publish loan event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published loan event",
		"topic", p.topic,
		"loan_id", event.LoanID,
		"event_id", event.EventID.String(),
		"event_type", event.EventType,
	)
	return nil
}

func (p *LoanEventProducer) Close() error {
	p.logger.Info("Closing loan event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close loan event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
