package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicLookupAttempts = 5
	topicLookupBackoff  = 2 * time.Second
)

// topicAdmin is the subset of *kafka.Conn used to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates the topic when its partitions cannot be read. Partition
// reads are retried because a freshly started broker may not answer at once.
func ensureTopic(admin topicAdmin, topic string, partitions, replication int, backoff time.Duration, log *slog.Logger) error {
	var (
		found []kafka.Partition
		err   error
	)
	for attempt := 1; attempt <= topicLookupAttempts; attempt++ {
		found, err = admin.ReadPartitions(topic)
		if err == nil && len(found) > 0 {
			log.Info("Kafka topic ready", "topic", topic, "partitions", len(found))
			return nil
		}
		log.Warn("Kafka topic lookup failed", "topic", topic, "attempt", attempt, "error", err)
		if attempt < topicLookupAttempts {
			time.Sleep(backoff)
		}
	}

	if partitions <= 0 {
		partitions = 1
	}
	if replication <= 0 {
		replication = 1
	}

	log.Info("Creating Kafka topic", "topic", topic, "partitions", partitions, "replication_factor", replication)
	if err := admin.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}
