// Package config provides configuration structures and validation for the loan engine.
// It covers the HTTP server, the relational and document stores, the message bus,
// the downstream client/account services and the lending policy thresholds.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration. Both binaries load the
// same structure and read the sections they use.
type Config struct {
	Application   ApplicationConfig
	Logging       LoggingConfig
	Server        ServerConfig
	Kafka         KafkaConfig
	Postgres      PostgresConfig
	MongoDB       MongoDBConfig
	Redis         RedisConfig
	Idempotency   IdempotencyConfig
	Gateways      GatewayConfig
	LoanPolicy    LoanPolicyConfig
	Notifications NotificationConfig
	WorkerPool    WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	LoanEventsTopic   string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IdempotencyConfig controls replay of mutating requests carrying an Idempotency-Key header
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// GatewayConfig holds the base URLs of the downstream services
type GatewayConfig struct {
	ClientServiceURL      string
	AccountServiceURL     string
	TransactionServiceURL string
	Timeout               time.Duration
}

// LoanPolicyConfig holds credit policy thresholds
type LoanPolicyConfig struct {
	MinAmount          decimal.Decimal
	MinTermMonths      int
	MaxTermMonths      int
	MaxInterestRate    decimal.Decimal
	MaxActiveLoans     int
	SyncAccountBalance bool // patch the account balance after disbursement
}

// NotificationConfig sizes the fire-and-forget notification dispatcher
type NotificationConfig struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
}

// WorkerPoolConfig contains worker pool configuration for the archiver
type WorkerPoolConfig struct {
	Size int
}

// validate collects every configuration violation instead of stopping at the first one
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.LoanEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_LOAN_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// PostgreSQL
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// MongoDB
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	if c.Idempotency.Enabled {
		if c.Redis.Addr == "" {
			validationErrors = append(validationErrors, "REDIS_ADDR is required when IDEMPOTENCY_ENABLED is true")
		}
		if c.Idempotency.TTL <= 0 {
			validationErrors = append(validationErrors, "IDEMPOTENCY_TTL must be greater than 0")
		}
	}

	// Downstream services
	if c.Gateways.ClientServiceURL == "" {
		validationErrors = append(validationErrors, "CLIENT_SERVICE_URL is required")
	}
	if c.Gateways.AccountServiceURL == "" {
		validationErrors = append(validationErrors, "ACCOUNT_SERVICE_URL is required")
	}
	if c.Gateways.TransactionServiceURL == "" {
		validationErrors = append(validationErrors, "TRANSACTION_SERVICE_URL is required")
	}
	if c.Gateways.Timeout <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_TIMEOUT must be greater than 0")
	}

	// Lending policy
	if !c.LoanPolicy.MinAmount.IsPositive() {
		validationErrors = append(validationErrors, "LOAN_MIN_AMOUNT must be greater than 0")
	}
	if c.LoanPolicy.MinTermMonths <= 0 {
		validationErrors = append(validationErrors, "LOAN_MIN_TERM_MONTHS must be greater than 0")
	}
	if c.LoanPolicy.MaxTermMonths < c.LoanPolicy.MinTermMonths {
		validationErrors = append(validationErrors, "LOAN_MAX_TERM_MONTHS must not be below LOAN_MIN_TERM_MONTHS")
	}
	if !c.LoanPolicy.MaxInterestRate.IsPositive() {
		validationErrors = append(validationErrors, "LOAN_MAX_INTEREST_RATE must be greater than 0")
	}
	if c.LoanPolicy.MaxActiveLoans <= 0 {
		validationErrors = append(validationErrors, "LOAN_MAX_ACTIVE_LOANS must be greater than 0")
	}

	if c.Notifications.Workers <= 0 {
		validationErrors = append(validationErrors, "NOTIFY_WORKERS must be greater than 0")
	}
	if c.Notifications.QueueSize < 0 {
		validationErrors = append(validationErrors, "NOTIFY_QUEUE_SIZE cannot be negative")
	}
	if c.Notifications.PublishTimeout <= 0 {
		validationErrors = append(validationErrors, "NOTIFY_PUBLISH_TIMEOUT must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
