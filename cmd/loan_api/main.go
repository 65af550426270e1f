package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/data/mongo"
	"github.com/microlending/loan-engine/internal/data/postgres"
	"github.com/microlending/loan-engine/internal/loan_api"
	"github.com/microlending/loan-engine/internal/loan_api/service"
	"github.com/microlending/loan-engine/internal/logger"
	"github.com/microlending/loan-engine/internal/platform/gateway"
	"github.com/microlending/loan-engine/internal/platform/messaging/producers"
	"github.com/microlending/loan-engine/internal/platform/persistence"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("loan_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Loan API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Applies pending migrations before the pool is opened
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	if err := mongoDB.EnsureLoanEventIndexes(appCtx); err != nil {
		log.Error("Failed to create loan event indexes", "error", err)
		os.Exit(1)
	}

	checks := map[string]loan_api.HealthCheck{
		"postgres": postgresDB.Ping,
		"mongodb":  mongoDB.Ping,
	}

	var rdb *redis.Client
	if cfg.Idempotency.Enabled {
		rdb, err = persistence.OpenRedis(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	eventProducer, err := producers.NewLoanEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize loan event producer", "error", err)
		os.Exit(1)
	}

	dispatcher, err := service.NewDispatcher(log, eventProducer, cfg.Notifications)
	if err != nil {
		log.Error("Failed to initialize notification dispatcher", "error", err)
		os.Exit(1)
	}

	// Repositories
	loanRepo := postgres.NewLoanRepository(log, postgresDB)
	installmentRepo := postgres.NewInstallmentRepository(log, postgresDB)
	eventRepo := mongo.NewNotificationRepository(log, mongoDB.Database())

	// Downstream services
	httpClient := gateway.NewHTTPClient(cfg.Gateways.Timeout)
	clientGateway := gateway.NewClientGateway(log, httpClient, cfg.Gateways.ClientServiceURL)
	accountGateway := gateway.NewAccountGateway(log, httpClient, cfg.Gateways.AccountServiceURL, cfg.Gateways.TransactionServiceURL)

	evaluator := service.NewCreditEvaluator(log, cfg.LoanPolicy, accountGateway)
	services := loan_api.Services{
		Loans: service.NewLoanService(
			log,
			loanRepo,
			installmentRepo,
			postgresDB,
			clientGateway,
			accountGateway,
			evaluator,
			dispatcher,
			cfg.LoanPolicy,
		),
		Installments: service.NewInstallmentService(
			log,
			installmentRepo,
			loanRepo,
			postgresDB,
			accountGateway,
			clientGateway,
			dispatcher,
		),
		Notifications: service.NewNotificationService(loanRepo, eventRepo),
	}

	var cache redis.Cmdable
	if rdb != nil {
		cache = rdb
	}
	server := loan_api.NewServer(log, cfg, services, cache, checks)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	// Stop taking requests first so no new events reach the dispatcher
	if err = server.Stop(context.Background()); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	dispatcher.Shutdown(cfg.Notifications.PublishTimeout)
	if dropped := dispatcher.Dropped(); dropped > 0 {
		log.Warn("Notifications dropped during this run", "count", dropped)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing loan event producer", "error", err)
	}

	postgresDB.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if rdb != nil {
		if err = rdb.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	if serverErr != nil {
		log.Error("Loan API shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Loan API shutdown completed")
}
