package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/data/mongo"
	"github.com/microlending/loan-engine/internal/logger"
	"github.com/microlending/loan-engine/internal/notification_archiver/consumer"
	"github.com/microlending/loan-engine/internal/notification_archiver/service"
	"github.com/microlending/loan-engine/internal/platform/messaging/consumers"
	"github.com/microlending/loan-engine/internal/platform/messaging/producers"
	"github.com/microlending/loan-engine/internal/platform/persistence"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("notification_archiver")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Notification Archiver",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	if err := mongoDB.EnsureLoanEventIndexes(appCtx); err != nil {
		log.Error("Failed to create loan event indexes", "error", err)
		os.Exit(1)
	}

	eventRepo := mongo.NewNotificationRepository(log, mongoDB.Database())

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	archiveService, err := service.NewWorkerPoolArchiveService(
		service.NewArchiveService(log, eventRepo),
		cfg.WorkerPool,
		log,
	)
	if err != nil {
		log.Error("Failed to initialize archive worker pool", "error", err)
		os.Exit(1)
	}

	eventHandler := consumer.NewLoanEventHandler(log, archiveService, dlqProducer)

	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)
	if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to loan events", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	stopped := make(chan struct{})
	go func() {
		kafkaConsumer.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("Kafka consumer stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	archiveService.Shutdown()

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Notification Archiver shutdown completed")
}
