package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolArchiveService runs archive calls on a bounded ants pool so a slow
// document store cannot pile up unbounded goroutines
type WorkerPoolArchiveService struct {
	base   ArchiveService
	pool   *ants.Pool
	logger *slog.Logger
}

func NewWorkerPoolArchiveService(
	base ArchiveService,
	cfg config.WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolArchiveService, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive worker pool: %w", err)
	}

	return &WorkerPoolArchiveService{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// Archive submits the event to the pool and waits for the worker's result
func (s *WorkerPoolArchiveService) Archive(ctx context.Context, event *notification.LoanEvent) error {
	eventCopy := *event
	resultChan := make(chan error, 1)

	err := s.pool.Submit(func() {
		resultChan <- s.base.Archive(ctx, &eventCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit loan event to worker pool",
			"event_id", event.EventID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to submit loan event to worker pool: %w", err)
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool. Tasks already running finish on their own.
func (s *WorkerPoolArchiveService) Shutdown() {
	s.logger.Info("Shutting down archive worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolArchiveService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolArchiveService) Capacity() int {
	return s.pool.Cap()
}
