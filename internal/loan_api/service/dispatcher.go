package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/microlending/loan-engine/internal/config"
	"github.com/microlending/loan-engine/internal/domain/notification"
	"github.com/microlending/loan-engine/internal/platform/messaging/producers"
	"github.com/panjf2000/ants/v2"
)

// Dispatcher implements NotificationPublisher on a bounded queue drained into
// an ants worker pool. Events that do not fit in the queue are dropped, so
// delivery is at most once.
type Dispatcher struct {
	publisher producers.LoanEventPublisher
	pool      *ants.Pool
	queue     chan *notification.LoanEvent
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewDispatcher(logger *slog.Logger, publisher producers.LoanEventPublisher, cfg config.NotificationConfig) (*Dispatcher, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		publisher: publisher,
		pool:      pool,
		queue:     make(chan *notification.LoanEvent, cfg.QueueSize),
		timeout:   cfg.PublishTimeout,
		logger:    logger,
	}

	d.wg.Add(1)
	go d.feed()

	return d, nil
}

// Publish enqueues the event without waiting. The request context is not
// carried into delivery.
func (d *Dispatcher) Publish(_ context.Context, event *notification.LoanEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher is shut down")
		return
	}

	select {
	case d.queue <- event:
	default:
		d.drop(event, "notification queue is full")
	}
}

// feed hands queued events to the pool, waiting for a free worker
func (d *Dispatcher) feed() {
	defer d.wg.Done()
	for event := range d.queue {
		ev := event
		if err := d.pool.Submit(func() { d.deliver(ev) }); err != nil {
			d.drop(ev, err.Error())
		}
	}
}

func (d *Dispatcher) deliver(event *notification.LoanEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	logger := d.logger.With(
		"event_id", event.EventID.String(),
		"event_type", string(event.EventType),
		"loan_id", event.LoanID,
	)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	if err := d.publisher.PublishEvent(ctx, event); err != nil {
		logger.Error("Failed to publish loan event", "error", err)
		return
	}
	logger.Debug("Loan event published")
}

func (d *Dispatcher) drop(event *notification.LoanEvent, reason string) {
	d.dropped.Add(1)
	d.logger.Warn("Dropping loan event",
		"event_id", event.EventID.String(),
		"event_type", string(event.EventType),
		"loan_id", event.LoanID,
		"reason", reason,
	)
}

// Dropped returns how many events were discarded without a delivery attempt
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Shutdown stops accepting events, delivers what is already queued and waits
// for in-flight publishes up to timeout.
func (d *Dispatcher) Shutdown(timeout time.Duration) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()

	d.logger.Info("Shutting down notification dispatcher", "running_workers", d.pool.Running())
	if err := d.pool.ReleaseTimeout(timeout); err != nil {
		d.logger.Warn("Notification workers did not finish in time", "error", err)
	}
}
