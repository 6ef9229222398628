// Package worker relays outbox events to the message broker.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// Publisher delivers a single event.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
}

// OutboxWorker polls the outbox, publishes pending events in order and
// marks each one sent.  A failed publish leaves the row pending so the next
// tick retries it; delivery is at least once.
type OutboxWorker struct {
	outbox    repository.OutboxSource
	publisher Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batch     int
}

// NewOutboxWorker builds a worker.  interval and batch fall back to 2s and
// 100 when not positive.
func NewOutboxWorker(outbox repository.OutboxSource, publisher Publisher, logger *zap.Logger, m *metrics.Metrics, interval time.Duration, batch int) *OutboxWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &OutboxWorker{
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		interval:  interval,
		batch:     batch,
	}
}

// Start runs until ctx is cancelled.
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				w.logger.Error("failed to process events", zap.Error(err))
			}
		}
	}
}

// ProcessOnce relays one batch and returns how many events were sent.  It
// stops at the first publish failure so events keep their order.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	events, err := w.outbox.PendingEvents(ctx, w.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range events {
		if err := w.publisher.Publish(ctx, e.Event); err != nil {
			w.metrics.OutboxRelayed("failed")
			w.logger.Warn("failed to publish event",
				zap.Uint64("rowId", e.RowID),
				zap.String("eventType", e.Event.Type),
				zap.Error(err))
			return sent, nil
		}
		if err := w.outbox.MarkSent(ctx, e.RowID); err != nil {
			w.logger.Error("failed to mark event as sent",
				zap.Uint64("rowId", e.RowID),
				zap.Error(err))
			return sent, err
		}
		w.metrics.OutboxRelayed("sent")
		sent++
		w.logger.Debug("event published",
			zap.Uint64("rowId", e.RowID),
			zap.String("eventType", e.Event.Type),
			zap.Uint64("reservationId", e.Event.ReservationID))
	}
	return sent, nil
}
