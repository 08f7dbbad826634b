package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"optionAMM/internal/metrics"
	"optionAMM/internal/storage"
)

// DispatchConfig holds delivery settings.
type DispatchConfig struct {
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	// SinkName labels delivery metrics.
	SinkName string
}

// Dispatcher moves notifications from an outbox to a sink.
type Dispatcher struct {
	cfg     DispatchConfig
	outbox  *Outbox
	sink    storage.Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDispatcher builds a Dispatcher with its dependencies.
func NewDispatcher(cfg DispatchConfig, outbox *Outbox, sink storage.Sink, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SinkName == "" {
		cfg.SinkName = "default"
	}
	return &Dispatcher{
		cfg:     cfg,
		outbox:  outbox,
		sink:    sink,
		metrics: m,
		logger:  logger,
	}
}

// Pending returns the number of notifications waiting in the outbox.
func (d *Dispatcher) Pending() int {
	if d.outbox == nil {
		return 0
	}
	return d.outbox.Len()
}

// Flush delivers everything queued in the outbox. A batch that still fails
// after its retries is put back at the head of the queue and the error is
// returned, so nothing is lost.
func (d *Dispatcher) Flush(ctx context.Context) (int, error) {
	if d.outbox == nil {
		return 0, fmt.Errorf("outbox is nil")
	}
	if d.sink == nil {
		return 0, fmt.Errorf("sink is nil")
	}

	delivered := 0
	for {
		batch := d.outbox.Drain(d.cfg.BatchSize)
		if len(batch) == 0 {
			return delivered, nil
		}

		if err := d.deliver(ctx, batch); err != nil {
			d.outbox.Requeue(batch)
			d.metrics.ObserveDelivery(d.cfg.SinkName, "failed", len(batch))
			return delivered, fmt.Errorf("deliver notifications: %w", err)
		}

		delivered += len(batch)
		d.metrics.ObserveDelivery(d.cfg.SinkName, "ok", len(batch))
		d.logger.Debug("notifications delivered", zap.Int("batch", len(batch)), zap.Int("pending", d.outbox.Len()))
	}
}

// Run flushes the outbox every interval until ctx is done, then flushes once more.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_, err := d.Flush(context.WithoutCancel(ctx))
			return err
		case <-ticker.C:
			if _, err := d.Flush(ctx); err != nil {
				d.logger.Warn("flush failed", zap.Error(err), zap.Int("pending", d.outbox.Len()))
			}
		}
	}
}
