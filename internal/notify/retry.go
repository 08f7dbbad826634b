package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"optionAMM/internal/model"
)

const defaultRetryBackoff = 100 * time.Millisecond

// deliver hands batch to the sink, retrying up to MaxRetries times with a
// doubling backoff. Each retry is logged and counted under status "retry".
func (d *Dispatcher) deliver(ctx context.Context, batch []model.Notification) error {
	backoff := d.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	retries := d.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	for attempt := 1; ; attempt++ {
		err := d.sink.PutNotifications(ctx, batch)
		if err == nil {
			return nil
		}
		if attempt > retries {
			d.logger.Warn("deliver notifications failed",
				zap.String("sink", d.cfg.SinkName),
				zap.Int("attempt", attempt),
				zap.Int("batch", len(batch)),
				zap.Error(err),
			)
			return err
		}

		d.metrics.ObserveDelivery(d.cfg.SinkName, "retry", len(batch))
		d.logger.Info("retry notification delivery",
			zap.String("sink", d.cfg.SinkName),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Int("batch", len(batch)),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}
