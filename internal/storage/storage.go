package storage

import (
	"context"
	"errors"

	"optionAMM/internal/model"
)

// Sink defines a destination for pool notifications. Deliveries are
// at-least-once, so sinks should tolerate redelivered ids.
type Sink interface {
	PutNotifications(ctx context.Context, batch []model.Notification) error
}

// Multi fans a batch out to every sink and joins their errors.
type Multi []Sink

func (m Multi) PutNotifications(ctx context.Context, batch []model.Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutNotifications(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
