package worker

import (
	"context"
	"errors"
	"sync/atomic"

	"majorincome/internal/amqp"
	"majorincome/internal/log"
)

type (
	// CachePurger drops cached API responses.
	CachePurger interface {
		PurgeCaches() int
	}

	// Consumer delivers refresh events until ctx ends.
	Consumer interface {
		ConsumeDatasetRefreshed(ctx context.Context, handler amqp.Handler) error
	}
)

// RefreshWorker invalidates the API caches whenever a scrape run lands.
type RefreshWorker struct {
	purger  CachePurger
	logger  *log.Logger
	handled atomic.Int64
	lastRun atomic.Value
}

func NewRefreshWorker(purger CachePurger, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &RefreshWorker{purger: purger, logger: logger.WithComponent(log.ComponentAMQP)}
}

// HandleRefresh processes a single refresh event.
func (w *RefreshWorker) HandleRefresh(ctx context.Context, msg *amqp.DatasetRefreshedMessage) error {
	purged := w.purger.PurgeCaches()
	w.handled.Add(1)
	w.lastRun.Store(msg.RunID)

	w.logger.InfoContext(ctx, "Dataset refreshed, caches purged",
		log.FieldOperation, log.OpConsume,
		log.FieldRunID, msg.RunID,
		log.FieldMajorCount, msg.Majors,
		log.FieldFailed, msg.Failed,
		"purged_entries", purged)
	return nil
}

// Run consumes events until ctx is cancelled. Cancellation is not an error.
func (w *RefreshWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.ConsumeDatasetRefreshed(ctx, w.HandleRefresh)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handled returns how many events were processed.
func (w *RefreshWorker) Handled() int64 { return w.handled.Load() }

// LastRunID returns the run id of the most recent event, or "".
func (w *RefreshWorker) LastRunID() string {
	id, _ := w.lastRun.Load().(string)
	return id
}
