// Package worker drains the audit outbox to the broker.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"zerina/pkg/platform/audit/store/postgres"
)

// Broker is the publishing side the worker needs; satisfied by kafka.Publisher.
type Broker interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Outbox is the store side the worker needs; satisfied by the audit
// postgres store.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublishedBatch(ctx context.Context, entryIDs []uuid.UUID) error
}

// Worker polls the outbox and publishes pending entries. Rows are only marked
// published after the broker acknowledges, so a crash re-publishes (at-least-
// once) rather than losing events.
type Worker struct {
	store    Outbox
	broker   Broker
	logger   *slog.Logger
	interval time.Duration
	batch    int
	// parallelism caps concurrent publishes per batch.
	parallelism int
}

func New(store Outbox, broker Broker, logger *slog.Logger) *Worker {
	return &Worker{
		store:       store,
		broker:      broker,
		logger:      logger,
		interval:    time.Second,
		batch:       100,
		parallelism: 8,
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	entries, err := w.store.FetchUnpublished(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	var (
		mu        sync.Mutex
		published []uuid.UUID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, entry := range entries {
		g.Go(func() error {
			if err := w.broker.Publish(gctx, entry.ID.String(), entry.Payload); err != nil {
				return err
			}
			mu.Lock()
			published = append(published, entry.ID)
			mu.Unlock()
			return nil
		})
	}
	publishErr := g.Wait()

	// Acknowledged entries are marked even when others in the batch
	// failed; the failures stay unpublished and are retried next tick.
	if len(published) > 0 {
		if err := w.store.MarkPublishedBatch(ctx, published); err != nil {
			return err
		}
	}
	return publishErr
}
