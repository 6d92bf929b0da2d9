package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arenafit/backoffice/internal/notification/domain"
)

// DrainWorkerConfig holds the polling parameters of the background consumer.
type DrainWorkerConfig struct {
	BatchSize int
	Interval  time.Duration
	DryRun    bool
}

// DrainWorker periodically drains the pending outbox view and attempts
// delivery for each row, sequentially. It has no state beyond its timer.
type DrainWorker struct {
	outboxRepo domain.OutboxRepository
	dispatcher *DispatchService
	logger     *slog.Logger
	config     DrainWorkerConfig
}

func NewDrainWorker(
	outboxRepo domain.OutboxRepository,
	dispatcher *DispatchService,
	logger *slog.Logger,
	cfg DrainWorkerConfig,
) *DrainWorker {
	return &DrainWorker{
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
		logger:     logger.With("component", "drain_worker"),
		config:     cfg,
	}
}

// Run blocks until ctx is cancelled, draining one batch per interval tick.
// Cancellation lets the in-flight item finish; the rest of the batch is
// abandoned for the next process start.
func (w *DrainWorker) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "drain worker starting",
		"batch_size", w.config.BatchSize,
		"interval", w.config.Interval.String(),
		"dry_run", w.config.DryRun)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "drain worker stopping")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch fetches up to BatchSize pending entries, oldest first, and
// attempts delivery for each. A store error fetching the batch skips the
// cycle; a single item's failure never aborts the batch.
func (w *DrainWorker) ProcessBatch(ctx context.Context) {
	timer := prometheus.NewTimer(workerBatchDurationHist)
	defer timer.ObserveDuration()

	items, err := w.outboxRepo.ListPending(ctx, w.config.BatchSize)
	if err != nil {
		workerBatchesCounter.WithLabelValues("fetch_error").Inc()
		w.logger.ErrorContext(ctx, "failed to fetch pending outbox entries", "error", err)
		return
	}
	if len(items) == 0 {
		workerBatchesCounter.WithLabelValues("empty").Inc()
		w.logger.DebugContext(ctx, "no pending outbox entries")
		return
	}

	w.logger.InfoContext(ctx, "draining pending batch", "count", len(items))
	for _, item := range items {
		outcome := w.dispatcher.AttemptDelivery(ctx, item, w.config.DryRun)
		if outcome.Sent {
			w.logger.InfoContext(ctx, "outbox entry sent", "outbox_id", item.ID, "phone", item.Phone)
		} else {
			w.logger.WarnContext(ctx, "outbox entry failed", "outbox_id", item.ID, "phone", item.Phone, "reason", outcome.Reason)
		}

		// Finish the current item, then honor cancellation without forcibly
		// draining the rest of the batch.
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "cancellation observed mid-batch, abandoning remainder")
			workerBatchesCounter.WithLabelValues("drained").Inc()
			return
		default:
		}
	}
	workerBatchesCounter.WithLabelValues("drained").Inc()
}
