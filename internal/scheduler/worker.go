package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/radustef/mangapipe/internal/importer"
	"github.com/radustef/mangapipe/internal/models"
)

type claimQueue interface {
	ClaimNext() (*models.QueueItem, error)
}

type processor interface {
	Process(ctx context.Context, item *models.QueueItem) (*importer.Result, error)
}

// Worker drains the pending import backlog in the background: requeued
// failures and items whose original request disconnected before processing
// finished.
type Worker struct {
	queue      claimQueue
	processor  processor
	interval   time.Duration
	claimLimit int
	logger     *slog.Logger
	stopCh     chan struct{}
	started    bool
}

type WorkerConfig struct {
	Interval   time.Duration
	ClaimLimit int
}

func NewWorker(queue claimQueue, proc processor, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:      queue,
		processor:  proc,
		interval:   cfg.Interval,
		claimLimit: cfg.ClaimLimit,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.started = true
	w.logger.Info("import worker started", "interval", w.interval.String(), "claim_limit", w.claimLimit)
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Warn("worker initial run failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("import worker stopped")
				close(w.stopCh)
				return
			case <-ticker.C:
				if err := w.RunOnce(ctx); err != nil {
					w.logger.Warn("worker cycle failed", "error", err)
				}
			}
		}
	}()
}

// StopWait blocks until the worker goroutine exits or the timeout passes.
// Calling it on a worker that never started returns immediately, its stopCh
// would otherwise never close.
func (w *Worker) StopWait(timeout time.Duration) {
	if !w.started {
		return
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-w.stopCh:
	case <-time.After(timeout):
	}
}

// RunOnce claims and processes up to claimLimit pending items. Processing
// errors are recorded on the items themselves, so only claim errors
// propagate.
func (w *Worker) RunOnce(ctx context.Context) error {
	for i := 0; i < w.claimLimit; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		item, err := w.queue.ClaimNext()
		if err != nil {
			return fmt.Errorf("claim next queue item: %w", err)
		}
		if item == nil {
			return nil
		}

		if _, err := w.processor.Process(ctx, item); err != nil {
			w.logger.Warn("queued import failed", "ref", item.Ref, "error", err)
		}
	}
	return nil
}
