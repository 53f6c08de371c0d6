package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/settlement-recon/backend/internal/application/usecase/reconciliation"
)

// WorkerConfig holds configuration for the sync worker.
type WorkerConfig struct {
	PollInterval time.Duration
	// Lookback is how far behind now each poll reaches; overlap is harmless since storage skips known ids.
	Lookback time.Duration
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 15 * time.Minute,
		Lookback:     72 * time.Hour,
	}
}

// Worker periodically pulls processor transactions into the store.
type Worker struct {
	sync         *reconciliation.SyncTransactionsUseCase
	pollInterval time.Duration
	lookback     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewWorker creates a new sync worker.
func NewWorker(sync *reconciliation.SyncTransactionsUseCase, config WorkerConfig, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.Lookback <= 0 {
		config.Lookback = defaults.Lookback
	}
	return &Worker{
		sync:         sync,
		pollInterval: config.PollInterval,
		lookback:     config.Lookback,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the worker loop. It blocks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("processor sync worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("lookback", w.lookback),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Sync immediately on start, then on ticker
	w.SyncNow(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("processor sync worker shutting down")
			return
		case <-ticker.C:
			w.SyncNow(ctx)
		}
	}
}

// SyncNow runs one sync over the lookback window.
func (w *Worker) SyncNow(ctx context.Context) {
	end := w.now()
	_, err := w.sync.Execute(ctx, reconciliation.SyncTransactionsInput{
		Start: end.Add(-w.lookback),
		End:   end,
	})
	if err != nil && ctx.Err() == nil {
		w.logger.Error("processor sync failed", zap.Error(err))
	}
}
