package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/pkg/logger"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

// OutboxCleanupWorker deletes outbox rows that were delivered long ago.
type OutboxCleanupWorker struct {
	repo          repository.OutboxRepository
	retentionDays int
	logger        *logger.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retentionDays int, logger *logger.Logger, m *metrics.Metrics) *OutboxCleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &OutboxCleanupWorker{
		repo:          repo,
		retentionDays: retentionDays,
		logger:        logger,
		metrics:       m,
		now:           time.Now,
	}
}

// Run performs one cleanup pass.
func (w *OutboxCleanupWorker) Run(ctx context.Context) (int64, error) {
	cutoff := w.now().AddDate(0, 0, -w.retentionDays)
	n, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error(err, "Failed to clean up outbox")
		return 0, err
	}
	if w.metrics != nil {
		w.metrics.OutboxEventsDeleted.Add(float64(n))
	}
	w.logger.Info("Outbox cleaned up", "deleted", n, "cutoff", cutoff)
	return n, nil
}
