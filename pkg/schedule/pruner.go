package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RunDeleter removes stored runs. results.Store implements it.
type RunDeleter interface {
	DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Pruner deletes runs older than the retention period.
type Pruner struct {
	store         RunDeleter
	retentionDays int
	now           func() time.Time
	logger        *slog.Logger
}

// NewPruner creates a pruner. retentionDays of 0 keeps runs forever.
func NewPruner(store RunDeleter, retentionDays int, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default().With("component", "schedule.pruner")
	}
	return &Pruner{
		store:         store,
		retentionDays: retentionDays,
		now:           time.Now,
		logger:        logger,
	}
}

// Cutoff returns the start time before which runs are deleted.
func (p *Pruner) Cutoff() time.Time {
	return p.now().AddDate(0, 0, -p.retentionDays)
}

// Prune deletes expired runs and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retentionDays <= 0 {
		p.logger.Debug("retention disabled, nothing pruned")
		return 0, nil
	}

	cutoff := p.Cutoff()
	deleted, err := p.store.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if deleted > 0 {
		p.logger.Info("pruned runs",
			"deleted_count", deleted,
			"retention_days", p.retentionDays,
		)
	} else {
		p.logger.Debug("no runs pruned", "retention_days", p.retentionDays)
	}
	return deleted, nil
}
