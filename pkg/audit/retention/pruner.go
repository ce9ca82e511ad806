package retention

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/vaultgate/pkg/audit"
	"mercator-hq/vaultgate/pkg/config"
)

// Pruner deletes audit records older than the retention period.
type Pruner struct {
	storage   audit.Storage
	config    config.RetentionConfig
	logger    *slog.Logger
	now       func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a pruner. RetentionDays of 0 keeps records forever.
func NewPruner(storage audit.Storage, cfg config.RetentionConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "audit.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Cutoff returns the time before which records are deleted, and false when
// retention is unlimited.
func (p *Pruner) Cutoff() (time.Time, bool) {
	if p.config.Days <= 0 {
		return time.Time{}, false
	}
	return p.now().AddDate(0, 0, -p.config.Days), true
}

// Prune deletes expired records and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff, ok := p.Cutoff()
	if !ok {
		p.logger.Debug("retention unlimited, nothing to prune")
		return 0, nil
	}

	deleted, err := p.storage.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.Days, err)
	}

	if deleted > 0 {
		p.logger.Info("audit records pruned",
			"deleted_count", deleted,
			"retention_days", p.config.Days,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
	} else {
		p.logger.Debug("no audit records pruned", "retention_days", p.config.Days)
	}
	return deleted, nil
}

// Start runs Prune on the configured cron schedule until ctx is done or
// Stop is called.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the schedule and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil when not scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
