// Package retention deletes expired audit records.
//
// A Pruner removes every record older than audit.retention.days. Its
// Scheduler runs the pruner on the cron expression in
// audit.retention.prune_schedule (github.com/robfig/cron/v3, standard five
// fields). A retention of 0 days keeps records forever and schedules
// nothing.
//
//	pruner := retention.NewPruner(store, cfg.Audit.Retention, logger)
//	if err := pruner.Start(ctx); err != nil {
//		return err
//	}
//	defer pruner.Stop()
package retention
