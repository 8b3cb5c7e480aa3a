package scheduler

import (
	"context"
	"fmt"
	"time"
)

// SessionExpirer closes idle sessions.
type SessionExpirer interface {
	ExpireIdle(ctx context.Context) (int, error)
}

// HistoryPruner deletes favourites history past its retention period.
type HistoryPruner interface {
	CleanupOldEntries(ctx context.Context) error
}

// HealthChecker runs the provider and storage checks.
type HealthChecker interface {
	CheckAll(ctx context.Context) error
}

// Task IDs.
const (
	TaskSessionCleanup   = "session-cleanup"
	TaskHistoryRetention = "history-retention"
	TaskHealthCheck      = "health-check"
)

// RegisterSessionCleanup schedules idle session expiry.
func RegisterSessionCleanup(s *Scheduler, cron string, expirer SessionExpirer) error {
	return s.RegisterTask(TaskConfig{
		ID:          TaskSessionCleanup,
		Name:        "Session cleanup",
		Description: "Closes view-state sessions that have been idle past the timeout",
		Cron:        cron,
		Timeout:     time.Minute,
		Func: func(ctx context.Context) error {
			_, err := expirer.ExpireIdle(ctx)
			return err
		},
	})
}

// RegisterHistoryRetention schedules the daily history prune.
func RegisterHistoryRetention(s *Scheduler, pruner HistoryPruner) error {
	return s.RegisterTask(TaskConfig{
		ID:          TaskHistoryRetention,
		Name:        "History retention",
		Description: "Deletes favourites history older than the retention period",
		Cron:        "0 3 * * *",
		RunOnStart:  true,
		Timeout:     5 * time.Minute,
		Func:        pruner.CleanupOldEntries,
	})
}

// RegisterHealthCheck schedules the provider and storage checks every
// interval, normally health.check_interval. A non-positive interval falls
// back to one hour.
func RegisterHealthCheck(s *Scheduler, interval time.Duration, checker HealthChecker) error {
	if interval <= 0 {
		interval = time.Hour
	}
	return s.RegisterTask(TaskConfig{
		ID:          TaskHealthCheck,
		Name:        "Health check",
		Description: "Probes the metadata provider and favourites storage",
		Cron:        fmt.Sprintf("@every %s", interval.String()),
		Timeout:     time.Minute,
		Func:        checker.CheckAll,
	})
}
