package scheduler

import (
	"context"
	"fmt"
	"time"
)

// NewReconcileTask wraps the reconcile cycle as the daemon's main job.
// RunOnStart is set so a freshly started daemon converges immediately
// instead of waiting out the first interval.
func NewReconcileTask(run func(ctx context.Context) error, interval time.Duration) *Task {
	return &Task{
		ID:         "reconcile",
		Name:       "Firewall Reconcile",
		Schedule:   Every(interval),
		RunOnStart: true,
		Timeout:    5 * time.Minute,
		Func: func(ctx context.Context) error {
			if run == nil {
				return fmt.Errorf("reconcile function not configured")
			}
			return run(ctx)
		},
	}
}

// NewHistoryPruneTask trims old cycle history once a day.
func NewHistoryPruneTask(prune func() (int64, error)) *Task {
	return &Task{
		ID:       "history-prune",
		Name:     "History Prune",
		Schedule: Daily(3, 30),
		Timeout:  time.Minute,
		Func: func(ctx context.Context) error {
			if prune == nil {
				return fmt.Errorf("prune function not configured")
			}
			_, err := prune()
			return err
		},
	}
}
