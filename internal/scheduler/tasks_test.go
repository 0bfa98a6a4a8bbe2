package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewReconcileTask(t *testing.T) {
	ran := false
	task := NewReconcileTask(func(ctx context.Context) error {
		ran = true
		return nil
	}, 5*time.Minute)

	if task.ID != "reconcile" {
		t.Errorf("ID = %q", task.ID)
	}
	if !task.RunOnStart {
		t.Error("reconcile task should run on start")
	}
	if err := task.Func(context.Background()); err != nil {
		t.Errorf("Func returned %v", err)
	}
	if !ran {
		t.Error("wrapped function never ran")
	}
}

func TestNewReconcileTaskNilFunc(t *testing.T) {
	task := NewReconcileTask(nil, time.Minute)
	if err := task.Func(context.Background()); err == nil {
		t.Error("expected error for nil reconcile function")
	}
}

func TestNewHistoryPruneTask(t *testing.T) {
	task := NewHistoryPruneTask(func() (int64, error) {
		return 3, nil
	})
	if err := task.Func(context.Background()); err != nil {
		t.Errorf("Func returned %v", err)
	}

	failing := NewHistoryPruneTask(func() (int64, error) {
		return 0, errors.New("locked")
	})
	if err := failing.Func(context.Background()); err == nil {
		t.Error("expected prune error to propagate")
	}
}
