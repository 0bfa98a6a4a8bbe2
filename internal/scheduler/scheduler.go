// Package scheduler drives the daemon's periodic jobs: the reconcile
// cycle on its configured interval and the nightly history prune.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"grimm.is/rampart/internal/clock"
	"grimm.is/rampart/internal/logging"
)

// TaskFunc is a function that performs a scheduled task.
// It receives a context that will be cancelled if the scheduler stops.
type TaskFunc func(ctx context.Context) error

// Schedule defines when a task should run.
type Schedule interface {
	// Next returns the next time the task should run after the given time.
	Next(after time.Time) time.Time
}

// Task represents a scheduled task.
type Task struct {
	ID         string
	Name       string
	Schedule   Schedule
	Func       TaskFunc
	RunOnStart bool // Run immediately when scheduler starts
	Timeout    time.Duration
}

// TaskStatus represents the current status of a task.
type TaskStatus struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	NextRun      time.Time     `json:"next_run,omitempty"`
	RunCount     int64         `json:"run_count"`
	ErrorCount   int64         `json:"error_count"`
}

// Scheduler manages and runs scheduled tasks.
type Scheduler struct {
	tasks   map[string]*taskEntry
	mu      sync.RWMutex
	logger  *logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

type taskEntry struct {
	task    *Task
	status  TaskStatus
	nextRun time.Time
}

// New creates a new scheduler.
func New(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		tasks:  make(map[string]*taskEntry),
		logger: logger.WithComponent("scheduler"),
	}
}

// AddTask adds a task to the scheduler.
func (s *Scheduler) AddTask(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if task.Schedule == nil {
		return fmt.Errorf("task schedule is required")
	}
	if task.Func == nil {
		return fmt.Errorf("task function is required")
	}
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	entry := &taskEntry{
		task: task,
		status: TaskStatus{
			ID:   task.ID,
			Name: task.Name,
		},
	}
	entry.nextRun = task.Schedule.Next(clock.Now())
	entry.status.NextRun = entry.nextRun

	s.tasks[task.ID] = entry
	s.logger.Info("task added", "id", task.ID, "name", task.Name)
	return nil
}

// RunTask runs a task immediately, regardless of schedule.
func (s *Scheduler) RunTask(id string) error {
	s.mu.RLock()
	entry, exists := s.tasks[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("task %s not found", id)
	}

	go s.executeTask(entry)
	return nil
}

// GetStatus returns the status of all tasks, sorted by name.
func (s *Scheduler) GetStatus() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for _, entry := range s.tasks {
		statuses = append(statuses, entry.status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	s.mu.Unlock()

	s.logger.Info("scheduler started")

	s.mu.RLock()
	for _, entry := range s.tasks {
		if entry.task.RunOnStart {
			go s.executeTask(entry)
		}
	}
	s.mu.RUnlock()

	go s.run()
}

// Stop stops the scheduler and waits for running tasks to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// run is the main scheduler loop.
func (s *Scheduler) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.checkAndRunTasks(now)
		}
	}
}

// checkAndRunTasks runs every task whose next-run time has arrived. The
// next-run time is bumped before the task goroutine starts so a slow
// task is never double-dispatched by subsequent ticks.
func (s *Scheduler) checkAndRunTasks(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.tasks {
		if entry.nextRun.IsZero() || now.Before(entry.nextRun) {
			continue
		}
		entry.nextRun = entry.task.Schedule.Next(now)
		entry.status.NextRun = entry.nextRun
		go s.executeTask(entry)
	}
}

// executeTask runs a single task and records its outcome.
func (s *Scheduler) executeTask(entry *taskEntry) {
	s.wg.Add(1)
	defer s.wg.Done()

	task := entry.task
	s.logger.Debug("executing task", "id", task.ID)

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if task.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := clock.Now()
	err := task.Func(ctx)
	duration := clock.Since(start)

	s.mu.Lock()
	entry.status.LastRun = start
	entry.status.LastDuration = duration
	entry.status.RunCount++
	if err != nil {
		entry.status.LastError = err.Error()
		entry.status.ErrorCount++
		s.logger.Warn("task failed", "id", task.ID, "error", err, "duration", duration)
	} else {
		entry.status.LastError = ""
		s.logger.Debug("task completed", "id", task.ID, "duration", duration)
	}
	s.mu.Unlock()
}
