// Package supervise keeps the reconciler itself alive. Every cycle it
// re-asserts that the boot unit is enabled and the timer unit is running,
// so a stopped or masked timer is repaired the next time any cycle fires.
package supervise

import (
	"context"

	"grimm.is/rampart/internal/config"
	"grimm.is/rampart/internal/logging"
	"grimm.is/rampart/internal/sysd"
)

// SelfSupervisor re-enables and restarts the units that schedule the
// reconciler. All failures are logged and swallowed; self-repair must
// never prevent the cycle it runs inside from proceeding.
type SelfSupervisor struct {
	sup    sysd.Supervisor
	cfg    config.SupervisionConfig
	logger *logging.Logger
}

func New(sup sysd.Supervisor, cfg config.SupervisionConfig, logger *logging.Logger) *SelfSupervisor {
	if logger == nil {
		logger = logging.Default()
	}
	return &SelfSupervisor{
		sup:    sup,
		cfg:    cfg,
		logger: logger.WithComponent("supervise"),
	}
}

// EnsureRegistered enables the boot and timer units when they are not
// already enabled for boot.
func (s *SelfSupervisor) EnsureRegistered(ctx context.Context) {
	for _, unit := range []string{s.cfg.BootUnit, s.cfg.TimerUnit} {
		if unit == "" {
			continue
		}
		enabled, err := s.sup.IsEnabled(ctx, unit)
		if err != nil {
			s.logger.Warn("could not query unit file state", "unit", unit, "error", err)
			continue
		}
		if enabled {
			continue
		}
		s.logger.Warn("unit not enabled for boot, re-enabling", "unit", unit)
		if err := s.sup.Enable(ctx, unit); err != nil {
			s.logger.Error("failed to enable unit", "unit", unit, "error", err)
		}
	}
}

// EnsureRunning starts the timer unit if it is not active.
func (s *SelfSupervisor) EnsureRunning(ctx context.Context) {
	unit := s.cfg.TimerUnit
	if unit == "" {
		return
	}
	active, err := s.sup.IsActive(ctx, unit)
	if err != nil {
		s.logger.Warn("could not query unit state", "unit", unit, "error", err)
		return
	}
	if active {
		return
	}
	s.logger.Warn("timer unit not running, restarting", "unit", unit)
	if err := s.sup.Start(ctx, unit); err != nil {
		s.logger.Error("failed to start timer unit", "unit", unit, "error", err)
	}
}

// Ensure implements the reconciler's SelfHealer contract.
func (s *SelfSupervisor) Ensure(ctx context.Context) {
	if s.sup == nil {
		return
	}
	s.EnsureRegistered(ctx)
	s.EnsureRunning(ctx)
}
