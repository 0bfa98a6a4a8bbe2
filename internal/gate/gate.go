// Package gate holds restore back until a flush-prone dependency has
// settled. The dependency (a VPN daemon in the reference deployment)
// rewrites filter state during its own startup; restoring underneath it
// would be undone moments later.
package gate

import (
	"context"
	"time"

	"grimm.is/rampart/internal/clock"
	"grimm.is/rampart/internal/logging"
	"grimm.is/rampart/internal/sysd"
)

// Config bounds the wait.
type Config struct {
	Service      string
	PollInterval time.Duration
	MaxWait      time.Duration
	SettleDelay  time.Duration
}

// Gate waits, bounded, for a dependency unit to become active.
type Gate struct {
	sup    sysd.Supervisor
	clk    clock.Clock
	cfg    Config
	logger *logging.Logger
}

// New creates a Gate. A nil clock uses the real one.
func New(sup sysd.Supervisor, clk clock.Clock, cfg Config, logger *logging.Logger) *Gate {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{
		sup:    sup,
		clk:    clk,
		cfg:    cfg,
		logger: logger.WithComponent("gate"),
	}
}

// AwaitStable polls the dependency until it reports active, then waits one
// settle delay for its startup-time filter mutation to finish. It returns
// false, never an error, when MaxWait elapses first: the caller proceeds
// with restore regardless, because waiting forever is worse than restoring
// early and re-checking next cycle.
func (g *Gate) AwaitStable(ctx context.Context) bool {
	deadline := g.clk.Now().Add(g.cfg.MaxWait)

	for {
		active, err := g.sup.IsActive(ctx, g.cfg.Service)
		if err != nil {
			g.logger.Warn("dependency state query failed", "service", g.cfg.Service, "error", err)
		} else if active {
			g.logger.Debug("dependency active, settling", "service", g.cfg.Service, "delay", g.cfg.SettleDelay)
			if err := g.clk.Sleep(ctx, g.cfg.SettleDelay); err != nil {
				return false
			}
			return true
		}

		if !g.clk.Now().Add(g.cfg.PollInterval).Before(deadline) {
			g.logger.Warn("dependency never became active within bound",
				"service", g.cfg.Service, "max_wait", g.cfg.MaxWait)
			return false
		}
		if err := g.clk.Sleep(ctx, g.cfg.PollInterval); err != nil {
			return false
		}
	}
}
