// Package cmd implements the rampart subcommands.
package cmd

import (
	"context"
	"fmt"

	"grimm.is/rampart/internal/alert"
	"grimm.is/rampart/internal/audit"
	"grimm.is/rampart/internal/canary"
	"grimm.is/rampart/internal/clock"
	"grimm.is/rampart/internal/config"
	"grimm.is/rampart/internal/gate"
	"grimm.is/rampart/internal/history"
	"grimm.is/rampart/internal/logging"
	"grimm.is/rampart/internal/netfilter"
	"grimm.is/rampart/internal/reconcile"
	"grimm.is/rampart/internal/restore"
	"grimm.is/rampart/internal/snapshot"
	"grimm.is/rampart/internal/supervise"
	"grimm.is/rampart/internal/sysd"
)

// App holds every wired component for a running subcommand.
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Audit      *audit.Log
	Snapshots  *snapshot.Store
	History    *history.Store
	Supervisor *sysd.SystemdSupervisor
	Reconciler *reconcile.Reconciler
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.Supervisor != nil {
		a.Supervisor.Close()
	}
	if a.History != nil {
		a.History.Close()
	}
	if a.Audit != nil {
		a.Audit.Close()
	}
}

// setup loads configuration and wires the full reconciler stack. The
// systemd connection is best-effort: without it the gate, bounce and
// self-supervision steps are skipped, but probe and restore still work.
func setup(ctx context.Context, configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger := logging.Default()
	clk := &clock.RealClock{}
	runner := netfilter.DefaultCommandRunner

	auditLog, err := audit.Open(cfg.AuditLog, clk)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	histStore, err := history.NewStore(cfg.HistoryDB, 90)
	if err != nil {
		auditLog.Close()
		return nil, fmt.Errorf("open history store: %w", err)
	}

	table, err := netfilter.NewRuleTable(netfilter.FamilyV4)
	if err != nil {
		histStore.Close()
		auditLog.Close()
		return nil, fmt.Errorf("init iptables handle: %w", err)
	}
	probe := canary.NewProbe(table, *cfg.Canary)

	store := snapshot.NewStore(cfg.StateDir)
	setsEnabled := cfg.Sets != nil && cfg.Sets.Enabled
	restorer := restore.New(store, runner, setsEnabled, logger)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Audit:     auditLog,
		Snapshots: store,
		History:   histStore,
	}

	opts := reconcile.Options{
		Probe:    probe,
		Restorer: restorer,
		AuditLog: auditLog,
		Recorder: histStore,
		Clock:    clk,
		Logger:   logger,
	}

	sup, err := sysd.Connect(ctx)
	if err != nil {
		logger.Warn("systemd unavailable, gate/bounce/supervision disabled", "error", err)
	} else {
		app.Supervisor = sup
		opts.Supervisor = sup
		opts.SelfHealer = supervise.New(sup, *cfg.Supervision, logger)
		if cfg.Gate != nil {
			opts.Gate = gate.New(sup, clk, gate.Config{
				Service:      cfg.Gate.Service,
				PollInterval: cfg.Gate.GatePollInterval(),
				MaxWait:      cfg.Gate.GateMaxWait(),
				SettleDelay:  cfg.Gate.GateSettleDelay(),
			}, logger)
		}
		if cfg.Bounce != nil {
			opts.BounceUnit = cfg.Bounce.Service
		}
	}

	var dispatcher *alert.Dispatcher
	if cfg.Notifications != nil {
		dispatcher = alert.NewDispatcher(cfg.Notifications, runner, logger)
	}
	opts.Alerter = alert.NewSink(dispatcher, "", clk, logger)

	rec, err := reconcile.New(opts)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Reconciler = rec
	return app, nil
}
