package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"grimm.is/rampart/internal/metrics"
	"grimm.is/rampart/internal/scheduler"
)

// RunDaemon runs the reconciler as a long-lived process, cycling on the
// configured interval until SIGINT or SIGTERM.
func RunDaemon(ctx context.Context, configFile string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup(ctx, configFile)
	if err != nil {
		return err
	}
	defer app.Close()

	interval, err := app.Config.CycleInterval()
	if err != nil {
		return err
	}

	sched := scheduler.New(app.Logger)
	cycle := func(ctx context.Context) error {
		res := app.Reconciler.RunCycle(ctx)
		if res == nil {
			return nil // overlapping trigger, already logged
		}
		if alertable := res.Errors.Alertable(); len(alertable) > 0 {
			return alertable[0]
		}
		return nil
	}
	if err := sched.AddTask(scheduler.NewReconcileTask(cycle, interval)); err != nil {
		return err
	}
	if err := sched.AddTask(scheduler.NewHistoryPruneTask(app.History.Prune)); err != nil {
		return err
	}

	var metricsSrv *http.Server
	if app.Config.Metrics != nil && app.Config.Metrics.Enabled {
		listen := app.Config.Metrics.Listen
		if listen == "" {
			listen = "127.0.0.1:9477"
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: listen, Handler: mux}
		go func() {
			app.Logger.Info("metrics endpoint listening", "addr", listen)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.Logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	app.Logger.Info("daemon started", "interval", interval)
	sched.Start()

	<-ctx.Done()
	app.Logger.Info("shutting down")

	sched.Stop()
	if metricsSrv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}
	return nil
}
