package cmd

import (
	"context"
	"fmt"
)

// RunCycle executes a single reconciliation cycle and exits. This is the
// entry point used by the systemd timer.
func RunCycle(ctx context.Context, configFile string) error {
	app, err := setup(ctx, configFile)
	if err != nil {
		return err
	}
	defer app.Close()

	res := app.Reconciler.RunCycle(ctx)
	if res == nil {
		return fmt.Errorf("cycle skipped: another cycle is in progress")
	}
	if alertable := res.Errors.Alertable(); len(alertable) > 0 {
		return fmt.Errorf("cycle finished with %d error(s): %s", len(alertable), alertable[0].Error())
	}
	return nil
}
