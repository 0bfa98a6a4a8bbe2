// Package sysd is the handle onto the host process supervisor (systemd).
// The dependency gate, the bounce step and the self-supervisor all go
// through the Supervisor interface so they can be tested without D-Bus.
package sysd

import "context"

// Supervisor exposes the unit operations the reconciler needs.
type Supervisor interface {
	// IsActive reports whether the unit's ActiveState is "active".
	IsActive(ctx context.Context, unit string) (bool, error)
	// IsEnabled reports whether the unit file is enabled for boot.
	IsEnabled(ctx context.Context, unit string) (bool, error)
	// Start starts the unit and waits for the job to finish.
	Start(ctx context.Context, unit string) error
	// Restart restarts the unit and waits for the job to finish.
	Restart(ctx context.Context, unit string) error
	// Enable enables the unit file for boot.
	Enable(ctx context.Context, unit string) error
}
