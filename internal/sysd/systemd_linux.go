//go:build linux

package sysd

import (
	"context"
	"fmt"

	systemd "github.com/coreos/go-systemd/v22/dbus"
)

// SystemdSupervisor manages units over the system D-Bus.
type SystemdSupervisor struct {
	conn *systemd.Conn
}

// Connect opens a connection to the system bus.
func Connect(ctx context.Context) (*SystemdSupervisor, error) {
	conn, err := systemd.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &SystemdSupervisor{conn: conn}, nil
}

// Close releases the D-Bus connection.
func (s *SystemdSupervisor) Close() {
	s.conn.Close()
}

// IsActive reports whether the unit's ActiveState is "active".
func (s *SystemdSupervisor) IsActive(ctx context.Context, unit string) (bool, error) {
	props, err := s.conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return false, fmt.Errorf("query unit %s: %w", unit, err)
	}
	state, _ := props["ActiveState"].(string)
	return state == "active", nil
}

// IsEnabled reports whether the unit file is enabled.
func (s *SystemdSupervisor) IsEnabled(ctx context.Context, unit string) (bool, error) {
	state, err := s.conn.GetUnitFileStateContext(ctx, unit)
	if err != nil {
		return false, fmt.Errorf("query unit file %s: %w", unit, err)
	}
	return state == "enabled" || state == "enabled-runtime", nil
}

// Start starts the unit and waits for the job result.
func (s *SystemdSupervisor) Start(ctx context.Context, unit string) error {
	return s.runJob(ctx, unit, "start", s.conn.StartUnitContext)
}

// Restart restarts the unit and waits for the job result.
func (s *SystemdSupervisor) Restart(ctx context.Context, unit string) error {
	return s.runJob(ctx, unit, "restart", s.conn.RestartUnitContext)
}

// Enable enables the unit file persistently.
func (s *SystemdSupervisor) Enable(ctx context.Context, unit string) error {
	if _, _, err := s.conn.EnableUnitFilesContext(ctx, []string{unit}, false, true); err != nil {
		return fmt.Errorf("enable unit %s: %w", unit, err)
	}
	return nil
}

type jobFunc func(ctx context.Context, name string, mode string, ch chan<- string) (int, error)

func (s *SystemdSupervisor) runJob(ctx context.Context, unit, verb string, fn jobFunc) error {
	done := make(chan string, 1)
	if _, err := fn(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("%s unit %s: %w", verb, unit, err)
	}
	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("%s unit %s: job result %q", verb, unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
