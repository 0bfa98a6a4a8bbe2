//go:build !linux

package sysd

import (
	"context"
	"fmt"
)

// SystemdSupervisor is not available off Linux.
type SystemdSupervisor struct{}

// Connect fails on non-Linux platforms.
func Connect(ctx context.Context) (*SystemdSupervisor, error) {
	return nil, fmt.Errorf("systemd is only available on Linux")
}

func (s *SystemdSupervisor) Close() {}

func (s *SystemdSupervisor) IsActive(ctx context.Context, unit string) (bool, error) {
	return false, fmt.Errorf("systemd is only available on Linux")
}

func (s *SystemdSupervisor) IsEnabled(ctx context.Context, unit string) (bool, error) {
	return false, fmt.Errorf("systemd is only available on Linux")
}

func (s *SystemdSupervisor) Start(ctx context.Context, unit string) error {
	return fmt.Errorf("systemd is only available on Linux")
}

func (s *SystemdSupervisor) Restart(ctx context.Context, unit string) error {
	return fmt.Errorf("systemd is only available on Linux")
}

func (s *SystemdSupervisor) Enable(ctx context.Context, unit string) error {
	return fmt.Errorf("systemd is only available on Linux")
}
