package sysd

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSupervisor is a mock implementation of Supervisor for testing.
// It lives outside _test.go so other packages' tests can use it.
type MockSupervisor struct {
	mock.Mock
}

func (m *MockSupervisor) IsActive(ctx context.Context, unit string) (bool, error) {
	result := m.Called(ctx, unit)
	return result.Bool(0), result.Error(1)
}

func (m *MockSupervisor) IsEnabled(ctx context.Context, unit string) (bool, error) {
	result := m.Called(ctx, unit)
	return result.Bool(0), result.Error(1)
}

func (m *MockSupervisor) Start(ctx context.Context, unit string) error {
	return m.Called(ctx, unit).Error(0)
}

func (m *MockSupervisor) Restart(ctx context.Context, unit string) error {
	return m.Called(ctx, unit).Error(0)
}

func (m *MockSupervisor) Enable(ctx context.Context, unit string) error {
	return m.Called(ctx, unit).Error(0)
}
