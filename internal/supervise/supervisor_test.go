package supervise

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"

	"grimm.is/rampart/internal/config"
	"grimm.is/rampart/internal/sysd"
)

func testCfg() config.SupervisionConfig {
	return config.SupervisionConfig{
		BootUnit:  "rampart.service",
		TimerUnit: "rampart.timer",
	}
}

func TestEnsureAllHealthy(t *testing.T) {
	sup := new(sysd.MockSupervisor)
	sup.On("IsEnabled", mock.Anything, "rampart.service").Return(true, nil)
	sup.On("IsEnabled", mock.Anything, "rampart.timer").Return(true, nil)
	sup.On("IsActive", mock.Anything, "rampart.timer").Return(true, nil)

	New(sup, testCfg(), nil).Ensure(context.Background())

	sup.AssertExpectations(t)
	sup.AssertNotCalled(t, "Enable", mock.Anything, mock.Anything)
	sup.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestEnsureReenablesDisabledUnits(t *testing.T) {
	sup := new(sysd.MockSupervisor)
	sup.On("IsEnabled", mock.Anything, "rampart.service").Return(false, nil)
	sup.On("IsEnabled", mock.Anything, "rampart.timer").Return(false, nil)
	sup.On("Enable", mock.Anything, "rampart.service").Return(nil)
	sup.On("Enable", mock.Anything, "rampart.timer").Return(nil)
	sup.On("IsActive", mock.Anything, "rampart.timer").Return(true, nil)

	New(sup, testCfg(), nil).Ensure(context.Background())

	sup.AssertExpectations(t)
}

func TestEnsureRestartsStoppedTimer(t *testing.T) {
	sup := new(sysd.MockSupervisor)
	sup.On("IsEnabled", mock.Anything, mock.Anything).Return(true, nil)
	sup.On("IsActive", mock.Anything, "rampart.timer").Return(false, nil)
	sup.On("Start", mock.Anything, "rampart.timer").Return(nil)

	New(sup, testCfg(), nil).Ensure(context.Background())

	sup.AssertExpectations(t)
}

func TestEnsureSwallowsFailures(t *testing.T) {
	sup := new(sysd.MockSupervisor)
	sup.On("IsEnabled", mock.Anything, "rampart.service").Return(false, nil)
	sup.On("Enable", mock.Anything, "rampart.service").Return(errors.New("dbus unavailable"))
	sup.On("IsEnabled", mock.Anything, "rampart.timer").Return(false, errors.New("dbus unavailable"))
	sup.On("IsActive", mock.Anything, "rampart.timer").Return(false, nil)
	sup.On("Start", mock.Anything, "rampart.timer").Return(errors.New("dbus unavailable"))

	New(sup, testCfg(), nil).Ensure(context.Background())

	sup.AssertExpectations(t)
}

func TestQueryErrorSkipsStart(t *testing.T) {
	sup := new(sysd.MockSupervisor)
	sup.On("IsEnabled", mock.Anything, mock.Anything).Return(true, nil)
	sup.On("IsActive", mock.Anything, "rampart.timer").Return(false, errors.New("no bus"))

	New(sup, testCfg(), nil).Ensure(context.Background())

	sup.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}
