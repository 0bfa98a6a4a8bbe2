package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rampart/internal/clock"
	"grimm.is/rampart/internal/netfilter"
	"grimm.is/rampart/internal/reconcile"
)

func testSink() *Sink {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewSink(nil, "fw-gw01", clk, nil)
}

func TestDecideSuppressesHealedCycle(t *testing.T) {
	res := &reconcile.Result{DriftDetected: true, RestoreRan: true}
	assert.Nil(t, testSink().Decide(res))
}

func TestDecideSuppressesWarningsOnly(t *testing.T) {
	res := &reconcile.Result{DriftDetected: true, RestoreRan: true}
	res.Errors.Add(reconcile.KindDependencyTimeout, "", nil)
	res.Errors.Add(reconcile.KindSetRestoreSkipped, "", nil)

	assert.Nil(t, testSink().Decide(res))
}

func TestDecideOnRestoreFailure(t *testing.T) {
	res := &reconcile.Result{CycleID: "c-1", DriftDetected: true, RestoreRan: true}
	res.Errors.Add(reconcile.KindRestoreFailed, netfilter.FamilyV4, errors.New("no such file"))

	report := testSink().Decide(res)
	require.NotNil(t, report)
	assert.Equal(t, "fw-gw01", report.Host)
	assert.Equal(t, "warning", report.Severity)
	assert.Contains(t, report.Body(), "restore_failed(v4)")
	assert.Contains(t, report.Body(), "Action required")
}

func TestDecideElevatesPostBounceFlush(t *testing.T) {
	res := &reconcile.Result{CycleID: "c-2", DriftDetected: true, RestoreRan: true, BounceRan: true}
	res.Errors.Add(reconcile.KindPostBounceFlush, "", errors.New("canary absent after fail2ban.service restart"))

	report := testSink().Decide(res)
	require.NotNil(t, report)
	assert.Equal(t, "critical", report.Severity)
	assert.Contains(t, report.Subject(), "CRITICAL")
	assert.Contains(t, report.Body(), "flushed AGAIN")
}

func TestHandleResultReturnsDecision(t *testing.T) {
	sink := testSink()

	clean := &reconcile.Result{DriftDetected: true, RestoreRan: true}
	assert.False(t, sink.HandleResult(context.Background(), clean))

	failed := &reconcile.Result{DriftDetected: true, RestoreRan: true}
	failed.Errors.Add(reconcile.KindRestoreFailed, netfilter.FamilyV6, errors.New("boom"))
	assert.True(t, sink.HandleResult(context.Background(), failed))
}
