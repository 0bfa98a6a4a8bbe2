package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"grimm.is/rampart/internal/netfilter"
)

func TestKindAlertable(t *testing.T) {
	alertable := []Kind{KindProbeError, KindRestoreFailed, KindSetRestoreFailed, KindBounceFailed, KindPostBounceFlush}
	for _, k := range alertable {
		assert.True(t, k.Alertable(), "%s should be alertable", k)
	}

	quiet := []Kind{KindSetRestoreSkipped, KindDependencyTimeout}
	for _, k := range quiet {
		assert.False(t, k.Alertable(), "%s should not be alertable", k)
	}
}

func TestKindSeverity(t *testing.T) {
	assert.Equal(t, "critical", KindPostBounceFlush.Severity())
	assert.Equal(t, "warning", KindRestoreFailed.Severity())
	assert.Equal(t, "info", KindDependencyTimeout.Severity())
}

func TestCycleErrorString(t *testing.T) {
	e := CycleError{Kind: KindRestoreFailed, Family: netfilter.FamilyV4, Err: errors.New("no such file")}
	assert.Equal(t, "restore_failed(v4): no such file", e.Error())

	bare := CycleError{Kind: KindDependencyTimeout}
	assert.Equal(t, "dependency_timeout", bare.Error())
}

func TestErrorSetHelpers(t *testing.T) {
	var s ErrorSet
	s.Add(KindDependencyTimeout, "", nil)
	s.Add(KindRestoreFailed, netfilter.FamilyV4, errors.New("boom"))
	s.Add(KindPostBounceFlush, "", errors.New("gone again"))

	assert.True(t, s.Has(KindRestoreFailed))
	assert.False(t, s.Has(KindProbeError))
	assert.Len(t, s.Alertable(), 2)
	assert.Equal(t, "critical", s.MaxSeverity())
}

func TestErrorSetMaxSeverityEmpty(t *testing.T) {
	var s ErrorSet
	assert.Equal(t, "info", s.MaxSeverity())
}
