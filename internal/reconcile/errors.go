package reconcile

import (
	"fmt"
	"strings"

	"grimm.is/rampart/internal/netfilter"
)

// Kind classifies a condition captured during a cycle. Every kind reaches
// the audit log; only alertable kinds reach the operator.
type Kind string

const (
	// KindProbeError means the canary state could not be determined at
	// all, which is distinct from the canary being absent.
	KindProbeError Kind = "probe_error"
	// KindRestoreFailed means one family's ruleset could not be restored.
	KindRestoreFailed Kind = "restore_failed"
	// KindSetRestoreFailed means the named-set snapshot failed to apply;
	// rule restores were not attempted behind it.
	KindSetRestoreFailed Kind = "set_restore_failed"
	// KindSetRestoreSkipped means sets are enabled but no set snapshot
	// exists. A warning, not a failure.
	KindSetRestoreSkipped Kind = "set_restore_skipped"
	// KindDependencyTimeout means the gated dependency never became
	// active within the bound. Non-fatal; restore proceeded anyway.
	KindDependencyTimeout Kind = "dependency_timeout"
	// KindBounceFailed means the auxiliary service restart failed.
	KindBounceFailed Kind = "bounce_failed"
	// KindPostBounceFlush means the canary vanished again after the
	// bounce: the auxiliary service destroyed the fix. Most severe.
	KindPostBounceFlush Kind = "post_bounce_flush"
)

// Alertable reports whether this kind alone justifies notifying the
// operator. Ordinary healed drift and bounded-wait timeouts never alert,
// to avoid alert fatigue.
func (k Kind) Alertable() bool {
	switch k {
	case KindProbeError, KindRestoreFailed, KindSetRestoreFailed, KindBounceFailed, KindPostBounceFlush:
		return true
	}
	return false
}

// Severity maps the kind onto a notification level.
func (k Kind) Severity() string {
	switch k {
	case KindPostBounceFlush:
		return "critical"
	case KindSetRestoreSkipped, KindDependencyTimeout:
		return "info"
	default:
		return "warning"
	}
}

// CycleError is one tagged condition in a cycle's error set.
type CycleError struct {
	Kind   Kind
	Family netfilter.Family // set for family-scoped kinds, empty otherwise
	Err    error            // underlying cause, may be nil for e.g. timeouts
}

func (e CycleError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Family != "" {
		fmt.Fprintf(&b, "(%s)", e.Family)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e CycleError) Unwrap() error {
	return e.Err
}

// ErrorSet accumulates every step's conditions; no step failure aborts
// the cycle.
type ErrorSet []CycleError

// Add appends a condition.
func (s *ErrorSet) Add(kind Kind, family netfilter.Family, err error) {
	*s = append(*s, CycleError{Kind: kind, Family: family, Err: err})
}

// Has reports whether any condition of the given kind is present.
func (s ErrorSet) Has(kind Kind) bool {
	for _, e := range s {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Alertable returns the subset of conditions that warrant notification.
func (s ErrorSet) Alertable() ErrorSet {
	var out ErrorSet
	for _, e := range s {
		if e.Kind.Alertable() {
			out = append(out, e)
		}
	}
	return out
}

// MaxSeverity returns the highest severity present, or "info" if empty.
func (s ErrorSet) MaxSeverity() string {
	rank := map[string]int{"info": 0, "warning": 1, "critical": 2}
	max := "info"
	for _, e := range s {
		if sev := e.Kind.Severity(); rank[sev] > rank[max] {
			max = sev
		}
	}
	return max
}
