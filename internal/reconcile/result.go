package reconcile

import (
	"time"

	"grimm.is/rampart/internal/restore"
)

// ProbeState is the tri-state outcome of a canary probe.
type ProbeState string

const (
	ProbeUnknown ProbeState = "unknown"
	ProbePresent ProbeState = "present"
	ProbeAbsent  ProbeState = "absent"
)

// Result is the per-cycle record. Created fresh each cycle, consumed by
// the alert sink, the audit log and the history store; never mutated
// after Reporting.
type Result struct {
	CycleID  string
	Started  time.Time
	Finished time.Time

	// Probe states through the cycle. CanaryBefore absent is the drift
	// trigger, not an error. PostRestore and PostBounce are only set when
	// those phases ran.
	CanaryBefore      ProbeState
	CanaryPostRestore ProbeState
	CanaryPostBounce  ProbeState

	// DriftDetected is true when the pre-cycle probe found the canary
	// absent.
	DriftDetected bool

	// GateRan/GateSettled report the dependency wait. GateSettled false
	// with GateRan true means the bound elapsed.
	GateRan     bool
	GateSettled bool

	// RestoreRan is true when the restore phase was entered. Families
	// holds the per-family outcomes from that phase.
	RestoreRan bool
	Families   []restore.FamilyResult

	// BounceRan is true when the auxiliary service was restarted.
	BounceRan bool

	// Errors is the cycle's accumulated error set.
	Errors ErrorSet

	// Alerted records the final decision of the alert sink.
	Alerted bool
}

// Duration returns how long the cycle took.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Healed reports a cycle that detected drift and fixed it without any
// alertable condition.
func (r *Result) Healed() bool {
	return r.DriftDetected && r.RestoreRan && len(r.Errors.Alertable()) == 0
}
