// Package reconcile drives one full heal cycle:
// gate -> restore -> verify -> bounce -> re-verify -> report.
//
// Every step's failure is captured into the cycle's error set rather than
// aborting: partial remediation has real value, and nothing here is fatal
// to the process. Cycles never overlap; a trigger arriving mid-cycle is
// dropped with a logged skip.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"grimm.is/rampart/internal/audit"
	"grimm.is/rampart/internal/clock"
	"grimm.is/rampart/internal/logging"
	"grimm.is/rampart/internal/metrics"
	"grimm.is/rampart/internal/netfilter"
	"grimm.is/rampart/internal/restore"
	"grimm.is/rampart/internal/sysd"
)

// Probe detects whether the canary rule is present in live filter state.
type Probe interface {
	Present() (bool, error)
}

// Restorer applies stored snapshots to live state.
type Restorer interface {
	Restore(ctx context.Context) restore.Outcome
}

// Gater waits for the flush-prone dependency to settle.
type Gater interface {
	AwaitStable(ctx context.Context) bool
}

// SelfHealer re-asserts the reconciler's own trigger units.
type SelfHealer interface {
	Ensure(ctx context.Context)
}

// Alerter decides whether a cycle warrants notification and delivers it.
// It returns true when an alert was handed off.
type Alerter interface {
	HandleResult(ctx context.Context, res *Result) bool
}

// Recorder persists cycle results for later inspection.
type Recorder interface {
	Record(res *Result) error
}

// Options wires a Reconciler. Probe and Restorer are required; everything
// else is optional and skipped when nil or empty.
type Options struct {
	Probe      Probe
	Restorer   Restorer
	Gate       Gater
	Supervisor sysd.Supervisor // used for the bounce step
	BounceUnit string
	SelfHealer SelfHealer
	Alerter    Alerter
	Recorder   Recorder
	AuditLog   *audit.Log
	Clock      clock.Clock
	Logger     *logging.Logger
}

// Reconciler runs reconciliation cycles one at a time.
type Reconciler struct {
	opts   Options
	clk    clock.Clock
	logger *logging.Logger
	mu     sync.Mutex
}

// New creates a Reconciler.
func New(opts Options) (*Reconciler, error) {
	if opts.Probe == nil {
		return nil, fmt.Errorf("reconciler requires a canary probe")
	}
	if opts.Restorer == nil {
		return nil, fmt.Errorf("reconciler requires a restorer")
	}
	clk := opts.Clock
	if clk == nil {
		clk = &clock.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		opts:   opts,
		clk:    clk,
		logger: logger.WithComponent("reconcile"),
	}, nil
}

// RunCycle performs one reconciliation cycle and returns its result.
// It returns nil when another cycle is already in progress; the late
// trigger is dropped, not queued, and the skip is logged.
func (r *Reconciler) RunCycle(ctx context.Context) *Result {
	if !r.mu.TryLock() {
		r.logger.Warn("cycle already in progress, skipping trigger")
		r.auditLine("cycle skipped: previous cycle still running")
		metrics.Get().CyclesTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	defer r.mu.Unlock()

	res := &Result{
		CycleID:           uuid.NewString(),
		Started:           r.clk.Now(),
		CanaryBefore:      ProbeUnknown,
		CanaryPostRestore: ProbeUnknown,
		CanaryPostBounce:  ProbeUnknown,
	}
	log := r.logger.WithFields(map[string]any{"cycle": res.CycleID})
	log.Debug("cycle started")

	// The system heals its own supervision every cycle, independent of
	// whether a restore is needed.
	if r.opts.SelfHealer != nil {
		r.opts.SelfHealer.Ensure(ctx)
	}

	r.probePhase(ctx, res, log)
	if res.DriftDetected || res.CanaryBefore == ProbeUnknown {
		r.gatePhase(ctx, res, log)
		r.restorePhase(ctx, res, log)
		r.bouncePhase(ctx, res, log)
	}
	r.report(ctx, res, log)
	return res
}

func (r *Reconciler) probePhase(ctx context.Context, res *Result, log *logging.Logger) {
	present, err := r.opts.Probe.Present()
	switch {
	case err != nil:
		// Cannot determine state. Proceed with restore anyway: every
		// step is idempotent, restoring a correct state is a no-op.
		log.Error("canary probe failed", "error", err)
		res.Errors.Add(KindProbeError, "", err)
	case present:
		res.CanaryBefore = ProbePresent
		log.Info("no drift detected")
	default:
		res.CanaryBefore = ProbeAbsent
		res.DriftDetected = true
		log.Warn("drift detected: canary rule absent")
	}
}

func (r *Reconciler) gatePhase(ctx context.Context, res *Result, log *logging.Logger) {
	if r.opts.Gate == nil {
		return
	}
	res.GateRan = true
	res.GateSettled = r.opts.Gate.AwaitStable(ctx)
	if !res.GateSettled {
		// Logged, never fatal: restoring early beats waiting forever.
		res.Errors.Add(KindDependencyTimeout, "", nil)
	}
}

func (r *Reconciler) restorePhase(ctx context.Context, res *Result, log *logging.Logger) {
	res.RestoreRan = true
	out := r.opts.Restorer.Restore(ctx)

	if out.SetsSkipped {
		res.Errors.Add(KindSetRestoreSkipped, "", nil)
	}
	if out.SetsErr != nil {
		res.Errors.Add(KindSetRestoreFailed, "", out.SetsErr)
	}
	res.Families = out.Families
	for _, fr := range out.Families {
		if fr.Err != nil {
			res.Errors.Add(KindRestoreFailed, fr.Family, fr.Err)
		} else {
			metrics.Get().RestoresTotal.WithLabelValues(string(fr.Family), "success").Inc()
		}
	}
	for _, fr := range out.FailedFamilies() {
		metrics.Get().RestoresTotal.WithLabelValues(string(fr.Family), "failure").Inc()
	}

	// Verify: after a restore attempt, canary absence is an error, unlike
	// the pre-restore absence that triggered the cycle.
	present, err := r.opts.Probe.Present()
	switch {
	case err != nil:
		log.Error("post-restore canary probe failed", "error", err)
		res.Errors.Add(KindProbeError, "", err)
	case present:
		res.CanaryPostRestore = ProbePresent
		if res.DriftDetected && len(res.Errors.Alertable()) == 0 {
			log.Info("rules restored successfully")
		}
	default:
		res.CanaryPostRestore = ProbeAbsent
		res.Errors.Add(KindRestoreFailed, netfilter.FamilyV4,
			fmt.Errorf("canary rule still absent after restore"))
		log.Error("canary rule still absent after restore")
	}
}

func (r *Reconciler) bouncePhase(ctx context.Context, res *Result, log *logging.Logger) {
	unit := r.opts.BounceUnit
	if unit == "" || r.opts.Supervisor == nil {
		return
	}
	active, err := r.opts.Supervisor.IsActive(ctx, unit)
	if err != nil {
		log.Warn("auxiliary service state unknown, skipping bounce", "unit", unit, "error", err)
		return
	}
	if !active {
		log.Debug("auxiliary service not active, no bounce needed", "unit", unit)
		return
	}

	// The service rebuilds its own chains against the restored base
	// rules. A failed restart does not roll back the restore.
	res.BounceRan = true
	if err := r.opts.Supervisor.Restart(ctx, unit); err != nil {
		log.Error("auxiliary service restart failed", "unit", unit, "error", err)
		res.Errors.Add(KindBounceFailed, "", err)
		return
	}
	log.Info("auxiliary service restarted", "unit", unit)

	// Re-verify: the bounce is a second external process capable of
	// re-flushing. Absence here means the fix itself was undone.
	present, err := r.opts.Probe.Present()
	switch {
	case err != nil:
		log.Error("post-bounce canary probe failed", "error", err)
		res.Errors.Add(KindProbeError, "", err)
	case present:
		res.CanaryPostBounce = ProbePresent
	default:
		res.CanaryPostBounce = ProbeAbsent
		res.Errors.Add(KindPostBounceFlush, "",
			fmt.Errorf("canary rule absent after %s restart", unit))
		log.Error("ruleset flushed again by auxiliary service", "unit", unit)
		metrics.Get().PostBounceFlushTotal.Inc()
	}
}

func (r *Reconciler) report(ctx context.Context, res *Result, log *logging.Logger) {
	res.Finished = r.clk.Now()

	if r.opts.Alerter != nil {
		res.Alerted = r.opts.Alerter.HandleResult(ctx, res)
	}

	reg := metrics.Get()
	if res.DriftDetected {
		reg.DriftDetectedTotal.Inc()
	}
	if len(res.Errors.Alertable()) > 0 {
		reg.CyclesTotal.WithLabelValues("errors").Inc()
	} else {
		reg.CyclesTotal.WithLabelValues("clean").Inc()
	}
	if res.Alerted {
		reg.AlertsSentTotal.Inc()
	}
	reg.LastCycleTimestamp.Set(float64(res.Finished.Unix()))

	r.auditCycle(res)

	if r.opts.Recorder != nil {
		if err := r.opts.Recorder.Record(res); err != nil {
			log.Error("cycle history write failed", "error", err)
		}
	}

	log.Debug("cycle finished",
		"duration", res.Duration(),
		"drift", res.DriftDetected,
		"errors", len(res.Errors),
		"alerted", res.Alerted)
}

func (r *Reconciler) auditCycle(res *Result) {
	switch {
	case !res.DriftDetected && !res.RestoreRan && len(res.Errors) == 0:
		r.auditLine("cycle %s: no drift detected", res.CycleID)
	case res.Healed():
		r.auditLine("cycle %s: drift detected, rules restored successfully", res.CycleID)
	default:
		r.auditLine("cycle %s: drift=%v restored=%v bounced=%v alerted=%v",
			res.CycleID, res.DriftDetected, res.RestoreRan, res.BounceRan, res.Alerted)
	}
	for _, e := range res.Errors {
		r.auditLine("cycle %s: %s [%s]", res.CycleID, e.Error(), e.Kind.Severity())
	}
}

func (r *Reconciler) auditLine(format string, args ...any) {
	if r.opts.AuditLog == nil {
		return
	}
	if err := r.opts.AuditLog.Append(format, args...); err != nil {
		r.logger.Error("audit log write failed", "error", err)
	}
}
