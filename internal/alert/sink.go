// Package alert decides when a cycle warrants operator notification and
// formats the report. Delivery goes through the Dispatcher; delivery
// failures are logged and never retried.
package alert

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"grimm.is/rampart/internal/clock"
	"grimm.is/rampart/internal/logging"
	"grimm.is/rampart/internal/reconcile"
)

// Report is a formatted, human-readable account of a failed cycle.
type Report struct {
	Host      string
	Timestamp time.Time
	Severity  string
	CycleID   string
	Errors    reconcile.ErrorSet
}

// Subject returns a one-line summary suitable for a mail subject.
func (r *Report) Subject() string {
	if r.Severity == "critical" {
		return fmt.Sprintf("[%s] CRITICAL: firewall self-heal is being undone", r.Host)
	}
	return fmt.Sprintf("[%s] firewall reconciliation errors", r.Host)
}

// Body returns the full report text.
func (r *Report) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Host:     %s\n", r.Host)
	fmt.Fprintf(&b, "Time:     %s\n", r.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Cycle:    %s\n", r.CycleID)
	fmt.Fprintf(&b, "Severity: %s\n\n", r.Severity)

	if r.Errors.Has(reconcile.KindPostBounceFlush) {
		b.WriteString("The restored ruleset was flushed AGAIN by an auxiliary service\n")
		b.WriteString("after reconciliation completed. Automatic healing cannot converge\n")
		b.WriteString("while that service keeps destroying the base rules.\n\n")
	}

	b.WriteString("Errors:\n")
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  - %s\n", e.Error())
	}

	b.WriteString("\nAction required: inspect the audit log and the snapshot files,\n")
	b.WriteString("then run a manual reconcile cycle to confirm convergence.\n")
	return b.String()
}

// Sink owns the alert decision. It alerts only on true error conditions,
// never on an ordinary drift-detected-and-healed cycle.
type Sink struct {
	dispatcher *Dispatcher
	host       string
	clk        clock.Clock
	logger     *logging.Logger
}

// NewSink creates a Sink. A nil hostname is resolved from the OS.
func NewSink(dispatcher *Dispatcher, host string, clk clock.Clock, logger *logging.Logger) *Sink {
	if host == "" {
		host, _ = os.Hostname()
	}
	if clk == nil {
		clk = &clock.RealClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sink{
		dispatcher: dispatcher,
		host:       host,
		clk:        clk,
		logger:     logger.WithComponent("alert"),
	}
}

// Decide returns a Report when the cycle's error set contains alertable
// conditions, nil otherwise.
func (s *Sink) Decide(res *reconcile.Result) *Report {
	alertable := res.Errors.Alertable()
	if len(alertable) == 0 {
		return nil
	}
	return &Report{
		Host:      s.host,
		Timestamp: s.clk.Now(),
		Severity:  res.Errors.MaxSeverity(),
		CycleID:   res.CycleID,
		Errors:    alertable,
	}
}

// HandleResult implements the reconciler's Alerter contract: decide, and
// on a positive decision hand the report to every configured channel.
func (s *Sink) HandleResult(ctx context.Context, res *reconcile.Result) bool {
	report := s.Decide(res)
	if report == nil {
		return false
	}
	s.logger.Warn("raising alert", "severity", report.Severity, "errors", len(report.Errors))
	if s.dispatcher != nil {
		s.dispatcher.Send(ctx, Notification{
			Title:     report.Subject(),
			Message:   report.Body(),
			Level:     report.Severity,
			Timestamp: report.Timestamp,
		})
	}
	return true
}
