// Package restore applies stored snapshots to live packet-filter state.
package restore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"grimm.is/rampart/internal/logging"
	"grimm.is/rampart/internal/netfilter"
	"grimm.is/rampart/internal/snapshot"
)

// FamilyResult is the outcome of one address family's restore attempt.
type FamilyResult struct {
	Family netfilter.Family
	Err    error // nil on success
}

// Outcome reports what a restore run did. Set restoration happens before
// any rule restoration because rules may reference set names that must
// already exist.
type Outcome struct {
	// SetsSkipped is true when sets are enabled but no set snapshot
	// exists. A warning, not a failure.
	SetsSkipped bool
	// SetsErr is non-nil when set restoration itself failed. Rule
	// restores are not attempted in that case.
	SetsErr error
	// Families holds per-family results in processing order. Empty when
	// rule restores were not attempted.
	Families []FamilyResult
}

// FailedFamilies returns the families whose restore failed.
func (o Outcome) FailedFamilies() []FamilyResult {
	var failed []FamilyResult
	for _, fr := range o.Families {
		if fr.Err != nil {
			failed = append(failed, fr)
		}
	}
	return failed
}

// Clean reports whether the run completed with nothing to complain about.
// A skipped set snapshot is still clean.
func (o Outcome) Clean() bool {
	return o.SetsErr == nil && len(o.FailedFamilies()) == 0
}

// Restorer applies snapshots from a store to the live ruleset.
type Restorer struct {
	store       *snapshot.Store
	runner      netfilter.CommandRunner
	setsEnabled bool
	logger      *logging.Logger
}

// New creates a Restorer.
func New(store *snapshot.Store, runner netfilter.CommandRunner, setsEnabled bool, logger *logging.Logger) *Restorer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Restorer{
		store:       store,
		runner:      runner,
		setsEnabled: setsEnabled,
		logger:      logger.WithComponent("restore"),
	}
}

// Restore applies the stored set snapshot (when enabled) and then the rule
// snapshot for every address family. Per-family failures do not halt the
// other family: partial restoration is better than none. The whole run is
// idempotent, restoring an already-correct state leaves it unchanged.
func (r *Restorer) Restore(ctx context.Context) Outcome {
	var out Outcome

	if r.setsEnabled {
		data, err := r.store.LoadSets()
		switch {
		case err == nil:
			if err := netfilter.RestoreSets(r.runner, data); err != nil {
				r.logger.Error("set restore failed, rule restore not attempted", "error", err)
				out.SetsErr = err
				return out
			}
			r.logger.Info("set snapshot restored", "bytes", len(data))
		case errors.Is(err, os.ErrNotExist):
			r.logger.Warn("set snapshot missing, skipping set restore")
			out.SetsSkipped = true
		default:
			r.logger.Error("set restore failed, rule restore not attempted", "error", err)
			out.SetsErr = err
			return out
		}
	}

	for _, family := range netfilter.Families {
		if err := ctx.Err(); err != nil {
			out.Families = append(out.Families, FamilyResult{Family: family, Err: err})
			continue
		}
		out.Families = append(out.Families, FamilyResult{
			Family: family,
			Err:    r.restoreFamily(family),
		})
	}
	return out
}

func (r *Restorer) restoreFamily(family netfilter.Family) error {
	snap, err := r.store.Load(family)
	if err != nil {
		r.logger.Error("snapshot load failed", "family", family, "error", err)
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := netfilter.RestoreRules(r.runner, family, snap.Data); err != nil {
		r.logger.Error("rule restore failed", "family", family, "error", err)
		return err
	}
	r.logger.Info("ruleset restored", "family", family, "bytes", len(snap.Data))
	return nil
}
