// Package canary maintains the liveness rule used for drift detection.
//
// The canary is a single inert rule: it matches a fixed non-routable source
// address, carries an identifying comment, and accepts (so it can never
// black-hole traffic even if the address were ever seen). Its presence is
// the evidence that no flush has occurred since it was last inserted; once
// saved it is part of every rule snapshot, so restoring a snapshot
// re-establishes it by construction.
package canary

import (
	"fmt"

	"grimm.is/rampart/internal/config"
	"grimm.is/rampart/internal/netfilter"
)

const filterTable = "filter"

// Probe queries and inserts the canary rule on the IPv4 filter table.
type Probe struct {
	table netfilter.RuleTable
	cfg   config.CanaryConfig
}

// NewProbe creates a probe over the given rule table.
func NewProbe(table netfilter.RuleTable, cfg config.CanaryConfig) *Probe {
	return &Probe{table: table, cfg: cfg}
}

// RuleSpec returns the exact rule specification of the canary.
func (p *Probe) RuleSpec() []string {
	return []string{
		"-s", p.cfg.Source,
		"-m", "comment", "--comment", p.cfg.Comment,
		"-j", "ACCEPT",
	}
}

// Present reports whether the canary rule exists in live filter state.
// It never mutates state. A query-mechanism failure is returned as an
// error, distinct from a clean "absent" result.
func (p *Probe) Present() (bool, error) {
	present, err := p.table.Exists(filterTable, p.cfg.Chain, p.RuleSpec()...)
	if err != nil {
		return false, fmt.Errorf("query canary rule: %w", err)
	}
	return present, nil
}

// Insert places the canary at its fixed position. Inserting an already
// present canary is a no-op.
func (p *Probe) Insert() error {
	present, err := p.table.Exists(filterTable, p.cfg.Chain, p.RuleSpec()...)
	if err != nil {
		return fmt.Errorf("query canary rule: %w", err)
	}
	if present {
		return nil
	}
	if err := p.table.Insert(filterTable, p.cfg.Chain, p.cfg.Position, p.RuleSpec()...); err != nil {
		return fmt.Errorf("insert canary rule: %w", err)
	}
	return nil
}
