package netfilter

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"
)

// RuleTable exposes the rule-level query and insert primitives on a single
// address family. It exists so the canary probe can be tested without a
// kernel; the production implementation wraps coreos/go-iptables.
type RuleTable interface {
	// Exists reports whether an exact-match rule is present.
	Exists(table, chain string, rulespec ...string) (bool, error)
	// Insert places a rule at the given 1-based position.
	Insert(table, chain string, pos int, rulespec ...string) error
}

// NewRuleTable returns a RuleTable for the given family backed by the
// system's iptables binaries.
func NewRuleTable(family Family) (RuleTable, error) {
	proto := iptables.ProtocolIPv4
	switch family {
	case FamilyV4:
	case FamilyV6:
		proto = iptables.ProtocolIPv6
	default:
		return nil, fmt.Errorf("unknown address family %q", family)
	}
	ipt, err := iptables.NewWithProtocol(proto)
	if err != nil {
		return nil, fmt.Errorf("init iptables handle: %w", err)
	}
	return ipt, nil
}

// SaveRules captures the complete live ruleset for one family as opaque bytes.
func SaveRules(runner CommandRunner, family Family) ([]byte, error) {
	bin, err := family.saveBinary()
	if err != nil {
		return nil, err
	}
	out, err := runner.Output(bin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bin, err)
	}
	return out, nil
}

// RestoreRules atomically replaces the full live ruleset for one family.
// iptables-restore commits the whole table or leaves prior state untouched.
func RestoreRules(runner CommandRunner, family Family, data []byte) error {
	bin, err := family.restoreBinary()
	if err != nil {
		return err
	}
	if err := runner.RunInput(string(data), bin); err != nil {
		return fmt.Errorf("%s: %w", bin, err)
	}
	return nil
}

// SaveSets captures all named-set membership data.
func SaveSets(runner CommandRunner) ([]byte, error) {
	out, err := runner.Output("ipset", "save")
	if err != nil {
		return nil, fmt.Errorf("ipset save: %w", err)
	}
	return out, nil
}

// RestoreSets replays a named-set snapshot. -exist makes the replay
// idempotent when sets already exist.
func RestoreSets(runner CommandRunner, data []byte) error {
	if err := runner.RunInput(string(data), "ipset", "restore", "-exist"); err != nil {
		return fmt.Errorf("ipset restore: %w", err)
	}
	return nil
}
