package cmd

import (
	"context"
	"fmt"

	"grimm.is/rampart/internal/canary"
	"grimm.is/rampart/internal/netfilter"
)

// RunSave captures the current ruleset as the known-good snapshot. The
// canary rule is inserted first so the snapshot always contains it; a
// snapshot without the canary would make every future cycle detect
// drift that a restore cannot heal.
func RunSave(ctx context.Context, configFile string) error {
	app, err := setup(ctx, configFile)
	if err != nil {
		return err
	}
	defer app.Close()

	table, err := netfilter.NewRuleTable(netfilter.FamilyV4)
	if err != nil {
		return fmt.Errorf("init iptables handle: %w", err)
	}
	probe := canary.NewProbe(table, *app.Config.Canary)
	if err := probe.Insert(); err != nil {
		return fmt.Errorf("insert canary rule: %w", err)
	}

	runner := netfilter.DefaultCommandRunner
	for _, family := range netfilter.Families {
		data, err := netfilter.SaveRules(runner, family)
		if err != nil {
			return fmt.Errorf("save %s rules: %w", family, err)
		}
		if err := app.Snapshots.Write(family, data); err != nil {
			return fmt.Errorf("write %s snapshot: %w", family, err)
		}
		fmt.Printf("Saved %s rules to %s\n", family, app.Snapshots.RulesPath(family))
	}

	if app.Config.Sets != nil && app.Config.Sets.Enabled {
		data, err := netfilter.SaveSets(runner)
		if err != nil {
			return fmt.Errorf("save sets: %w", err)
		}
		if err := app.Snapshots.WriteSets(data); err != nil {
			return fmt.Errorf("write set snapshot: %w", err)
		}
		fmt.Printf("Saved sets to %s\n", app.Snapshots.SetsPath())
	}

	if app.Audit != nil {
		app.Audit.Append("snapshot saved to %s", app.Snapshots.Dir())
	}
	return nil
}
