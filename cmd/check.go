package cmd

import (
	"fmt"

	"grimm.is/rampart/internal/config"
)

// RunCheck validates the configuration file syntax and semantics.
func RunCheck(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	interval, _ := cfg.CycleInterval()
	fmt.Println("Configuration valid!")
	fmt.Printf("State dir:  %s\n", cfg.StateDir)
	fmt.Printf("Interval:   %s\n", interval)
	fmt.Printf("Canary:     %s (%s position %d)\n", cfg.Canary.Source, cfg.Canary.Chain, cfg.Canary.Position)
	if cfg.Gate != nil {
		fmt.Printf("Gate:       %s (max wait %s)\n", cfg.Gate.Service, cfg.Gate.GateMaxWait())
	}
	if cfg.Bounce != nil {
		fmt.Printf("Bounce:     %s\n", cfg.Bounce.Service)
	}
	if cfg.Sets != nil && cfg.Sets.Enabled {
		fmt.Println("Sets:       enabled")
	}
	if cfg.Notifications != nil && cfg.Notifications.Enabled {
		fmt.Printf("Channels:   %d\n", len(cfg.Notifications.Channels))
	}
	return nil
}
