package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"grimm.is/rampart/cmd"
	"grimm.is/rampart/internal/config"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "run":
		runFlags := flag.NewFlagSet("run", flag.ExitOnError)
		configFile := runFlags.String("config", config.DefaultConfigPath, "Configuration file")
		runFlags.StringVar(configFile, "c", config.DefaultConfigPath, "Configuration file (short)")
		runFlags.Parse(os.Args[2:])

		if err := cmd.RunCycle(ctx, *configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Cycle failed: %v\n", err)
			os.Exit(1)
		}

	case "daemon":
		daemonFlags := flag.NewFlagSet("daemon", flag.ExitOnError)
		configFile := daemonFlags.String("config", config.DefaultConfigPath, "Configuration file")
		daemonFlags.StringVar(configFile, "c", config.DefaultConfigPath, "Configuration file (short)")
		daemonFlags.Parse(os.Args[2:])

		if err := cmd.RunDaemon(ctx, *configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon failed: %v\n", err)
			os.Exit(1)
		}

	case "save":
		saveFlags := flag.NewFlagSet("save", flag.ExitOnError)
		configFile := saveFlags.String("config", config.DefaultConfigPath, "Configuration file")
		saveFlags.StringVar(configFile, "c", config.DefaultConfigPath, "Configuration file (short)")
		saveFlags.Parse(os.Args[2:])

		if err := cmd.RunSave(ctx, *configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		statusFlags := flag.NewFlagSet("status", flag.ExitOnError)
		configFile := statusFlags.String("config", config.DefaultConfigPath, "Configuration file")
		statusFlags.StringVar(configFile, "c", config.DefaultConfigPath, "Configuration file (short)")
		limit := statusFlags.Int("n", 20, "Number of cycles to show")
		statusFlags.Parse(os.Args[2:])

		if err := cmd.RunStatus(ctx, *configFile, *limit); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		checkFlags.Parse(os.Args[2:])

		configFile := config.DefaultConfigPath
		if checkFlags.NArg() > 0 {
			configFile = checkFlags.Arg(0)
		}
		if err := cmd.RunCheck(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

	case "version", "-v", "--version":
		fmt.Printf("rampart %s\n", version)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rampart - self-healing firewall ruleset guardian

Usage:
  rampart <command> [options]

Commands:
  run      Run a single reconciliation cycle (timer entry point)
  daemon   Run continuously on the configured interval
  save     Capture the current ruleset as the known-good snapshot
  status   Show recent reconciliation cycles
  check    Validate a configuration file
  version  Print version

Options:
  -c, --config  Configuration file (default ` + config.DefaultConfigPath + `)`)
}
