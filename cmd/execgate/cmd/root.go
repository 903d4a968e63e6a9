// Package cmd provides the CLI commands for the execution gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentinelgate/execgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "execgate",
	Short: "execgate - deterministic execution gate for agent-originated commands",
	Long: `execgate answers one question for every command an AI agent, CI job, or
pipeline wants to run: does this exact command, in this exact environment,
under this exact policy, have cryptographically verifiable authority to
execute?

It evaluates a declarative policy, issues a short-lived signed token bound
to the proposal and host environment, and re-verifies that token through a
fixed seven-step chain before the single code path allowed to spawn a
process ever runs. Everything defaults to deny.

Configuration:
  Config is loaded from execgate.yaml in the current directory,
  $HOME/.execgate/, or /etc/execgate/.

  Environment variables override config values with the EXECGATE_ prefix.
  Example: EXECGATE_GATE_MODE=PERMISSIVE

Commands:
  run            Gate and execute a single command
  policy-check   Dry-run a command against a policy with no token/registry side effects
  approve        Record a human approval for a pending scope elevation
  init           Write a minimal deny-by-default policy file
  hash-key       Hash an approval passphrase with Argon2id
  version        Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./execgate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
