package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initPolicyPath string

const defaultPolicyTemplate = `default: DENY
rules:
  - command: echo
    args: ['*']
    scope: safe
    description: example safe rule; replace with your own
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a minimal deny-by-default policy file",
	Long: `init writes a starting policy document that denies everything except
the one example rule, so a fresh install never defaults open.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPolicyPath, "policy-path", "./policy.yaml", "where to write the policy file")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(initPolicyPath); err == nil {
		return fmt.Errorf("%s already exists; refusing to overwrite", initPolicyPath)
	}
	if err := os.WriteFile(initPolicyPath, []byte(defaultPolicyTemplate), 0o600); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}
	fmt.Printf("wrote deny-by-default policy to %s\n", initPolicyPath)
	return nil
}
