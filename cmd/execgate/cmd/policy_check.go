package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sentinelgate/execgate/internal/config"
	"github.com/sentinelgate/execgate/internal/domain/policy"
)

var checkPolicyPath string

var policyCheckCmd = &cobra.Command{
	Use:   "policy-check -- <command> [args...]",
	Short: "Dry-run a command against a policy with no token or registry side effects",
	Long: `policy-check runs only the policy evaluator against a command and its
arguments: no proposal is built, no token is issued, no audit record is
written, and the replay registry is never consulted. Use it to test a
policy edit before it takes effect.`,
	Args: cobra.ArbitraryArgs,
	RunE: runPolicyCheck,
}

func init() {
	policyCheckCmd.Flags().StringVar(&checkPolicyPath, "policy-path", "", "path to the policy document (default: config policy_path)")
	rootCmd.AddCommand(policyCheckCmd)
}

func runPolicyCheck(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command specified; usage: execgate policy-check -- <command> [args...]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	policyPath := cfg.PolicyPath
	if checkPolicyPath != "" {
		policyPath = checkPolicyPath
	}

	pol, loadErr := policy.Load(policyPath)
	decision := policy.EvaluateAgainst(pol, args[0], args[1:])

	result := map[string]interface{}{
		"verdict":            decision.Verdict,
		"reason":             decision.Reason,
		"matched_rule_index": decision.MatchedRuleIndex,
		"matched_scope":      decision.MatchedScope,
	}
	if loadErr != nil {
		result["policy_load_error"] = loadErr.Error()
	}

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(line))
	return nil
}
