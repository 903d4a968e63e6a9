package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentinelgate/execgate/internal/config"
	"github.com/sentinelgate/execgate/internal/domain/token"
	"github.com/sentinelgate/execgate/internal/service"
	"github.com/sentinelgate/execgate/internal/telemetry"
)

var (
	runPolicyPath     string
	runFailOnHold     bool
	runGateMode       string
	runAllowWithAudit bool
)

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Gate and execute a single command",
	Long: `run evaluates a command against the configured policy, issues a
signed authority token, and — only on ALLOW — hands the token to the
execution kernel for the seven-step verification that precedes spawn.

Examples:
  execgate run -- echo hello
  execgate run --gate-mode PERMISSIVE -- rm -rf /tmp/scratch
  execgate run --fail-on-hold=false -- curl https://example.com`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: false,
	RunE:               runGate,
}

func init() {
	runCmd.Flags().StringVar(&runPolicyPath, "policy-path", "", "path to the policy document (default: config policy_path)")
	runCmd.Flags().BoolVar(&runFailOnHold, "fail-on-hold", true, "exit non-zero on a HOLD decision")
	runCmd.Flags().StringVar(&runGateMode, "gate-mode", "", "STRICT or PERMISSIVE (default: config gate_mode)")
	runCmd.Flags().BoolVar(&runAllowWithAudit, "allow-with-audit", false, "on a policy miss under PERMISSIVE, issue an audited ALLOW instead of HOLD")
	rootCmd.AddCommand(runCmd)
}

func runGate(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command specified; usage: execgate run -- <command> [args...]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runPolicyPath != "" {
		cfg.PolicyPath = runPolicyPath
	}
	if runGateMode != "" {
		cfg.GateMode = runGateMode
	}

	logger := telemetry.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	gate, err := buildGate(cfg, logger)
	if err != nil {
		return fmt.Errorf("wire gate: %w", err)
	}

	out := gate.Run(context.Background(), service.GateInput{
		Command:             args[0],
		Args:                args[1:],
		PolicyPath:          cfg.PolicyPath,
		GateMode:            token.GateMode(cfg.GateMode),
		AllowWithAudit:      runAllowWithAudit,
		FingerprintProfile:  cfg.NormalizedFingerprintProfile(),
		HostIdentity:        cfg.HostIdentity(),
	})

	logLine, _ := json.Marshal(map[string]interface{}{
		"decision":                out.Verdict,
		"proposal_hash":           out.ProposalHash,
		"token_id":                out.TokenID,
		"policy_hash":             out.PolicyHash,
		"environment_fingerprint": out.EnvironmentFingerprint,
		"reason":                  out.Reason,
		"executed":                out.Executed,
		"gate_mode":               out.GateMode,
		"error_type":              out.ErrorType,
	})
	fmt.Println(string(logLine))

	os.Exit(exitCodeFor(out, runFailOnHold))
	return nil
}

// exitCodeFor applies spec §6's exit-code mapping: 0 on ALLOW+success
// (propagating the child exit code), 1 on STOP or any kernel denial, 1 on
// HOLD only when failOnHold is set.
func exitCodeFor(out service.GateOutput, failOnHold bool) int {
	switch out.Verdict {
	case string(token.DecisionAllow):
		return out.ExitCode
	case string(token.DecisionHold):
		if failOnHold {
			return 1
		}
		return 0
	default: // STOP
		return 1
	}
}
