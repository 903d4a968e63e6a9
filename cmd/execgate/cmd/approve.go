package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentinelgate/execgate/internal/config"
	"github.com/sentinelgate/execgate/internal/domain/proposal"
	"github.com/sentinelgate/execgate/internal/domain/scope"
	"github.com/sentinelgate/execgate/internal/port"
)

var (
	approvePassphrase string
	approvePolicyPath string
	approveBy         string
	approveTTL        time.Duration
)

var approveCmd = &cobra.Command{
	Use:   "approve -- <command> [args...]",
	Short: "Record a human approval for a pending net/fs/admin scope elevation",
	Long: `approve records a human-operator approval for the proposal that
(command, args) under the configured policy would produce. The approval
is keyed on that proposal's hash, which covers the command, the args, the
policy content and the 60-second window the approval is recorded in. A
later run auto-elevates only while its own proposal hash is the same: in
that same window, with an unchanged policy file (spec §4.9).

The operator must supply the configured approval passphrase; it is
checked against the Argon2id hash in config before anything is recorded.`,
	Args: cobra.ArbitraryArgs,
	RunE: runApprove,
}

func init() {
	approveCmd.Flags().StringVar(&approvePassphrase, "passphrase", "", "operator approval passphrase (required)")
	approveCmd.Flags().StringVar(&approvePolicyPath, "policy-path", "", "path to the policy document (default: config policy_path)")
	approveCmd.Flags().StringVar(&approveBy, "approved-by", "", "identifier of the approving operator")
	approveCmd.Flags().DurationVar(&approveTTL, "ttl", time.Hour, "how long the approval remains valid")
	rootCmd.AddCommand(approveCmd)
}

func runApprove(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command specified; usage: execgate approve -- <command> [args...]")
	}
	if approvePassphrase == "" {
		return fmt.Errorf("--passphrase is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.ApprovalPassphraseHash == "" {
		return fmt.Errorf("no approval_passphrase_hash configured; run 'execgate hash-key' and set it")
	}
	if err := scope.VerifyPassphrase(approvePassphrase, cfg.ApprovalPassphraseHash); err != nil {
		return fmt.Errorf("passphrase rejected: %w", err)
	}

	policyPath := cfg.PolicyPath
	if approvePolicyPath != "" {
		policyPath = approvePolicyPath
	}

	now := time.Now()
	prop := proposal.Build(args[0], args[1:], policyPath, now.Unix())
	hash, err := prop.Hash()
	if err != nil {
		return fmt.Errorf("hash proposal: %w", err)
	}

	approvals, err := buildApprovalStore(cfg)
	if err != nil {
		return fmt.Errorf("build approval store: %w", err)
	}
	defer approvals.Close()

	record := port.ApprovalRecord{
		ProposalHash: hash,
		ApprovedBy:   approveBy,
		ApprovedAt:   now,
		ExpiresAt:    now.Add(approveTTL),
	}
	if err := approvals.Store(record); err != nil {
		return fmt.Errorf("store approval: %w", err)
	}

	fmt.Printf("approved %s %v: proposal_hash=%s expires_at=%s\n",
		args[0], args[1:], hash, record.ExpiresAt.Format(time.RFC3339))
	return nil
}
