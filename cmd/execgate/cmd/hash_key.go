package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sentinelgate/execgate/internal/domain/scope"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [passphrase]",
	Short: "Hash an approval passphrase with Argon2id",
	Long: `Generate the Argon2id PHC-format hash of an operator approval passphrase,
for use in config as approval_passphrase_hash.

Example:
  execgate hash-key "my-approval-passphrase"

Security note: the passphrase will appear in shell history. Consider
clearing history after use, or pass it via an environment variable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := scope.HashPassphrase(args[0])
		if err != nil {
			return fmt.Errorf("hash passphrase: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
