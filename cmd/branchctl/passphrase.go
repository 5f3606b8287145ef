package main

import (
	"bufio"
	"fmt"
	"strings"

	"branchdesk-server/pkg/hash"

	"github.com/spf13/cobra"
)

var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Hash a backup passphrase for BACKUP_PASSPHRASE_HASH",
	Long: `Read a passphrase from stdin and print its bcrypt hash.

Set the printed value as BACKUP_PASSPHRASE_HASH to require the passphrase in
the X-Backup-Passphrase header of backup downloads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}

		hashed, err := hash.Hash(strings.TrimRight(line, "\r\n"))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hashed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passphraseCmd)
}
