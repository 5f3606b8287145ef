package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"branchdesk-server/internal/service"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export every collection to a dated JSON file",
	Long: `Export every collection to backup-YYYY-MM-DD.json in the output directory.

A collection that cannot be read is exported as an empty list so the rest
of the backup is still written.`,
	RunE: runBackup,
}

var (
	backupOutDir string
	backupStdout bool
)

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVar(&backupOutDir, "out", ".", "Directory the backup file is written to")
	backupCmd.Flags().BoolVar(&backupStdout, "stdout", false, "Write the backup to stdout instead of a file")
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, data, stores, err := openData(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	backup := data.GenerateBackup(ctx)
	body, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	if backupStdout {
		_, err := cmd.OutOrStdout().Write(append(body, '\n'))
		return err
	}

	if err := os.MkdirAll(backupOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", backupOutDir, err)
	}

	path := filepath.Join(backupOutDir, service.BackupFilename(data.Now().In(cfg.Branches.Location)))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	total := 0
	for _, rows := range backup {
		total += len(rows)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d documents from %d collections to %s\n", total, len(backup), path)
	return nil
}
