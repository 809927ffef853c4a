package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dbsnap/internal/ledger"
)

var backupType string

// backupCmd takes a single backup of the configured database.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a database backup",
	Long: `Create a full, incremental or differential backup of the configured
database and upload the artifact to the configured storage provider.

Incremental backups capture changes since the most recent completed backup
of any type. Differential backups capture changes since the most recent
completed full backup. When no anchor backup exists yet, changes from the
last seven days are captured.

Examples:
  dbsnap backup --type full
  dbsnap backup --type incremental
  dbsnap backup --type differential`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVarP(&backupType, "type", "t", "full", "backup type (full, incremental, differential)")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.orch.CreateBackup(cmd.Context(), ledger.BackupType(backupType))
	if err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Printf("Backup completed: %s\n", result.ID)
	fmt.Printf("  Type:     %s\n", result.Type)
	fmt.Printf("  Artifact: %s\n", result.ArtifactPath)
	fmt.Printf("  Size:     %s\n", formatBytes(result.SizeBytes))
	fmt.Printf("  Checksum: %s\n", result.Checksum)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(defaultDurationUnit))
	return nil
}
