package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// restoreCmd restores the database from a stored backup.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore the database from a backup",
	Long: `Restore the configured database from a completed backup.

The backup artifact is validated (size and checksum against the ledger)
before any data is touched. A restore log row is recorded for every
attempt, successful or not.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.restore.RestoreFromBackup(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Printf("Restore completed: %s\n", result.RestoreID)
	fmt.Printf("  Backup:   %s\n", result.BackupID)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(defaultDurationUnit))
	fmt.Printf("  Objects:  %d\n", len(result.RestoredObjects))
	for _, obj := range result.RestoredObjects {
		fmt.Printf("    - %s\n", obj)
	}
	return nil
}
