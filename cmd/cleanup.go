package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// cleanupCmd deletes backups past their retention window.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups past their retention window",
	Long: `Delete completed backups older than the retention window, artifact
first, then the ledger row.

Active schedules can extend the window per backup type through their
retention_days setting; the longest applicable window wins. A missing
artifact does not block reclaiming the ledger row.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	deleted, err := eng.sweeper.CleanupOldBackups(cmd.Context())
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("Deleted %d expired backup(s)\n", deleted)
	return nil
}
