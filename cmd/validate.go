package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// validateCmd checks a stored backup against its ledger record.
var validateCmd = &cobra.Command{
	Use:   "validate <backup-id>",
	Short: "Validate a backup's integrity",
	Long: `Check that a backup's artifact exists and that its size and SHA-256
checksum match the values recorded in the ledger at backup time.

An invalid backup is a result, not an error: the command reports the
reason and exits non-zero so scripts can react.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	result := eng.verifier.ValidateBackup(cmd.Context(), args[0])
	if !result.IsValid {
		color.New(color.FgRed, color.Bold).Printf("Backup %s is INVALID\n", result.BackupID)
		fmt.Printf("  Reason: %s\n", result.ErrorMessage)
		return fmt.Errorf("validation failed: %s", result.ErrorMessage)
	}

	color.New(color.FgGreen, color.Bold).Printf("Backup %s is valid\n", result.BackupID)
	fmt.Printf("  Size:     %s\n", formatBytes(result.SizeBytes))
	fmt.Printf("  Checksum: %s\n", result.Checksum)
	return nil
}
