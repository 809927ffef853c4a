package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dbsnap/internal/backup"
)

var statsFormat string

// statsCmd prints per-type backup statistics.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backup statistics grouped by type",
	Long: `Show attempt counts, success and failure totals, average duration of
completed backups, total bytes stored and the time of the last success,
grouped by backup type.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "table", "output format (table, json)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := backup.GetBackupStatistics(eng.ledger)
	if err != nil {
		return err
	}

	if statsFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	if len(stats) == 0 {
		fmt.Println("No backups recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tATTEMPTS\tOK\tFAILED\tAVG DURATION\tTOTAL SIZE\tLAST SUCCESS")
	for _, s := range stats {
		lastSuccess := "never"
		if s.LastSuccessAt != nil {
			lastSuccess = s.LastSuccessAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			s.Type,
			s.TotalAttempts,
			s.Successful,
			s.Failed,
			(time.Duration(s.AvgDurationMs) * time.Millisecond).Round(time.Millisecond),
			formatBytes(s.TotalBytes),
			lastSuccess,
		)
	}
	return w.Flush()
}
