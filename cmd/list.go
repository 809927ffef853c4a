package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dbsnap/internal/ledger"
)

var (
	listType      string
	listStatus    string
	listLimit     int
	listStartDate string
	listEndDate   string
	listFormat    string
)

// listCmd lists backups recorded in the ledger.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded backups",
	Long: `List backups from the ledger, newest first, with optional filters.

Examples:
  dbsnap list
  dbsnap list --type full --status completed --limit 10
  dbsnap list --start-date 2026-01-01T00:00:00Z --format json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "filter by backup type (full, incremental, differential)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (pending, in_progress, completed, failed)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of records to return")
	listCmd.Flags().StringVar(&listStartDate, "start-date", "", "only backups created at or after this RFC3339 time")
	listCmd.Flags().StringVar(&listEndDate, "end-date", "", "only backups created at or before this RFC3339 time")
	listCmd.Flags().StringVar(&listFormat, "format", "table", "output format (table, json)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := buildListFilter()
	if err != nil {
		return err
	}

	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	records, err := eng.orch.ListBackups(*filter)
	if err != nil {
		return err
	}

	if listFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tSIZE\tCREATED\tARTIFACT")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.Type,
			colorizeStatus(rec.Status),
			formatBytes(rec.SizeBytes),
			rec.CreatedAt.Format(time.RFC3339),
			rec.ArtifactPath,
		)
	}
	return w.Flush()
}

func buildListFilter() (*ledger.BackupFilter, error) {
	filter := &ledger.BackupFilter{
		Type:   ledger.BackupType(listType),
		Status: ledger.Status(listStatus),
		Limit:  listLimit,
	}
	if listType != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("invalid backup type: %s", listType)
	}
	if listStartDate != "" {
		t, err := time.Parse(time.RFC3339, listStartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", listStartDate, err)
		}
		filter.StartDate = &t
	}
	if listEndDate != "" {
		t, err := time.Parse(time.RFC3339, listEndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", listEndDate, err)
		}
		filter.EndDate = &t
	}
	return filter, nil
}
