package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dbsnap/internal/ledger"
)

var (
	scheduleName      string
	scheduleType      string
	scheduleCron      string
	scheduleActive    bool
	scheduleRetention int
	scheduleShowAll   bool
)

// scheduleCmd manages recurring backup schedules.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring backup schedules",
	Long: `Manage cron-driven backup schedules stored in the ledger.

Schedules are executed by the long-running server (dbsnap serve).
Adding or removing a schedule here updates the ledger; a running server
picks the change up on its next restart, or immediately when the change
is made through the HTTP API.

Examples:
  dbsnap schedule add nightly-full --name "Nightly full" --type full --cron "0 2 * * *"
  dbsnap schedule add weekly-diff --type differential --cron "0 4 * * 0" --retention-days 90
  dbsnap schedule list --all
  dbsnap schedule remove nightly-full`,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup schedules",
	RunE:  runScheduleList,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <schedule-id>",
	Short: "Add or update a backup schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleAdd,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <schedule-id>",
	Short: "Remove a backup schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRemove,
}

func init() {
	scheduleAddCmd.Flags().StringVar(&scheduleName, "name", "", "human-readable schedule name")
	scheduleAddCmd.Flags().StringVar(&scheduleType, "type", "full", "backup type (full, incremental, differential)")
	scheduleAddCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression, e.g. \"0 2 * * *\"")
	scheduleAddCmd.Flags().BoolVar(&scheduleActive, "active", true, "whether the schedule fires")
	scheduleAddCmd.Flags().IntVar(&scheduleRetention, "retention-days", 0, "retention window for backups of this type (0: engine default)")
	scheduleAddCmd.MarkFlagRequired("cron")

	scheduleListCmd.Flags().BoolVar(&scheduleShowAll, "all", false, "include inactive schedules")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	schedules, err := eng.ledger.ListSchedules(!scheduleShowAll)
	if err != nil {
		return err
	}

	if len(schedules) == 0 {
		fmt.Println("No schedules found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCRON\tACTIVE\tRETENTION\tLAST RUN\tNEXT RUN")
	for _, s := range schedules {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			s.ID,
			s.Name,
			s.Type,
			s.CronExpression,
			s.IsActive,
			formatRetention(s.RetentionDays),
			formatRunTime(s.LastRunAt),
			formatRunTime(s.NextRunAt),
		)
	}
	return w.Flush()
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	schedule := &ledger.BackupSchedule{
		ID:             args[0],
		Name:           scheduleName,
		Type:           ledger.BackupType(scheduleType),
		CronExpression: scheduleCron,
		IsActive:       scheduleActive,
		RetentionDays:  scheduleRetention,
	}
	if err := eng.sched.ScheduleBackup(schedule); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("Schedule %s saved\n", schedule.ID)
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.sched.RemoveSchedule(args[0]); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("Schedule %s removed\n", args[0])
	return nil
}

func formatRetention(days int) string {
	if days <= 0 {
		return "default"
	}
	return fmt.Sprintf("%dd", days)
}

func formatRunTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
