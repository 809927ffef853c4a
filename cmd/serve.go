package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dbsnap/internal/server"
)

// serveCmd runs the HTTP API and the cron scheduler.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and backup scheduler",
	Long: `Run the long-lived engine: the REST API for backups, restores,
validation, retention and schedule management, plus the cron scheduler
that fires recurring backups.

Schedules declared in the config file are registered at startup, then
persisted schedules from previous runs are loaded alongside them. The
server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("artifact store health check failed: %w", err)
	}

	if err := eng.registerConfigSchedules(); err != nil {
		return err
	}
	if err := eng.sched.Start(); err != nil {
		return err
	}
	defer eng.sched.Destroy()

	srv := server.New(server.Deps{
		Orchestrator: eng.orch,
		Restore:      eng.restore,
		Verifier:     eng.verifier,
		Sweeper:      eng.sweeper,
		Scheduler:    eng.sched,
		Ledger:       eng.ledger,
		Store:        eng.store,
		Logger:       eng.logger,
	})

	eng.logger.Infof("listening on %s", eng.cfg.Server.ListenAddr)
	return srv.Run(ctx, eng.cfg.Server.ListenAddr, eng.cfg.Server.ShutdownTimeout)
}
