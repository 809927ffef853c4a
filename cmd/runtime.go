package cmd

import (
	"context"
	"fmt"

	"dbsnap/internal/artifact"
	"dbsnap/internal/backup"
	"dbsnap/internal/config"
	"dbsnap/internal/driver"
	"dbsnap/internal/ledger"
	"dbsnap/internal/logging"
	"dbsnap/internal/scheduler"
)

// engine bundles the wired components a CLI command operates on.
type engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	ledger   *ledger.Store
	store    artifact.Store
	driver   driver.Driver
	orch     *backup.Orchestrator
	verifier *backup.Verifier
	restore  *backup.RestoreOrchestrator
	sweeper  *backup.Sweeper
	sched    *scheduler.Scheduler

	closers []func() error
}

// newEngine loads the configuration and wires the ledger, artifact store,
// database driver and orchestrators together.
func newEngine(ctx context.Context) (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		LogFile: cfg.Logging.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ledgerStore, err := ledger.Open(cfg.Ledger.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	store, err := artifact.NewStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	e := &engine{cfg: cfg, logger: logger, ledger: ledgerStore, store: store}

	switch cfg.Driver {
	case config.DriverKindSQL:
		d, err := driver.NewMySQLSQLDriver(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		e.driver = d
		e.closers = append(e.closers, d.Close)
	default:
		d, err := driver.NewMySQLExecDriver(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		e.driver = d
	}

	e.orch, err = backup.NewOrchestrator(ledgerStore, store, e.driver, logger, backup.Options{
		StagingDir:  cfg.Backup.StagingDir,
		Compression: cfg.Backup.Compression,
		Encryption:  cfg.Encryption,
	})
	if err != nil {
		return nil, err
	}

	e.verifier = backup.NewVerifier(ledgerStore, store, logger)

	e.restore, err = backup.NewRestoreOrchestrator(ledgerStore, e.verifier, e.orch, e.driver, logger)
	if err != nil {
		return nil, err
	}

	e.sweeper = backup.NewSweeper(ledgerStore, store, logger, cfg.Backup.RetentionDays)
	e.sched = scheduler.New(ledgerStore, e.orch, logger)

	return e, nil
}

// registerConfigSchedules upserts the schedules declared in the config file.
func (e *engine) registerConfigSchedules() error {
	for _, sc := range e.cfg.Schedules {
		schedule := &ledger.BackupSchedule{
			ID:             sc.ID,
			Name:           sc.Name,
			Type:           sc.Type,
			CronExpression: sc.CronExpression,
			IsActive:       sc.IsActive,
			RetentionDays:  sc.RetentionDays,
		}
		if err := e.sched.ScheduleBackup(schedule); err != nil {
			return fmt.Errorf("failed to register schedule %s: %w", sc.ID, err)
		}
	}
	return nil
}

// Close releases database connections held by the engine.
func (e *engine) Close() {
	for _, closer := range e.closers {
		if err := closer(); err != nil {
			e.logger.Warnf("close failed: %v", err)
		}
	}
}
