package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/repository"
)

var steps int

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}
	downCmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE:  runUp,
		},
		downCmd,
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			RunE:  runVersion,
		},
	)

	return cmd
}

func runUp(_ *cobra.Command, _ []string) error {
	return withDB(func(db *sqlx.DB, logger *zap.Logger) error {
		return repository.MigrateDB(db, logger)
	})
}

func runDown(_ *cobra.Command, _ []string) error {
	return withDB(func(db *sqlx.DB, logger *zap.Logger) error {
		return repository.RollbackDB(db, steps, logger)
	})
}

func runVersion(cmd *cobra.Command, _ []string) error {
	return withDB(func(db *sqlx.DB, _ *zap.Logger) error {
		version, dirty, ok, err := repository.SchemaVersion(db)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %d, dirty: %t\n", version, dirty)
		return nil
	})
}

func withDB(fn func(db *sqlx.DB, logger *zap.Logger) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	db, err := repository.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(db, logger)
}
