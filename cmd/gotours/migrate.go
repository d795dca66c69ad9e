// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package main

import (
	"fmt"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gotours/gotours/internal/store"
)

// migrator wraps the methods used from store.Migrator.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
}

// migratorFactory creates a migrator for the given database URL.
// Overridden in tests.
var migratorFactory = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage schema migrations for the PostgreSQL database. The database
URL is read from the GOTOURS_DATABASE_URL environment variable.`,
	}

	cmd.AddCommand(
		newMigrateUpCmd(),
		newMigrateDownCmd(),
		newMigrateStepsCmd(),
		newMigrateStatusCmd(),
		newMigrateForceCmd(),
	)

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				cmd.Println("Rolling back all migrations...")
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
}

func newMigrateStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps <n>",
		Short: "Apply n migrations (negative rolls back)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Steps(n); err != nil {
					return err
				}
				cmd.Printf("Applied %d migration step(s)\n", n)
				return nil
			})
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("Current version: %d (DIRTY - needs force)\n", version)
				} else {
					cmd.Printf("Current version: %d\n", version)
				}

				applied, err := m.AppliedMigrations()
				if err != nil {
					return err
				}
				for _, v := range applied {
					cmd.Printf("  applied: %s\n", migrationLabel(v))
				}

				pending, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				for _, v := range pending {
					cmd.Printf("  pending: %s\n", migrationLabel(v))
				}
				if len(pending) == 0 {
					cmd.Println("Database is up to date")
				}
				return nil
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Force the schema version without running migrations",
		Long: `Force the recorded schema version and clear the dirty flag after a
failed migration. Does not run any migration files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced schema version to %d\n", version)
				return nil
			})
		},
	}
}

// withMigrator resolves the database URL, opens a migrator, and runs fn.
func withMigrator(cmd *cobra.Command, fn func(m migrator) error) error {
	databaseURL := os.Getenv("GOTOURS_DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("GOTOURS_DATABASE_URL environment variable is required")
	}

	m, err := migratorFactory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrf("warning: error closing migrator: %v\n", closeErr)
		}
	}()

	return fn(m)
}

// parseVersionArg parses a signed integer argument.
func parseVersionArg(arg string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(arg, "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", arg).Wrap(err)
	}
	return v, nil
}

// migrationLabel formats a migration version with its file name when known.
func migrationLabel(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil {
		return fmt.Sprintf("%06d", version)
	}
	return name
}
