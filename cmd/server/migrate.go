package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mcoot/dormo/internal/config"
	"github.com/mcoot/dormo/internal/storage/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage PostgreSQL schema migrations",
		Long: `Apply or roll back the PostgreSQL schema. The connection string comes
from --postgres-dsn or DORMO_STORAGE__POSTGRES_DSN.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn, err := postgresDSN(cmd)
			if err != nil {
				return err
			}
			if err := migrateUp(dsn); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("Schema version %d (dirty)\n", version)
				} else {
					cmd.Printf("Schema version %d\n", version)
				}
				return nil
			})
		},
	})

	return cmd
}

func postgresDSN(cmd *cobra.Command) (string, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return "", oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.Storage.PostgresDSN == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("a PostgreSQL connection string is required")
	}
	return cfg.Storage.PostgresDSN, nil
}

func withMigrator(cmd *cobra.Command, fn func(m *postgres.Migrator) error) (err error) {
	dsn, err := postgresDSN(cmd)
	if err != nil {
		return err
	}

	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); err == nil {
			err = closeErr
		}
	}()

	return fn(m)
}

func migrateUp(dsn string) (err error) {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); err == nil {
			err = closeErr
		}
	}()

	return m.Up()
}
