package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/comercio-backend/pkg/config"
	"github.com/angelmondragon/comercio-backend/pkg/db"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type migrateOptions struct {
	dir string
}

func newRootCmd() *cobra.Command {
	opts := &migrateOptions{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage goose migrations for the comercio database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")

	root.AddCommand(
		gooseCmd(opts, "up", "Apply all pending migrations"),
		gooseCmd(opts, "down", "Roll back the latest migration"),
		gooseCmd(opts, "status", "Print applied and pending migrations"),
		versionCmd(opts),
		createCmd(opts),
		validateCmd(opts),
	)
	return root
}

func gooseCmd(opts *migrateOptions, command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), opts, command, func(ctx context.Context, sqlDB *sql.DB, dialect string) error {
				return migrate.Run(ctx, sqlDB, dialect, opts.dir, command)
			})
		},
	}
}

func versionCmd(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to the given version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), opts, "version", func(ctx context.Context, sqlDB *sql.DB, dialect string) error {
				return migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, args[0])
			})
		},
	}
}

func createCmd(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a timestamped SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(opts.dir, args[0])
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
}

func validateCmd(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration filenames and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(opts.dir); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}
}

// withDatabase loads config, opens the database and hands the raw sql.DB to fn.
func withDatabase(ctx context.Context, opts *migrateOptions, command string, fn func(context.Context, *sql.DB, string) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "resource not working: config", err)
		return err
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dialect := migrate.Dialect(cfg.DB.Driver)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"cmd":     command,
		"dir":     opts.dir,
		"dialect": dialect,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: database", err)
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "resource not working: sql database", err)
		return err
	}

	logg.Info(ctx, "migrate ready")
	if err := fn(ctx, sqlDB, dialect); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}
