package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/spaces-core/migrations"

	"github.com/nerrad567/spaces-core/internal/infrastructure/config"
	"github.com/nerrad567/spaces-core/internal/infrastructure/database"
)

// Default configuration file path. A missing default file is not an error;
// defaults and environment variables apply instead.
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides the configuration file path.
const configEnvVar = "SPACES_CONFIG"

// newRootCmd creates the spaces command tree.
func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "spaces",
		Short:         "Spaces Core - authenticated spaces backend",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $"+configEnvVar+" or "+defaultConfigPath+")")

	cmd.AddCommand(newServeCmd(&configFile))
	cmd.AddCommand(newMigrateCmd(&configFile))

	return cmd
}

// newServeCmd creates the serve subcommand.
func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server. Pending database migrations are applied on
startup. The server runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(*configFile))
		},
	}
}

// newMigrateCmd creates the migrate subcommand and its children.
func newMigrateCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(*configFile, func(db *database.DB) error {
				if err := db.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(*configFile, func(db *database.DB) error {
				if err := db.MigrateDown(cmd.Context()); err != nil {
					return fmt.Errorf("rolling back migration: %w", err)
				}
				cmd.Println("Rolled back one migration")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(*configFile, func(db *database.DB) error {
				applied, pending, err := db.GetMigrationStatus(cmd.Context())
				if err != nil {
					return fmt.Errorf("reading migration status: %w", err)
				}
				for _, m := range applied {
					cmd.Printf("applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
				}
				for _, m := range pending {
					cmd.Printf("pending  %s  %s\n", m.Version, m.Name)
				}
				if len(applied) == 0 && len(pending) == 0 {
					cmd.Println("No migrations found")
				}
				return nil
			})
		},
	})

	return cmd
}

// withDatabase loads the configuration, opens the database and passes it to
// fn. The database is closed when fn returns.
func withDatabase(configFile string, fn func(db *database.DB) error) error {
	cfg, err := config.Load(getConfigPath(configFile))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-mostly CLI session

	return fn(db)
}

// getConfigPath returns the configuration file path: the --config flag,
// then SPACES_CONFIG, then the default path if that file exists. An empty
// result means no file is read.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return defaultConfigPath
}
