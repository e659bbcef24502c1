package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"expenses/internal/cli"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/storage"
	"expenses/internal/storage/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations for the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg, cmd.ErrOrStderr(), applog.ComponentCLI)

			switch cfg.DataBackend {
			case config.BackendSQLite:
				err = storage.RunMigrations(cfg.SQLiteDBPath)
			case config.BackendPostgres:
				err = postgres.RunMigrations(cfg.DatabaseURL)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Backend %s has no schema to migrate.\n", cfg.DataBackend)
				return nil
			}
			if err != nil {
				return fmt.Errorf("migrating %s: %w", cfg.DataBackend, err)
			}

			logger.Info("Migrations applied", applog.FieldOperation, applog.OpMigrate, applog.FieldBackend, cfg.DataBackend)
			fmt.Fprintf(cmd.OutOrStdout(), "Schema for %s is up to date.\n", cfg.DataBackend)
			return nil
		},
	}
}
