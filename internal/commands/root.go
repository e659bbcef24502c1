package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/metrics"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var jsonOut bool

	rootCmd := &cobra.Command{
		Use:   "expenses",
		Short: "Track expenses and compare them against a salary",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newAddCommand(&jsonOut),
		newListCommand(&jsonOut),
		newTotalsCommand(&jsonOut),
	)

	return rootCmd
}

// app is what a command needs once configuration and the backend are up.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	backend *backend.BackendResult
}

func (a *app) Close() {
	if a.backend == nil || a.backend.Cleanup == nil {
		return
	}
	if err := a.backend.Cleanup(); err != nil {
		a.logger.Warn("Cleanup failed", applog.FieldError, err)
	}
}

// openApp loads configuration, sets up logging on the command's error
// stream and opens the configured backend. m may be nil.
func openApp(cmd *cobra.Command, component string, m *metrics.Metrics) (*app, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, cmd.ErrOrStderr(), component)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger, m).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", cfg.DataBackend, err)
	}

	return &app{cfg: cfg, logger: logger, backend: res}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
