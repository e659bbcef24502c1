// Package cli provides the shared bootstrap and terminal rendering used by
// the expenses commands.
package cli

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"

	"expenses/internal/config"
	applog "expenses/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg, writing to out, and
// installs it as the slog default. Production uses JSON output.
func SetupLogger(cfg *config.Config, out io.Writer, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: component,
		JSON:      cfg.IsProduction(),
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// ListenAddr turns a port number into a listen address.
func ListenAddr(port string) string {
	return fmt.Sprintf(":%s", port)
}
