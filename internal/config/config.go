package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
)

var validBackends = []string{BackendMemory, BackendPostgres, BackendSheets, BackendSQLite}

type Config struct {
	// Runtime
	AppEnv   string `toml:"app_env"`
	LogLevel string `toml:"log_level"`

	// HTTP Server
	Port               string        `toml:"port"`
	CORSAllowedOrigins []string      `toml:"cors_allowed_origins"`
	RateLimitPerMinute int           `toml:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout"`

	// Backend selection
	DataBackend string `toml:"data_backend"`

	// Database
	SQLiteDBPath string `toml:"sqlite_db_path"`
	DatabaseURL  string `toml:"database_url"`

	// AMQP (optional)
	AMQPURL        string `toml:"amqp_url"`
	AMQPExchange   string `toml:"amqp_exchange"`
	AMQPRoutingKey string `toml:"amqp_routing_key"`

	// Google Sheets
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleSheetName          string `toml:"google_sheet_name"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`
	GoogleServiceAccountJSON string `toml:"google_service_account_json"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		AppEnv:             "dev",
		LogLevel:           "info",
		Port:               "8081",
		CORSAllowedOrigins: []string{"*"},
		RateLimitPerMinute: 60,
		ShutdownTimeout:    30 * time.Second,
		DataBackend:        BackendSQLite,
		SQLiteDBPath:       "./data/expenses.db",
		AMQPExchange:       "expenses",
		AMQPRoutingKey:     "expense.created",
		GoogleSheetName:    "Expenses",
	}
}

// Load layers defaults, the TOML file named by CONFIG_FILE (if any) and the
// environment, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPRoutingKey = getEnv("AMQP_ROUTING_KEY", cfg.AMQPRoutingKey)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)
	cfg.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", cfg.GoogleServiceAccountFile)
	cfg.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON)

	return cfg, nil
}

// IsProduction reports whether APP_ENV selects production behaviour
// (JSON logs).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "prod") || strings.EqualFold(c.AppEnv, "production")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}

	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}

	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be 0 (disabled) or positive", c.RateLimitPerMinute))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	} else if c.ShutdownTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at most 5 minutes", c.ShutdownTimeout))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
