package backend

import (
	"fmt"

	"expenses/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleSheetName == "" {
			return fmt.Errorf("Google Sheet name is required for sheets backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPRoutingKey == "") {
		return fmt.Errorf("AMQP exchange and routing key are required when AMQP URL is set")
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, PostgresBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
