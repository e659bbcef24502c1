package backend

import (
	"context"
	"fmt"
	"time"

	"expenses/internal/amqp"
	applog "expenses/internal/log"
	"expenses/internal/metrics"
	"expenses/internal/ports"
	"expenses/internal/services"
	gsheet "expenses/internal/sheets/google"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
	"expenses/internal/storage/postgres"
)

const amqpConnectAttempts = 3

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *applog.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new backend factory. m may be nil.
func NewFactory(logger *applog.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(applog.ComponentBackend),
		metrics: m,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}

	var publisher ports.ExpensePublisher
	if client := f.createPublisher(ctx, config); client != nil {
		publisher = client
	}

	svc := services.NewExpenseService(store, publisher, f.metrics)
	f.logger.Info("Initialized backend",
		applog.FieldBackend, config.Type.String(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Store:   store,
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (ports.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Debug("Opened SQLite database", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		repo, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, nil

	case SheetsBackend:
		store, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountFile: config.GoogleServiceAccountFile,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return store, nil

	case MemoryBackend:
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createPublisher connects to the broker when one is configured. A broker
// that cannot be reached only disables notifications.
func (f *DefaultFactory) createPublisher(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.Connect(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, amqpConnectAttempts)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without notifications", applog.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"routing_key", config.AMQPRoutingKey)
	return client
}
