package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	memsheets "fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the repository, then the optional broker and the
// exporter. A broker that cannot connect is logged and skipped; the ledger
// still works within one process.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.createRepository(ctx, config)
	if err != nil {
		return nil, err
	}

	var broker *amqp.Client
	if config.AMQPURL != "" {
		broker, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.Origin)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without fan-out", "error", err)
			broker = nil
		} else {
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
		}
	}

	exporter, err := f.createExporter(ctx, config)
	if err != nil {
		if broker != nil {
			broker.Close()
		}
		repo.Close()
		return nil, err
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"amqp_enabled", broker != nil,
		"sheets_enabled", config.GoogleSpreadsheetID != "")

	return &BackendResult{
		Repository: repo,
		Broker:     broker,
		Exporter:   exporter,
		Cleanup: func() error {
			var errs []error
			if broker != nil {
				errs = append(errs, broker.Close())
			}
			errs = append(errs, repo.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createRepository(ctx context.Context, config Config) (ledger.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case PostgresBackend:
		repo, err := postgres.Open(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Using in-memory ledger; data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) (sheets.TransactionExporter, error) {
	if config.GoogleSpreadsheetID == "" {
		return memsheets.New(), nil
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return cli, nil
}
