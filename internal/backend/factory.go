package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budgetlog/internal/amqp"
	applog "budgetlog/internal/log"
	"budgetlog/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromSlog(slog.Default(), applog.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	kv, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{KV: kv}
	cleanups := []CleanupFunc{kv.Close}

	// Initialize AMQP client (optional)
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey,
			f.logger.WithComponent(applog.ComponentAMQP))
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without broker notifications",
				applog.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
			result.Notifier = client
			cleanups = append([]CleanupFunc{client.Close}, cleanups...)
		}
	}

	result.Cleanup = func() error {
		var first error
		for _, c := range cleanups {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.KeyValue, error) {
	switch config.Type {
	case FileBackend:
		store, err := storage.NewFileStore(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)
		return store, nil
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return store, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend", "quota_bytes", config.MemoryQuota)
		return storage.NewMemoryStore(config.MemoryQuota), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
