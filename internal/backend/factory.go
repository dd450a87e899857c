package backend

import (
	"context"
	"fmt"

	"majorincome/internal/dataset/jsonfile"
	"majorincome/internal/log"
	"majorincome/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// CreateBackend opens SQLite and the JSON fallback file. When SQLite cannot
// be opened the backend runs on the JSON file alone unless the config
// requires the database.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if config.JSONFallbackPath == "" {
		return nil, fmt.Errorf("JSON fallback path is required")
	}
	jsonStore := jsonfile.New(config.JSONFallbackPath)

	var repo *storage.SQLiteRepository
	if config.SQLiteDBPath != "" {
		var err error
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			if config.RequireDatabase {
				return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
			}
			f.logger.WarnContext(ctx, "SQLite unavailable, serving from JSON fallback only",
				log.FieldError, err.Error(),
				"db_path", config.SQLiteDBPath)
			repo = nil
		}
	}

	result := &BackendResult{
		Database: repo,
		JSON:     jsonStore,
		Cleanup:  func() error { return nil },
	}
	if repo != nil {
		result.Store = NewFallbackStore(repo, jsonStore, f.logger)
		result.Cleanup = repo.Close
	} else {
		result.Store = NewFallbackStore(nil, jsonStore, f.logger)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"db_path", config.SQLiteDBPath,
		"json_path", config.JSONFallbackPath,
		"database_enabled", repo != nil)

	return result, nil
}
