package backend

import (
	"context"

	"majorincome/internal/config"
	"majorincome/internal/dataset/jsonfile"
	"majorincome/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened stores and a cleanup function
type BackendResult struct {
	// Database is nil when the SQLite store could not be opened.
	Database *storage.SQLiteRepository
	JSON     *jsonfile.Store
	Store    *FallbackStore
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath     string
	JSONFallbackPath string
	// RequireDatabase turns a failure to open SQLite into an error instead
	// of a JSON-only backend.
	RequireDatabase bool
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) Config {
	return Config{
		SQLiteDBPath:     appConfig.SQLiteDBPath,
		JSONFallbackPath: appConfig.JSONFallbackPath,
	}
}

// Origin names the store that answered a read.
type Origin string

const (
	OriginDatabase Origin = "database"
	OriginJSON     Origin = "json"
)

func (o Origin) String() string {
	return string(o)
}
