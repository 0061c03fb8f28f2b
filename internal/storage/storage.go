// Package storage defines the persistence interface for release records.
package storage

import (
	"context"

	"github.com/kettleworks/shiplog/internal/storage/sqlite"
	"github.com/kettleworks/shiplog/internal/types"
)

// Storage is the persistence boundary for the pipeline. Releases are
// never mutated in place: an edited source message always translates to
// delete-then-reinsert, which keeps the per-(message, edit-version)
// invariant simple and trivially resumable after a crash.
type Storage interface {
	// Releases
	InsertRelease(ctx context.Context, release *types.Release) (string, error)
	DeleteReleasesForMessage(ctx context.Context, messageID string) (int, error)
	GetExistingEditVersions(ctx context.Context, channelID string) (map[string]string, error)
	GetReleaseIDsForMessage(ctx context.Context, messageID string) ([]string, error)
	GetKnownThreadIDs(ctx context.Context, channelID string) ([]string, error)
	ListReleases(ctx context.Context, channelID string, limit int) ([]*types.Release, error)
	CountReleases(ctx context.Context) (int, error)

	// Prompts
	GetPrompt(ctx context.Context, name string) (text, version string, err error)
	SetPrompt(ctx context.Context, name, text string) (version string, err error)
	SeedPrompt(ctx context.Context, name, text string) error

	// Run history
	RecordRun(ctx context.Context, summary *types.RunSummary) error
	LastRun(ctx context.Context) (*types.RunSummary, error)

	// Meta
	SchemaVersion(ctx context.Context) (string, error)

	Close() error
}

// Config holds database configuration.
type Config struct {
	// Path is the SQLite database file path. ":memory:" creates an
	// in-memory database, useful for tests.
	Path string
}

// New creates the SQLite storage backend.
func New(ctx context.Context, cfg *Config) (Storage, error) {
	path := ""
	if cfg != nil {
		path = cfg.Path
	}
	if path == "" {
		path = ".shiplog/shiplog.db"
	}
	return sqlite.New(path)
}
