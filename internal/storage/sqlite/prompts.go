package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ErrPromptNotFound is returned when a named prompt does not exist.
// Callers treat this as a fatal run precondition: the pipeline cannot
// classify or extract without instructions.
var ErrPromptNotFound = errors.New("prompt not found")

// GetPrompt returns the text and opaque version tag of a named prompt.
func (s *Store) GetPrompt(ctx context.Context, name string) (string, string, error) {
	var text string
	var version int
	err := s.db.QueryRowContext(ctx,
		"SELECT text, version FROM prompts WHERE name = ?", name).Scan(&text, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read prompt %s: %w", name, err)
	}
	return text, fmt.Sprintf("v%d", version), nil
}

// SetPrompt stores new text for a named prompt, bumping its version,
// and returns the new version tag. Releases extracted with an older
// version keep their old tag, which is what bulk re-extraction
// decisions key on.
func (s *Store) SetPrompt(ctx context.Context, name, text string) (string, error) {
	_, err := sq.Insert("prompts").
		Columns("name", "text", "version", "updated_at").
		Values(name, text, 1, time.Now().UTC()).
		Suffix("ON CONFLICT(name) DO UPDATE SET text = excluded.text, version = version + 1, updated_at = excluded.updated_at").
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to set prompt %s: %w", name, err)
	}

	var version int
	if err := s.db.QueryRowContext(ctx,
		"SELECT version FROM prompts WHERE name = ?", name).Scan(&version); err != nil {
		return "", fmt.Errorf("failed to read prompt version: %w", err)
	}
	return fmt.Sprintf("v%d", version), nil
}

// SeedPrompt inserts a prompt only if the name is not already present,
// so operator edits survive restarts.
func (s *Store) SeedPrompt(ctx context.Context, name, text string) error {
	_, err := sq.Insert("prompts").
		Columns("name", "text", "version", "updated_at").
		Values(name, text, 1, time.Now().UTC()).
		Suffix("ON CONFLICT(name) DO NOTHING").
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed prompt %s: %w", name, err)
	}
	return nil
}
