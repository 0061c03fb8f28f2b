package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kettleworks/shiplog/internal/types"
)

// RecordRun appends one run summary to the history.
func (s *Store) RecordRun(ctx context.Context, summary *types.RunSummary) error {
	errorsJSON, err := json.Marshal(summary.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}
	if summary.Errors == nil {
		errorsJSON = []byte("[]")
	}

	_, err = sq.Insert("runs").
		Columns("fetched", "already_processed", "processed", "extracted", "skipped",
			"edited", "prompt_version", "errors", "started_at", "finished_at").
		Values(summary.Fetched, summary.AlreadyProcessed, summary.Processed, summary.Extracted,
			summary.Skipped, summary.Edited, summary.PromptVersion, string(errorsJSON),
			summary.StartedAt, summary.FinishedAt).
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run summary, or nil when no run has
// been recorded yet.
func (s *Store) LastRun(ctx context.Context) (*types.RunSummary, error) {
	var summary types.RunSummary
	var errorsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT fetched, already_processed, processed, extracted, skipped, edited,
		       prompt_version, errors, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT 1`).
		Scan(&summary.Fetched, &summary.AlreadyProcessed, &summary.Processed,
			&summary.Extracted, &summary.Skipped, &summary.Edited,
			&summary.PromptVersion, &errorsJSON, &summary.StartedAt, &summary.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}
	if err := json.Unmarshal([]byte(errorsJSON), &summary.Errors); err != nil {
		return nil, fmt.Errorf("failed to decode run errors: %w", err)
	}
	return &summary, nil
}
