package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kettleworks/shiplog/internal/types"
)

// InsertRelease persists one release row and returns its generated ID.
// The message's edit-version and thread id are stored alongside the
// content so future dedup decisions never re-fetch the source.
func (s *Store) InsertRelease(ctx context.Context, release *types.Release) (string, error) {
	if err := release.Validate(); err != nil {
		return "", fmt.Errorf("invalid release: %w", err)
	}

	id := release.ID
	if id == "" {
		id = uuid.New().String()
	}

	mediaJSON, err := json.Marshal(release.Media)
	if err != nil {
		return "", fmt.Errorf("failed to encode media: %w", err)
	}
	if release.Media == nil {
		mediaJSON = []byte("[]")
	}

	createdAt := release.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = sq.Insert("releases").
		Columns("id", "source_message_id", "source_channel_id", "source_thread_id",
			"source_edited_version", "prompt_version", "date", "title", "description",
			"type", "why_this_matters", "impact", "media", "created_at").
		Values(id, release.SourceMessageID, release.SourceChannelID, release.SourceThreadID,
			release.SourceEditedVersion, release.PromptVersion, release.Date, release.Title,
			release.Description, string(release.Type), release.WhyThisMatters, release.Impact,
			string(mediaJSON), createdAt).
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert release: %w", err)
	}

	release.ID = id
	release.CreatedAt = createdAt
	return id, nil
}

// DeleteReleasesForMessage removes every release row derived from the
// given source message and returns the number deleted. Called when an
// edit invalidates the prior extraction.
func (s *Store) DeleteReleasesForMessage(ctx context.Context, messageID string) (int, error) {
	result, err := sq.Delete("releases").
		Where(sq.Eq{"source_message_id": messageID}).
		RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete releases for %s: %w", messageID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return int(n), nil
}

// GetExistingEditVersions returns, for every message in the channel
// that has at least one release row, the edit-version snapshot stored
// at extraction time. Empty string means the message had never been
// edited when extracted.
func (s *Store) GetExistingEditVersions(ctx context.Context, channelID string) (map[string]string, error) {
	rows, err := sq.Select("source_message_id", "source_edited_version").
		From("releases").
		Where(sq.Eq{"source_channel_id": channelID}).
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query edit versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]string)
	for rows.Next() {
		var msgID, version string
		if err := rows.Scan(&msgID, &version); err != nil {
			return nil, fmt.Errorf("failed to scan edit version: %w", err)
		}
		versions[msgID] = version
	}
	return versions, rows.Err()
}

// GetReleaseIDsForMessage returns the IDs of all release rows derived
// from the given source message.
func (s *Store) GetReleaseIDsForMessage(ctx context.Context, messageID string) ([]string, error) {
	rows, err := sq.Select("id").
		From("releases").
		Where(sq.Eq{"source_message_id": messageID}).
		OrderBy("created_at").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query release ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan release id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetKnownThreadIDs returns the distinct thread roots previously seen
// in a channel: the stored thread id for releases extracted from
// replies, the source message id otherwise. The hydrator re-polls
// these for replies a plain history fetch would miss.
func (s *Store) GetKnownThreadIDs(ctx context.Context, channelID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT CASE WHEN source_thread_id != '' THEN source_thread_id ELSE source_message_id END
		FROM releases WHERE source_channel_id = ?`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query known threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListReleases returns the most recent releases for a channel, newest
// first. A limit of 0 means no limit.
func (s *Store) ListReleases(ctx context.Context, channelID string, limit int) ([]*types.Release, error) {
	q := sq.Select("id", "source_message_id", "source_channel_id", "source_thread_id",
		"source_edited_version", "prompt_version", "date", "title", "description",
		"type", "why_this_matters", "impact", "media", "created_at").
		From("releases").
		Where(sq.Eq{"source_channel_id": channelID}).
		OrderBy("date DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer rows.Close()

	var releases []*types.Release
	for rows.Next() {
		var r types.Release
		var relType, mediaJSON string
		if err := rows.Scan(&r.ID, &r.SourceMessageID, &r.SourceChannelID, &r.SourceThreadID,
			&r.SourceEditedVersion, &r.PromptVersion, &r.Date, &r.Title, &r.Description,
			&relType, &r.WhyThisMatters, &r.Impact, &mediaJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		r.Type = types.ReleaseType(relType)
		if err := json.Unmarshal([]byte(mediaJSON), &r.Media); err != nil {
			return nil, fmt.Errorf("failed to decode media for %s: %w", r.ID, err)
		}
		releases = append(releases, &r)
	}
	return releases, rows.Err()
}

// CountReleases returns the total number of release rows.
func (s *Store) CountReleases(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM releases").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count releases: %w", err)
	}
	return n, nil
}
