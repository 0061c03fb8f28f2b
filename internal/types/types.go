// Package types defines the data model shared across the shiplog pipeline.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChannelMessage is a single chat message as observed from the source
// platform, normalized by the source adapter. The ID doubles as the
// platform's timestamp token (e.g. "1712345678.000100").
type ChannelMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`

	Text     string `json:"text"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	Subtype  string `json:"subtype,omitempty"`

	// ThreadID equals ID for a standalone message or a thread root,
	// and references the root's ID for a reply. Empty means standalone.
	ThreadID   string `json:"thread_id,omitempty"`
	ReplyCount int    `json:"reply_count,omitempty"`

	// EditedVersion is an opaque token bumped by the platform whenever
	// the message body changes. Empty means never edited.
	EditedVersion string `json:"edited_version,omitempty"`

	Files []MediaFile `json:"files,omitempty"`
}

// IsThreadReply reports whether the message is a reply inside a thread
// (as opposed to a standalone message or a thread root).
func (m *ChannelMessage) IsThreadReply() bool {
	return m.ThreadID != "" && m.ThreadID != m.ID
}

// RootID returns the thread root ID for grouping: the ThreadID when set,
// otherwise the message's own ID.
func (m *ChannelMessage) RootID() string {
	if m.ThreadID != "" {
		return m.ThreadID
	}
	return m.ID
}

// Timestamp derives the message's creation time from its ID token.
// Returns the zero time if the token is not parseable.
func (m *ChannelMessage) Timestamp() time.Time {
	sec, _, ok := strings.Cut(m.ID, ".")
	if !ok {
		sec = m.ID
	}
	n, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}

// MediaFile is an attachment carried on a chat message.
type MediaFile struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	MimeType  string `json:"mimetype,omitempty"`
	FileType  string `json:"filetype,omitempty"`
	PermalinkPublic string `json:"permalink_public,omitempty"`
	URLPrivate      string `json:"url_private,omitempty"`
	URLFormat       string `json:"url_format,omitempty"`
	Width     int `json:"width,omitempty"`
	Height    int `json:"height,omitempty"`
	DurationMS int `json:"duration_ms,omitempty"`
}

// MediaKind classifies an attachment for release records.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ReleaseMedia is an image or video carried from a source message onto a
// release record, with a single resolved URL.
type ReleaseMedia struct {
	Kind   MediaKind `json:"kind"`
	URL    string    `json:"url"`
	Name   string    `json:"name,omitempty"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
}

// ReleaseType categorizes what kind of change a release describes.
type ReleaseType string

const (
	TypeNewFeature  ReleaseType = "New Feature"
	TypeImprovement ReleaseType = "Improvement"
	TypeBugFix      ReleaseType = "Bug Fix"
	TypeDeprecation ReleaseType = "Deprecation"
	TypeRollback    ReleaseType = "Rollback"
	TypeUpdate      ReleaseType = "Update"
)

// IsValid checks if the release type is one of the closed set.
func (t ReleaseType) IsValid() bool {
	switch t {
	case TypeNewFeature, TypeImprovement, TypeBugFix, TypeDeprecation, TypeRollback, TypeUpdate:
		return true
	}
	return false
}

// NormalizeReleaseType maps free-form model output onto the closed set,
// defaulting to Update for anything unrecognized.
func NormalizeReleaseType(s string) ReleaseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new feature", "feature", "new":
		return TypeNewFeature
	case "improvement", "enhancement":
		return TypeImprovement
	case "bug fix", "bugfix", "fix":
		return TypeBugFix
	case "deprecation", "deprecated":
		return TypeDeprecation
	case "rollback", "revert":
		return TypeRollback
	default:
		return TypeUpdate
	}
}

// Release is the structured output of an extraction for one
// release-worthy message.
type Release struct {
	ID string `json:"id"`

	// Provenance back to the source message. SourceEditedVersion is the
	// dedup key: it snapshots the message's edit marker at extraction time.
	SourceMessageID     string `json:"source_message_id"`
	SourceChannelID     string `json:"source_channel_id"`
	SourceThreadID      string `json:"source_thread_id,omitempty"`
	SourceEditedVersion string `json:"source_edited_version,omitempty"`
	PromptVersion       string `json:"prompt_version"`

	Date           time.Time      `json:"date"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Type           ReleaseType    `json:"type"`
	WhyThisMatters string         `json:"why_this_matters,omitempty"`
	Impact         string         `json:"impact,omitempty"`
	Media          []ReleaseMedia `json:"media,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required release fields before persistence.
func (r *Release) Validate() error {
	if r.SourceMessageID == "" {
		return fmt.Errorf("source_message_id is required")
	}
	if r.SourceChannelID == "" {
		return fmt.Errorf("source_channel_id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("invalid release type: %s", r.Type)
	}
	return nil
}

// RunSummary is the structured result of one pipeline run. Partial
// success is the expected shape: Errors holds per-message failures that
// did not abort the run.
type RunSummary struct {
	Fetched          int      `json:"fetched"`
	AlreadyProcessed int      `json:"already_processed"`
	Processed        int      `json:"processed"`
	Extracted        int      `json:"extracted"`
	Skipped          int      `json:"skipped"`
	Edited           int      `json:"edited"`
	PromptVersion    string   `json:"prompt_version"`
	Errors           []string `json:"errors,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// AddError records a per-message failure without aborting the run.
func (s *RunSummary) AddError(messageID string, err error) {
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", messageID, err))
}
