package chat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kettleworks/shiplog/internal/config"
	"github.com/kettleworks/shiplog/internal/types"
)

// System event subtypes that never describe a shipped change.
var ignoredSubtypes = map[string]bool{
	"channel_join":    true,
	"channel_leave":   true,
	"channel_topic":   true,
	"channel_purpose": true,
	"channel_name":    true,
	"message_deleted": true,
	"message_changed": true,
}

// Adapter is the source adapter: it fetches raw channel messages,
// normalizes them into the canonical shape, and drops messages from
// denylisted senders. Denylist filtering is a hard precondition, not
// best-effort: automated bots re-posting release notes would otherwise
// feed extracted releases back into the pipeline.
type Adapter struct {
	client    *Client
	cfg       *config.Config
	channelID string
}

// NewAdapter creates the source adapter for the configured channel.
func NewAdapter(client *Client, cfg *config.Config) *Adapter {
	return &Adapter{
		client:    client,
		cfg:       cfg,
		channelID: cfg.Chat.ChannelID,
	}
}

// ChannelID returns the ingestion channel this adapter reads.
func (a *Adapter) ChannelID() string {
	return a.channelID
}

// Fetch returns all normalized, denylist-filtered messages from the
// configured channel within the trailing window. A transport error
// aborts the whole fetch; no partial message set is returned.
func (a *Adapter) Fetch(ctx context.Context, window time.Duration) ([]*types.ChannelMessage, error) {
	oldest := oldestToken(time.Now().Add(-window))
	raw, err := a.client.History(ctx, a.channelID, oldest, "")
	if err != nil {
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}
	return a.normalizeAll(raw), nil
}

// FetchThread returns the normalized, filtered messages of one thread
// (root plus replies).
func (a *Adapter) FetchThread(ctx context.Context, threadID string) ([]*types.ChannelMessage, error) {
	raw, err := a.client.Replies(ctx, a.channelID, threadID)
	if err != nil {
		return nil, fmt.Errorf("fetch thread %s: %w", threadID, err)
	}
	return a.normalizeAll(raw), nil
}

// FetchMessage returns a single message by ID, or nil when the
// platform no longer has it.
func (a *Adapter) FetchMessage(ctx context.Context, messageID string) (*types.ChannelMessage, error) {
	// The replies endpoint with the message's own ts returns the message
	// itself (plus replies when it is a thread root).
	msgs, err := a.FetchThread(ctx, messageID)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, nil
}

func (a *Adapter) normalizeAll(raw []Message) []*types.ChannelMessage {
	out := make([]*types.ChannelMessage, 0, len(raw))
	for i := range raw {
		if m := a.normalize(&raw[i]); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// normalize converts one wire message to the canonical shape. Returns
// nil for system events and denylisted senders.
func (a *Adapter) normalize(raw *Message) *types.ChannelMessage {
	if raw.TS == "" || ignoredSubtypes[raw.Subtype] {
		return nil
	}
	if a.cfg.DeniedSender(raw.User, raw.BotID, raw.Username) {
		return nil
	}

	msg := &types.ChannelMessage{
		ID:         raw.TS,
		ChannelID:  a.channelID,
		Text:       raw.Text,
		UserID:     raw.User,
		Username:   raw.Username,
		BotID:      raw.BotID,
		Subtype:    raw.Subtype,
		ThreadID:   raw.ThreadTS,
		ReplyCount: raw.ReplyCount,
	}
	if raw.Edited != nil {
		msg.EditedVersion = raw.Edited.TS
	}
	for _, f := range raw.Files {
		msg.Files = append(msg.Files, types.MediaFile{
			ID:              f.ID,
			Name:            f.Name,
			MimeType:        f.Mimetype,
			FileType:        f.Filetype,
			PermalinkPublic: f.PermalinkPublic,
			URLPrivate:      f.URLPrivate,
			URLFormat:       f.URLFormatted,
			Width:           f.Width,
			Height:          f.Height,
			DurationMS:      f.DurationMS,
		})
	}
	return msg
}

// oldestToken formats a time as the platform's timestamp token.
func oldestToken(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10) + ".000000"
}
