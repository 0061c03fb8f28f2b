// Package notify announces newly extracted releases on a side channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kettleworks/shiplog/internal/types"
)

// Poster posts a message to a chat channel.
type Poster interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

// Notifier is a best-effort announcer. Every failure is logged and
// swallowed; notification can never fail a pipeline run.
type Notifier struct {
	poster    Poster
	channelID string
	maxItems  int
}

// New creates a notifier for the announcement channel. The channel
// must differ from the ingestion channel or extracted releases would
// feed back into the pipeline.
func New(poster Poster, announceChannelID, ingestChannelID string, maxItems int) (*Notifier, error) {
	if announceChannelID == "" {
		return nil, fmt.Errorf("announce channel id is required")
	}
	if announceChannelID == ingestChannelID {
		return nil, fmt.Errorf("announce channel %s must differ from ingest channel", announceChannelID)
	}
	if maxItems <= 0 {
		maxItems = 10
	}
	return &Notifier{poster: poster, channelID: announceChannelID, maxItems: maxItems}, nil
}

// Notify announces inserted releases, capping the itemized list and
// summarizing the remainder as a count to bound message size.
func (n *Notifier) Notify(ctx context.Context, inserted []*types.Release) {
	if len(inserted) == 0 {
		return
	}

	text := n.format(inserted)
	if err := n.poster.PostMessage(ctx, n.channelID, text); err != nil {
		slog.Warn("release announcement failed", "channel", n.channelID, "error", err)
	}
}

func (n *Notifier) format(inserted []*types.Release) string {
	var b strings.Builder
	if len(inserted) == 1 {
		b.WriteString("1 new release extracted:\n")
	} else {
		fmt.Fprintf(&b, "%d new releases extracted:\n", len(inserted))
	}

	shown := inserted
	if len(shown) > n.maxItems {
		shown = shown[:n.maxItems]
	}
	for _, r := range shown {
		fmt.Fprintf(&b, "• [%s] %s (%s)\n", r.Type, r.Title, r.Date.Format("2006-01-02"))
	}
	if rest := len(inserted) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "…and %d more\n", rest)
	}
	return b.String()
}
