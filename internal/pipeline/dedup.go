// Package pipeline orchestrates ingestion: hydration, dedup, two-pass
// extraction, idempotent persistence, and notification.
package pipeline

import (
	"github.com/kettleworks/shiplog/internal/types"
)

// Partition classifies a batch of messages against previously persisted
// extraction state. The three classes are disjoint.
type Partition struct {
	// New messages have no release rows yet.
	New []*types.ChannelMessage
	// Unchanged messages have rows whose stored edit-version matches the
	// current one; they are skipped entirely (no LLM call, no write).
	Unchanged []*types.ChannelMessage
	// Edited messages have rows with a different edit-version; their rows
	// are deleted before re-extraction.
	Edited []*types.ChannelMessage
}

// PartitionByEditState compares each message's edit-version against the
// version snapshot stored on its existing release rows. The platform's
// edit marker is the only reliable change signal: timestamps cannot
// distinguish an edited parent from one that merely gained replies.
func PartitionByEditState(messages []*types.ChannelMessage, existing map[string]string) Partition {
	var p Partition
	for _, m := range messages {
		stored, ok := existing[m.ID]
		switch {
		case !ok:
			p.New = append(p.New, m)
		case stored == m.EditedVersion:
			// Both empty means never edited then, never edited now.
			p.Unchanged = append(p.Unchanged, m)
		default:
			p.Edited = append(p.Edited, m)
		}
	}
	return p
}
