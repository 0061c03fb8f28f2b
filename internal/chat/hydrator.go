package chat

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kettleworks/shiplog/internal/types"
)

// threadPollConcurrency bounds parallel thread re-polls. The fetches
// are read-only and idempotent, so fanning out is safe.
const threadPollConcurrency = 4

// Hydrator guarantees that every message handed to the extraction
// engine has its thread context available.
type Hydrator struct {
	source *Adapter
}

// NewHydrator creates a hydrator reading through the given adapter.
func NewHydrator(source *Adapter) *Hydrator {
	return &Hydrator{source: source}
}

// HydrateMissingParents ensures every thread reply in the batch has its
// parent present, fetching absent parents by re-querying their thread.
// A parent that cannot be fetched (network, deleted) is logged and the
// reply proceeds without context; it is never fatal.
func (h *Hydrator) HydrateMissingParents(ctx context.Context, messages []*types.ChannelMessage) []*types.ChannelMessage {
	present := make(map[string]bool, len(messages))
	for _, m := range messages {
		present[m.ID] = true
	}

	out := messages
	fetched := make(map[string]bool)
	for _, m := range messages {
		if !m.IsThreadReply() || present[m.ThreadID] || fetched[m.ThreadID] {
			continue
		}
		fetched[m.ThreadID] = true

		thread, err := h.source.FetchThread(ctx, m.ThreadID)
		if err != nil {
			slog.Warn("could not hydrate thread parent, extracting without context",
				"thread", m.ThreadID, "error", err)
			continue
		}
		for _, tm := range thread {
			if tm.ID == m.ThreadID && !present[tm.ID] {
				out = append(out, tm)
				present[tm.ID] = true
			}
		}
		if !present[m.ThreadID] {
			slog.Warn("thread parent not found, extracting without context",
				"thread", m.ThreadID)
		}
	}
	return out
}

// HydrateRecentReplies re-polls previously-seen threads for replies
// inside the window and merges them into the batch, deduplicated by
// message ID. A plain history fetch misses replies to threads whose
// root is older than the window; this closes that gap. Thread polls
// run in parallel since they are independent read-only fetches.
func (h *Hydrator) HydrateRecentReplies(ctx context.Context, knownThreadIDs []string, window time.Duration, messages []*types.ChannelMessage) []*types.ChannelMessage {
	if len(knownThreadIDs) == 0 {
		return messages
	}

	cutoff := time.Now().Add(-window)

	var mu sync.Mutex
	var polled []*types.ChannelMessage

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threadPollConcurrency)
	for _, threadID := range knownThreadIDs {
		g.Go(func() error {
			thread, err := h.source.FetchThread(gctx, threadID)
			if err != nil {
				// Best effort per thread: a failed poll only loses that
				// thread's new replies until the next run.
				slog.Warn("thread re-poll failed", "thread", threadID, "error", err)
				return nil
			}
			mu.Lock()
			polled = append(polled, thread...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool, len(messages))
	for _, m := range messages {
		seen[m.ID] = true
	}

	out := messages
	for _, m := range polled {
		if seen[m.ID] {
			continue
		}
		// Roots are kept regardless of age so replies retain context;
		// replies outside the window wait for their own edit or resync.
		if m.IsThreadReply() && m.Timestamp().Before(cutoff) {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
