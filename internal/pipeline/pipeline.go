package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kettleworks/shiplog/internal/prompts"
	"github.com/kettleworks/shiplog/internal/storage"
	"github.com/kettleworks/shiplog/internal/types"
)

// deleteConcurrency bounds parallel release deletes for edited
// messages. Deletes for distinct message ids are independent and
// commutative.
const deleteConcurrency = 4

// Source fetches normalized, denylist-filtered messages.
type Source interface {
	ChannelID() string
	Fetch(ctx context.Context, window time.Duration) ([]*types.ChannelMessage, error)
	FetchThread(ctx context.Context, threadID string) ([]*types.ChannelMessage, error)
	FetchMessage(ctx context.Context, messageID string) (*types.ChannelMessage, error)
}

// Hydrator fills in thread context for a batch.
type Hydrator interface {
	HydrateMissingParents(ctx context.Context, messages []*types.ChannelMessage) []*types.ChannelMessage
	HydrateRecentReplies(ctx context.Context, knownThreadIDs []string, window time.Duration, messages []*types.ChannelMessage) []*types.ChannelMessage
}

// Extractor runs the two-pass LLM protocol.
type Extractor interface {
	Classify(ctx context.Context, group *types.ThreadGroup, prompt string) map[string]bool
	Extract(ctx context.Context, msg, parent *types.ChannelMessage, prompt, promptVersion string) ([]*types.Release, error)
}

// Notifier announces inserted releases. Implementations must swallow
// their own failures; notification never fails a run.
type Notifier interface {
	Notify(ctx context.Context, inserted []*types.Release)
}

// PromptFetcher resolves named prompts. A missing prompt aborts a run
// before any side effect.
type PromptFetcher interface {
	Fetch(ctx context.Context, name string) (*prompts.Prompt, error)
}

// Pipeline wires the components of one ingestion flow. All entry
// points (batch sync, webhook push, manual resync) funnel through the
// same dedup and extraction path.
type Pipeline struct {
	source   Source
	hydrator Hydrator
	engine   Extractor
	store    storage.Storage
	prompts  PromptFetcher
	notifier Notifier
	window   time.Duration
}

// New constructs a pipeline. notifier may be nil.
func New(source Source, hydrator Hydrator, engine Extractor, store storage.Storage, promptStore PromptFetcher, notifier Notifier, window time.Duration) *Pipeline {
	return &Pipeline{
		source:   source,
		hydrator: hydrator,
		engine:   engine,
		store:    store,
		prompts:  promptStore,
		notifier: notifier,
		window:   window,
	}
}

// RunBatch executes a full polling run: fetch the window, hydrate
// threads, and process everything through dedup and extraction.
func (p *Pipeline) RunBatch(ctx context.Context) (*types.RunSummary, error) {
	messages, err := p.source.Fetch(ctx, p.window)
	if err != nil {
		return nil, fmt.Errorf("batch fetch: %w", err)
	}

	known, err := p.store.GetKnownThreadIDs(ctx, p.source.ChannelID())
	if err != nil {
		return nil, fmt.Errorf("load known threads: %w", err)
	}
	messages = p.hydrator.HydrateRecentReplies(ctx, known, p.window, messages)

	return p.process(ctx, messages)
}

// RunThread executes a manual resync of one thread.
func (p *Pipeline) RunThread(ctx context.Context, threadID string) (*types.RunSummary, error) {
	messages, err := p.source.FetchThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("thread fetch: %w", err)
	}
	return p.process(ctx, messages)
}

// RunMessage executes a single-message run, the webhook path. The
// message is re-fetched from the source so the pipeline always works
// from current content rather than a possibly stale event payload.
func (p *Pipeline) RunMessage(ctx context.Context, messageID string) (*types.RunSummary, error) {
	msg, err := p.source.FetchMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("message fetch: %w", err)
	}
	if msg == nil {
		// Deleted or filtered out; nothing to do.
		return &types.RunSummary{StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC()}, nil
	}
	return p.process(ctx, []*types.ChannelMessage{msg})
}

// process is the shared core: hydrate parents, partition against
// stored state, delete stale rows for edited messages, re-check, then
// classify, extract, and persist sequentially per thread group.
func (p *Pipeline) process(ctx context.Context, messages []*types.ChannelMessage) (*types.RunSummary, error) {
	summary := &types.RunSummary{StartedAt: time.Now().UTC()}

	// Missing prompts are fatal before any side effect.
	classifyPrompt, err := p.prompts.Fetch(ctx, prompts.NameClassify)
	if err != nil {
		return nil, err
	}
	extractPrompt, err := p.prompts.Fetch(ctx, prompts.NameExtract)
	if err != nil {
		return nil, err
	}
	summary.PromptVersion = extractPrompt.Version

	defer func() {
		summary.FinishedAt = time.Now().UTC()
		if err := p.store.RecordRun(ctx, summary); err != nil {
			slog.Warn("failed to record run summary", "error", err)
		}
	}()

	messages = p.hydrator.HydrateMissingParents(ctx, messages)
	summary.Fetched = len(messages)

	channelID := p.source.ChannelID()
	existing, err := p.store.GetExistingEditVersions(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("load edit versions: %w", err)
	}

	part := PartitionByEditState(messages, existing)
	summary.AlreadyProcessed = len(part.Unchanged)
	summary.Edited = len(part.Edited)

	// Batch delete stale rows for edited messages, then requery once.
	// The requery guards against a concurrent run having processed a
	// message between our read and our delete.
	candidates := part.New
	if len(part.Edited) > 0 {
		deleted := p.deleteStale(ctx, part.Edited, summary)
		candidates = append(candidates, deleted...)

		existing, err = p.store.GetExistingEditVersions(ctx, channelID)
		if err != nil {
			return nil, fmt.Errorf("reload edit versions: %w", err)
		}
		recheck := PartitionByEditState(candidates, existing)
		summary.AlreadyProcessed += len(recheck.Unchanged)
		candidates = append(recheck.New, recheck.Edited...)
	}

	if len(candidates) == 0 {
		return summary, nil
	}

	toProcess := make(map[string]bool, len(candidates))
	for _, m := range candidates {
		toProcess[m.ID] = true
	}

	// Thread groups are built over the full hydrated set so classify
	// and extract always see complete context, even when only part of
	// a thread needs processing.
	var inserted []*types.Release
	for _, group := range types.GroupByThread(messages) {
		groupNeedsWork := false
		for _, m := range group.Messages {
			if toProcess[m.ID] {
				groupNeedsWork = true
				break
			}
		}
		if !groupNeedsWork {
			continue
		}

		worthy := p.engine.Classify(ctx, group, classifyPrompt.Text)
		root := group.Root()

		for _, msg := range group.Messages {
			if !toProcess[msg.ID] {
				continue
			}
			summary.Processed++

			if !worthy[msg.ID] {
				summary.Skipped++
				continue
			}

			var parent *types.ChannelMessage
			if msg.IsThreadReply() && root != nil {
				parent = root
			}

			releases, err := p.engine.Extract(ctx, msg, parent, extractPrompt.Text, extractPrompt.Version)
			if err != nil {
				// One bad message never aborts the batch.
				summary.AddError(msg.ID, err)
				continue
			}
			if len(releases) == 0 {
				summary.Skipped++
				continue
			}

			for _, release := range releases {
				if _, err := p.store.InsertRelease(ctx, release); err != nil {
					// Insert failure for one release does not block the rest.
					slog.Warn("release insert failed", "message", msg.ID, "error", err)
					summary.AddError(msg.ID, err)
					continue
				}
				inserted = append(inserted, release)
				summary.Extracted++
			}
		}
	}

	if p.notifier != nil && len(inserted) > 0 {
		p.notifier.Notify(ctx, inserted)
	}
	return summary, nil
}

// deleteStale removes all release rows for edited messages, fanning
// out bounded parallel deletes. Messages whose delete failed are
// excluded from re-extraction this run so rows never accumulate across
// edit versions; they are retried wholesale next run.
func (p *Pipeline) deleteStale(ctx context.Context, edited []*types.ChannelMessage, summary *types.RunSummary) []*types.ChannelMessage {
	var mu sync.Mutex
	kept := make([]*types.ChannelMessage, 0, len(edited))

	g := new(errgroup.Group)
	g.SetLimit(deleteConcurrency)
	for _, msg := range edited {
		g.Go(func() error {
			n, err := p.store.DeleteReleasesForMessage(ctx, msg.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.AddError(msg.ID, fmt.Errorf("delete stale releases: %w", err))
				return nil
			}
			slog.Debug("deleted stale releases for edited message", "message", msg.ID, "rows", n)
			kept = append(kept, msg)
			return nil
		})
	}
	_ = g.Wait()
	return kept
}
