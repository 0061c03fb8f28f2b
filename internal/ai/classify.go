package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kettleworks/shiplog/internal/types"
)

// smallGroupThreshold is the thread size at or below which Pass 1 is
// skipped entirely: small groups are assumed signal, and skipping the
// call saves cost and latency without affecting correctness (Pass 2
// can still yield zero releases).
const smallGroupThreshold = 2

// previewLen bounds message bodies in the classification prompt.
const previewLen = 400

// Classify runs Pass 1 over a thread group and returns the set of
// message IDs judged release-worthy.
//
// The policy is fail open: a call failure, unparseable response, or an
// empty id list treats every message in the group as release-worthy.
// False positives are cheap here because Pass 2 can return zero
// candidates for a non-release message; false negatives silently drop
// releases.
func (e *Engine) Classify(ctx context.Context, group *types.ThreadGroup, prompt string) map[string]bool {
	all := make(map[string]bool, len(group.Messages))
	for _, m := range group.Messages {
		all[m.ID] = true
	}

	if len(group.Messages) <= smallGroupThreshold {
		return all
	}

	full := prompt + "\n\nMessages:\n" + formatGroup(group)
	response, err := e.call(ctx, full, "classify")
	if err != nil {
		slog.Warn("classification call failed, treating whole group as release-worthy",
			"thread", group.RootID, "error", err)
		return all
	}

	result := ParseLenient[[]string](response, "classification response")
	if !result.OK || len(result.Data) == 0 {
		slog.Warn("classification response unusable, treating whole group as release-worthy",
			"thread", group.RootID, "error", result.Error)
		return all
	}

	worthy := make(map[string]bool, len(result.Data))
	for _, id := range result.Data {
		if all[id] {
			worthy[id] = true
		}
	}
	if len(worthy) == 0 {
		// Model returned only ids we never sent it.
		slog.Warn("classification returned no known message ids, treating whole group as release-worthy",
			"thread", group.RootID)
		return all
	}
	return worthy
}

// formatGroup renders a thread group as "[id] [date] text" lines with
// truncated previews, oldest first.
func formatGroup(group *types.ThreadGroup) string {
	var b strings.Builder
	for _, m := range group.Messages {
		text := strings.ReplaceAll(m.Text, "\n", " ")
		if len(text) > previewLen {
			text = text[:previewLen] + "..."
		}
		fmt.Fprintf(&b, "[%s] [%s] %s\n", m.ID, m.Timestamp().Format("2006-01-02"), text)
	}
	return b.String()
}
