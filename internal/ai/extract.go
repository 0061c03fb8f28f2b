package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/kettleworks/shiplog/internal/types"
)

// Candidate is one release candidate as returned by Pass 2, before
// tie-breaking and media attachment.
type Candidate struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	WhyThisMatters string `json:"why_this_matters,omitempty"`
	Impact         string `json:"impact,omitempty"`
}

// Extract runs Pass 2 for a single release-worthy message and returns
// the structured releases derived from it. parent supplies thread
// context and may be nil (orphaned reply, or standalone message).
//
// The model may over-generate paraphrase variants of what is
// semantically one change; when it returns multiple candidates, only
// the one with the longest description survives (first seen wins ties).
// Zero candidates is a valid outcome meaning "not actually a release".
func (e *Engine) Extract(ctx context.Context, msg, parent *types.ChannelMessage, prompt, promptVersion string) ([]*types.Release, error) {
	full := buildExtractionPrompt(msg, parent, prompt)

	response, err := e.call(ctx, full, "extract")
	if err != nil {
		return nil, fmt.Errorf("extraction call for %s: %w", msg.ID, err)
	}

	result := ParseLenient[[]Candidate](response, "extraction response")
	if !result.OK {
		return nil, fmt.Errorf("extraction response for %s: %s", msg.ID, result.Error)
	}

	best := pickMostComplete(result.Data)
	if best == nil {
		return nil, nil
	}

	release := &types.Release{
		SourceMessageID:     msg.ID,
		SourceChannelID:     msg.ChannelID,
		SourceEditedVersion: msg.EditedVersion,
		PromptVersion:       promptVersion,
		Date:                msg.Timestamp(),
		Title:               strings.TrimSpace(best.Title),
		Description:         strings.TrimSpace(best.Description),
		Type:                types.NormalizeReleaseType(best.Type),
		WhyThisMatters:      strings.TrimSpace(best.WhyThisMatters),
		Impact:              strings.TrimSpace(best.Impact),
		Media:               ExtractMedia(msg),
	}
	if msg.IsThreadReply() {
		release.SourceThreadID = msg.ThreadID
	}
	return []*types.Release{release}, nil
}

// pickMostComplete collapses multiple candidates into the one with the
// longest description. Deliberate information loss: near-duplicate
// paraphrases from the model would otherwise each become a row.
func pickMostComplete(candidates []Candidate) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		if best == nil || len(c.Description) > len(best.Description) {
			best = c
		}
	}
	return best
}

func buildExtractionPrompt(msg, parent *types.ChannelMessage, prompt string) string {
	var b strings.Builder
	b.WriteString(prompt)
	if parent != nil && parent.ID != msg.ID {
		fmt.Fprintf(&b, "\n\nThread context (parent message, dated %s):\n%s\n",
			parent.Timestamp().Format("2006-01-02"), parent.Text)
	}
	fmt.Fprintf(&b, "\nMessage to analyze (dated %s):\n%s\n",
		msg.Timestamp().Format("2006-01-02"), msg.Text)
	return b.String()
}
