package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kettleworks/shiplog/internal/types"
)

func TestExtractSingleCandidate(t *testing.T) {
	fake := &fakeCaller{response: `[{"title": "Dark Mode", "description": "Shipped dark mode across the app", "type": "New Feature", "why_this_matters": "Most requested item"}]`}
	e := newTestEngine(t, fake)

	msg := &types.ChannelMessage{
		ID:        "1712345678.000100",
		ChannelID: "C1",
		Text:      "Shipped dark mode",
	}
	releases, err := e.Extract(context.Background(), msg, nil, "extract prompt", "v3")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(releases) != 1 {
		t.Fatalf("Expected 1 release, got %d", len(releases))
	}

	r := releases[0]
	if r.Title != "Dark Mode" {
		t.Errorf("Title = %s", r.Title)
	}
	if r.Type != types.TypeNewFeature {
		t.Errorf("Type = %s", r.Type)
	}
	if r.PromptVersion != "v3" {
		t.Errorf("PromptVersion = %s", r.PromptVersion)
	}
	// Date comes from the message's timestamp token, not wall-clock now.
	want := time.Unix(1712345678, 0).UTC()
	if !r.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", r.Date, want)
	}
	if r.SourceEditedVersion != "" {
		t.Errorf("Expected empty edit-version snapshot, got %s", r.SourceEditedVersion)
	}
}

func TestExtractTieBreakLongestDescription(t *testing.T) {
	fake := &fakeCaller{response: `[
		{"title": "Fix", "description": "short", "type": "Bug Fix"},
		{"title": "Fixed crash", "description": "a much longer and more complete description of the crash fix", "type": "Bug Fix"},
		{"title": "Crash fix", "description": "medium length text here", "type": "Bug Fix"}
	]`}
	e := newTestEngine(t, fake)

	msg := &types.ChannelMessage{ID: "1.0", ChannelID: "C1", Text: "fixed the crash"}
	releases, err := e.Extract(context.Background(), msg, nil, "p", "v1")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(releases) != 1 {
		t.Fatalf("Expected exactly 1 release after tie-break, got %d", len(releases))
	}
	if releases[0].Title != "Fixed crash" {
		t.Errorf("Expected longest-description candidate, got %s", releases[0].Title)
	}
}

func TestPickMostCompleteTiesFirstSeen(t *testing.T) {
	candidates := []Candidate{
		{Title: "First", Description: "same length"},
		{Title: "Second", Description: "same length"},
	}
	best := pickMostComplete(candidates)
	if best == nil || best.Title != "First" {
		t.Errorf("Expected first-seen to win ties, got %+v", best)
	}
}

func TestExtractZeroCandidates(t *testing.T) {
	fake := &fakeCaller{response: "[]"}
	e := newTestEngine(t, fake)

	msg := &types.ChannelMessage{ID: "1.0", ChannelID: "C1", Text: "lunch anyone?"}
	releases, err := e.Extract(context.Background(), msg, nil, "p", "v1")
	if err != nil {
		t.Fatalf("Zero candidates should not error: %v", err)
	}
	if len(releases) != 0 {
		t.Errorf("Expected 0 releases, got %d", len(releases))
	}
}

func TestExtractParseError(t *testing.T) {
	fake := &fakeCaller{response: "sorry, I can't help with that"}
	e := newTestEngine(t, fake)

	msg := &types.ChannelMessage{ID: "1.0", ChannelID: "C1", Text: "shipped"}
	_, err := e.Extract(context.Background(), msg, nil, "p", "v1")
	if err == nil {
		t.Fatal("Expected error for unparseable extraction response")
	}
}

func TestExtractCallError(t *testing.T) {
	fake := &fakeCaller{err: errors.New("401 unauthorized")}
	e := newTestEngine(t, fake)

	msg := &types.ChannelMessage{ID: "1.0", ChannelID: "C1", Text: "shipped"}
	_, err := e.Extract(context.Background(), msg, nil, "p", "v1")
	if err == nil {
		t.Fatal("Expected error for failed call")
	}
}

func TestExtractIncludesParentContext(t *testing.T) {
	fake := &fakeCaller{response: `[{"title": "T", "description": "d", "type": "Update"}]`}
	e := newTestEngine(t, fake)

	parent := &types.ChannelMessage{ID: "1.0", ChannelID: "C1", Text: "deploy thread for v2"}
	msg := &types.ChannelMessage{ID: "2.0", ChannelID: "C1", ThreadID: "1.0", Text: "fixed the bug above"}

	releases, err := e.Extract(context.Background(), msg, parent, "p", "v1")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(fake.prompts[0], "deploy thread for v2") {
		t.Error("Expected parent text in extraction prompt")
	}
	if releases[0].SourceThreadID != "1.0" {
		t.Errorf("SourceThreadID = %s, want 1.0", releases[0].SourceThreadID)
	}
}

func TestExtractDefaultsTypeToUpdate(t *testing.T) {
	fake := &fakeCaller{response: `[{"title": "T", "description": "d"}]`}
	e := newTestEngine(t, fake)

	msg := &types.ChannelMessage{ID: "1.0", ChannelID: "C1", Text: "shipped"}
	releases, err := e.Extract(context.Background(), msg, nil, "p", "v1")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if releases[0].Type != types.TypeUpdate {
		t.Errorf("Type = %s, want Update default", releases[0].Type)
	}
}
