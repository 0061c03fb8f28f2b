// Package prompts manages the named LLM prompts used by the two-pass
// extraction protocol.
package prompts

import (
	"context"
	"fmt"

	"github.com/kettleworks/shiplog/internal/storage"
)

// Prompt names used by the pipeline.
const (
	NameClassify = "classify_releases"
	NameExtract  = "extract_releases"
)

const defaultClassifyPrompt = `You are reviewing messages from an engineering team's ship channel.
Decide which messages describe a software change that was actually shipped
(deployed, released, rolled out, or rolled back). Questions, discussion,
status updates without a shipped change, and social chatter do not qualify.

Respond with a JSON array of the message ids that describe shipped changes,
for example: ["1712345678.000100", "1712349999.000200"]
Respond with the JSON array only, no other text.`

const defaultExtractPrompt = `Extract structured release notes from the chat message below.
Respond with a JSON array. For each distinct shipped change, include an object with:
  "title": short customer-facing name of the change
  "description": one or two sentences describing what shipped
  "type": one of "New Feature", "Improvement", "Bug Fix", "Deprecation", "Rollback", "Update"
  "why_this_matters": (optional) why a customer should care
  "impact": (optional) who or what is affected
If the message does not actually describe a shipped change, respond with [].
Respond with the JSON array only, no other text.`

// Prompt is a named prompt with its opaque version tag. The version is
// stamped onto every release produced with the prompt and drives bulk
// re-extraction decisions later.
type Prompt struct {
	Name    string
	Text    string
	Version string
}

// Store fetches named prompts for pipeline runs.
type Store struct {
	backend storage.Storage
}

// NewStore wraps the storage backend and seeds the built-in prompts if
// they are not already present. Operator edits are never overwritten.
func NewStore(ctx context.Context, backend storage.Storage) (*Store, error) {
	for name, text := range map[string]string{
		NameClassify: defaultClassifyPrompt,
		NameExtract:  defaultExtractPrompt,
	} {
		if err := backend.SeedPrompt(ctx, name, text); err != nil {
			return nil, fmt.Errorf("seed prompt %s: %w", name, err)
		}
	}
	return &Store{backend: backend}, nil
}

// Fetch returns a named prompt. A missing prompt is a fatal run
// precondition: the pipeline cannot classify or extract without
// instructions.
func (s *Store) Fetch(ctx context.Context, name string) (*Prompt, error) {
	text, version, err := s.backend.GetPrompt(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetch prompt %s: %w", name, err)
	}
	return &Prompt{Name: name, Text: text, Version: version}, nil
}

// Set updates a named prompt's text, bumping its version.
func (s *Store) Set(ctx context.Context, name, text string) (string, error) {
	return s.backend.SetPrompt(ctx, name, text)
}
