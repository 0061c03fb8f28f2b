// Package ai implements the two-pass LLM protocol that classifies chat
// messages and extracts structured release records from them.
package ai

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Pre-compiled patterns; compiling per parse is measurably slower.
var (
	// Matches ```json\n...\n``` and bare ``` fences anywhere in the text.
	codeFenceRegex = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\n?([\\s\\S]*?)\n?`{3}")

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

	// Greedy extraction of a JSON array or object from mixed prose.
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// ParseResult is the outcome of a lenient JSON parse. A failure is a
// value, not an error, so call sites can distinguish "model said no
// releases" from "couldn't understand the model".
type ParseResult[T any] struct {
	OK    bool
	Data  T
	Error string
}

// ParseLenient parses JSON from raw LLM output with fallback repair:
//
//  1. strict parse of the trimmed text
//  2. strip a markdown code-fence wrapper and retry
//  3. remove trailing commas and retry
//  4. extract the first JSON array/object from mixed prose and retry
//
// Anything past step 1 is logged at debug level for prompt tuning.
func ParseLenient[T any](text, context string) ParseResult[T] {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parseFailure[T]("empty response", context)
	}

	if data, err := strictParse[T](trimmed); err == nil {
		return ParseResult[T]{OK: true, Data: data}
	}

	slog.Debug("strict JSON parse failed, attempting repair",
		"context", context,
		"preview", preview(trimmed, 120))

	unfenced := stripCodeFence(trimmed)
	if unfenced != trimmed {
		if data, err := strictParse[T](unfenced); err == nil {
			return ParseResult[T]{OK: true, Data: data}
		}
	}

	repaired := trailingCommaRegex.ReplaceAllString(unfenced, "$1")
	if data, err := strictParse[T](repaired); err == nil {
		return ParseResult[T]{OK: true, Data: data}
	}

	if extracted := extractJSON(repaired); extracted != "" {
		if data, err := strictParse[T](extracted); err == nil {
			return ParseResult[T]{OK: true, Data: data}
		}
	}

	return parseFailure[T]("no parseable JSON after repair attempts", context)
}

func strictParse[T any](text string) (T, error) {
	var out T
	err := json.Unmarshal([]byte(text), &out)
	return out, err
}

// stripCodeFence removes a markdown fence wrapper, keeping its body.
func stripCodeFence(text string) string {
	cleaned := codeFenceRegex.ReplaceAllString(text, "$1")
	return strings.TrimSpace(cleaned)
}

// extractJSON pulls the first JSON array or object out of surrounding
// prose. Arrays are tried first: both passes of the protocol expect an
// array at top level.
func extractJSON(text string) string {
	if m := arrayRegex.FindString(text); m != "" {
		return m
	}
	return objectRegex.FindString(text)
}

func parseFailure[T any](msg, context string) ParseResult[T] {
	if context != "" {
		msg = context + ": " + msg
	}
	return ParseResult[T]{Error: msg}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
