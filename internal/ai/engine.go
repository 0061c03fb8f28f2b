package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// Caller abstracts the LLM endpoint: one bounded request, one text
// response. Tests substitute a fake; production uses the Anthropic API.
type Caller interface {
	Call(ctx context.Context, prompt, operation string, maxTokens int) (string, error)
}

// Engine runs the two-pass classify/extract protocol.
type Engine struct {
	caller    Caller
	maxTokens int
	retry     RetryConfig
	sem       *semaphore.Weighted
}

// Config holds engine construction parameters.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	Retry     RetryConfig

	// Caller overrides the Anthropic client, used by tests.
	Caller Caller

	// MaxConcurrentCalls bounds in-flight LLM requests. The pipeline is
	// sequential per message, but concurrent runs share one engine.
	MaxConcurrentCalls int
}

// NewEngine creates an extraction engine backed by the Anthropic API.
func NewEngine(cfg Config) (*Engine, error) {
	caller := cfg.Caller
	if caller == nil {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("model is required")
		}
		caller = &anthropicCaller{
			client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
			model:  cfg.Model,
		}
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}

	return &Engine{
		caller:    caller,
		maxTokens: maxTokens,
		retry:     retry,
		sem:       sem,
	}, nil
}

// call wraps the caller with retry and the concurrency limit.
func (e *Engine) call(ctx context.Context, prompt, operation string) (string, error) {
	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer e.sem.Release(1)
	}

	var response string
	err := retryWithBackoff(ctx, e.retry, operation, func(attemptCtx context.Context) error {
		resp, callErr := e.caller.Call(attemptCtx, prompt, operation, e.maxTokens)
		if callErr != nil {
			return callErr
		}
		response = resp
		return nil
	})
	return response, err
}

// anthropicCaller issues a single user-role message to the Messages API.
type anthropicCaller struct {
	client anthropic.Client
	model  string
}

func (a *anthropicCaller) Call(ctx context.Context, prompt, operation string, maxTokens int) (string, error) {
	start := time.Now()

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	slog.Debug("LLM call complete",
		"operation", operation,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", time.Since(start))

	return text, nil
}
