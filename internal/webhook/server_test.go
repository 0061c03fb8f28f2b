package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kettleworks/shiplog/internal/types"
)

type fakeRunner struct {
	ran []string
	err error
}

func (f *fakeRunner) RunMessage(ctx context.Context, messageID string) (*types.RunSummary, error) {
	f.ran = append(f.ran, messageID)
	if f.err != nil {
		return nil, f.err
	}
	return &types.RunSummary{Fetched: 1, Extracted: 1}, nil
}

func postEvent(t *testing.T, srv *Server, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Shiplog-Token", token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestWebhookRunsMessage(t *testing.T) {
	runner := &fakeRunner{}
	srv := NewServer(runner, "C1", "")

	w := postEvent(t, srv, "", `{"type": "message", "channel_id": "C1", "message_id": "1712345678.000100"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(runner.ran) != 1 || runner.ran[0] != "1712345678.000100" {
		t.Errorf("Runner calls = %v", runner.ran)
	}
}

func TestWebhookRejectsBadToken(t *testing.T) {
	runner := &fakeRunner{}
	srv := NewServer(runner, "C1", "secret")

	w := postEvent(t, srv, "wrong", `{"type": "message", "channel_id": "C1", "message_id": "1.0"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
	if len(runner.ran) != 0 {
		t.Error("Runner must not be called with an invalid token")
	}
}

func TestWebhookIgnoresOtherChannels(t *testing.T) {
	runner := &fakeRunner{}
	srv := NewServer(runner, "C1", "")

	w := postEvent(t, srv, "", `{"type": "message", "channel_id": "C-OTHER", "message_id": "1.0"}`)
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200 ack", w.Code)
	}
	if len(runner.ran) != 0 {
		t.Error("Events for other channels must be ignored")
	}
}

func TestWebhookBadPayload(t *testing.T) {
	srv := NewServer(&fakeRunner{}, "C1", "")
	w := postEvent(t, srv, "", `{"type": "message"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestWebhookRunFailureIsRetryable(t *testing.T) {
	runner := &fakeRunner{err: errors.New("llm down")}
	srv := NewServer(runner, "C1", "")

	w := postEvent(t, srv, "", `{"type": "message", "channel_id": "C1", "message_id": "1.0"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500 so the sender retries", w.Code)
	}
}
