package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeAPI serves a Slack-compatible web API from canned pages.
type fakeAPI struct {
	historyPages map[string][]Message // cursor -> page ("" is the first)
	replies      map[string][]Message // thread ts -> full thread
	posted       []map[string]string
	failJSON     bool
	status       int
	requests     int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.history", func(w http.ResponseWriter, r *http.Request) {
		f.requests++
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		if f.failJSON {
			w.Write([]byte("not json"))
			return
		}
		cursor := r.URL.Query().Get("cursor")
		page := f.historyPages[cursor]
		next := ""
		hasMore := false
		if cursor == "" && len(f.historyPages) > 1 {
			next = "page2"
			hasMore = true
		}
		resp := map[string]any{
			"ok":       true,
			"messages": page,
			"has_more": hasMore,
			"response_metadata": map[string]string{
				"next_cursor": next,
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/conversations.replies", func(w http.ResponseWriter, r *http.Request) {
		f.requests++
		ts := r.URL.Query().Get("ts")
		thread, ok := f.replies[ts]
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "thread_not_found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "messages": thread})
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		f.requests++
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		f.posted = append(f.posted, body)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	return mux
}

func newFakeClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "xoxb-test")
	return c
}

func TestHistoryPaginates(t *testing.T) {
	api := &fakeAPI{
		historyPages: map[string][]Message{
			"":      {{TS: "2.0", Text: "b"}, {TS: "1.0", Text: "a"}},
			"page2": {{TS: "0.5", Text: "old"}},
		},
	}
	c := newFakeClient(t, api)

	msgs, err := c.History(context.Background(), "C1", "", "")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages across pages, got %d", len(msgs))
	}
	if api.requests != 2 {
		t.Errorf("Expected 2 paginated requests, got %d", api.requests)
	}
}

func TestHistoryAPIError(t *testing.T) {
	api := &fakeAPI{}
	c := newFakeClient(t, api)
	api.historyPages = nil

	// ok:true with empty page is fine; force an API-level error instead.
	api.replies = map[string][]Message{}
	_, err := c.Replies(context.Background(), "C1", "9.9")
	if err == nil {
		t.Fatal("Expected error for thread_not_found")
	}
}

func TestHistoryHTTPError(t *testing.T) {
	api := &fakeAPI{status: http.StatusBadGateway}
	c := newFakeClient(t, api)

	_, err := c.History(context.Background(), "C1", "", "")
	if err == nil {
		t.Fatal("Expected error on HTTP 502")
	}
}

func TestHistoryMalformedBody(t *testing.T) {
	api := &fakeAPI{failJSON: true}
	c := newFakeClient(t, api)

	_, err := c.History(context.Background(), "C1", "", "")
	if err == nil {
		t.Fatal("Expected error on malformed body")
	}
}

func TestPostMessage(t *testing.T) {
	api := &fakeAPI{}
	c := newFakeClient(t, api)

	if err := c.PostMessage(context.Background(), "C-ANNOUNCE", "3 new releases"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}
	if len(api.posted) != 1 || api.posted[0]["channel"] != "C-ANNOUNCE" {
		t.Errorf("Unexpected posted payload: %+v", api.posted)
	}
}
