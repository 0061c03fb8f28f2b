package chat

import (
	"context"
	"testing"

	"github.com/kettleworks/shiplog/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Chat: config.ChatConfig{ChannelID: "C1"},
		Denylist: config.DenylistConfig{
			BotIDs:         []string{"B-RELEASEBOT"},
			NameSubstrings: []string{"changelog"},
		},
	}
}

func TestAdapterNormalize(t *testing.T) {
	a := NewAdapter(nil, testConfig())

	raw := &Message{
		TS:         "1712345678.000100",
		Text:       "Shipped dark mode",
		User:       "U1",
		ThreadTS:   "1712345678.000100",
		ReplyCount: 2,
		Edited:     &struct {
			TS string `json:"ts"`
		}{TS: "1712349999.000000"},
		Files: []File{{ID: "F1", Mimetype: "image/png", URLPrivate: "https://priv/x.png"}},
	}

	m := a.normalize(raw)
	if m == nil {
		t.Fatal("Expected normalized message")
	}
	if m.ID != "1712345678.000100" || m.ChannelID != "C1" {
		t.Errorf("Identity wrong: %s / %s", m.ID, m.ChannelID)
	}
	if m.EditedVersion != "1712349999.000000" {
		t.Errorf("EditedVersion = %s", m.EditedVersion)
	}
	if len(m.Files) != 1 || m.Files[0].MimeType != "image/png" {
		t.Errorf("Files not carried: %+v", m.Files)
	}
	if m.ReplyCount != 2 {
		t.Errorf("ReplyCount = %d", m.ReplyCount)
	}
}

func TestAdapterDropsSystemEvents(t *testing.T) {
	a := NewAdapter(nil, testConfig())

	for _, subtype := range []string{"channel_join", "channel_topic", "message_deleted"} {
		raw := &Message{TS: "1.0", Subtype: subtype, Text: "joined"}
		if m := a.normalize(raw); m != nil {
			t.Errorf("Expected subtype %s dropped, got %+v", subtype, m)
		}
	}
}

func TestAdapterDropsDenylistedSenders(t *testing.T) {
	a := NewAdapter(nil, testConfig())

	tests := []struct {
		name string
		raw  Message
	}{
		{"denied bot id", Message{TS: "1.0", BotID: "B-RELEASEBOT", Text: "new release!"}},
		{"denied name substring", Message{TS: "2.0", Username: "Changelog Bot", Text: "v3 shipped"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m := a.normalize(&tt.raw); m != nil {
				t.Errorf("Expected denylisted message dropped, got %+v", m)
			}
		})
	}

	// Allowed sender passes.
	if m := a.normalize(&Message{TS: "3.0", User: "U9", Username: "alice", Text: "shipped"}); m == nil {
		t.Error("Expected allowed sender to pass")
	}
}

func TestAdapterFetchThread(t *testing.T) {
	api := &fakeAPI{
		replies: map[string][]Message{
			"1.0": {
				{TS: "1.0", ThreadTS: "1.0", Text: "root"},
				{TS: "2.0", ThreadTS: "1.0", Text: "reply", User: "U1"},
				{TS: "3.0", ThreadTS: "1.0", Subtype: "channel_join"},
			},
		},
	}
	c := newFakeClient(t, api)
	a := NewAdapter(c, testConfig())

	msgs, err := a.FetchThread(context.Background(), "1.0")
	if err != nil {
		t.Fatalf("FetchThread failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages after filtering, got %d", len(msgs))
	}
}

func TestAdapterFetchMessage(t *testing.T) {
	api := &fakeAPI{
		replies: map[string][]Message{
			"1.0": {{TS: "1.0", Text: "root"}, {TS: "2.0", ThreadTS: "1.0", Text: "reply"}},
		},
	}
	c := newFakeClient(t, api)
	a := NewAdapter(c, testConfig())

	m, err := a.FetchMessage(context.Background(), "1.0")
	if err != nil {
		t.Fatalf("FetchMessage failed: %v", err)
	}
	if m == nil || m.ID != "1.0" {
		t.Errorf("Expected message 1.0, got %+v", m)
	}
}
