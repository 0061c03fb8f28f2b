package types

import (
	"testing"
	"time"
)

func TestTimestampFromIDToken(t *testing.T) {
	m := &ChannelMessage{ID: "1712345678.000100"}
	got := m.Timestamp()
	want := time.Unix(1712345678, 0).UTC()
	if !got.Equal(want) {
		t.Errorf("Timestamp() = %v, want %v", got, want)
	}
}

func TestTimestampUnparseable(t *testing.T) {
	m := &ChannelMessage{ID: "not-a-timestamp"}
	if !m.Timestamp().IsZero() {
		t.Errorf("Expected zero time for unparseable ID, got %v", m.Timestamp())
	}
}

func TestIsThreadReply(t *testing.T) {
	tests := []struct {
		name string
		msg  ChannelMessage
		want bool
	}{
		{"standalone", ChannelMessage{ID: "1.0"}, false},
		{"thread root", ChannelMessage{ID: "1.0", ThreadID: "1.0"}, false},
		{"reply", ChannelMessage{ID: "2.0", ThreadID: "1.0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsThreadReply(); got != tt.want {
				t.Errorf("IsThreadReply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeReleaseType(t *testing.T) {
	tests := []struct {
		in   string
		want ReleaseType
	}{
		{"New Feature", TypeNewFeature},
		{"feature", TypeNewFeature},
		{"Improvement", TypeImprovement},
		{"bugfix", TypeBugFix},
		{"Bug Fix", TypeBugFix},
		{"deprecated", TypeDeprecation},
		{"revert", TypeRollback},
		{"Update", TypeUpdate},
		{"", TypeUpdate},
		{"something the model invented", TypeUpdate},
	}
	for _, tt := range tests {
		if got := NormalizeReleaseType(tt.in); got != tt.want {
			t.Errorf("NormalizeReleaseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReleaseValidate(t *testing.T) {
	valid := Release{
		SourceMessageID: "1.0",
		SourceChannelID: "C123",
		Title:           "Dark Mode",
		Type:            TypeNewFeature,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid release, got error: %v", err)
	}

	missingTitle := valid
	missingTitle.Title = "   "
	if err := missingTitle.Validate(); err == nil {
		t.Error("Expected error for blank title")
	}

	badType := valid
	badType.Type = "Hotfix"
	if err := badType.Validate(); err == nil {
		t.Error("Expected error for type outside the closed set")
	}
}
