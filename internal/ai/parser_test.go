package ai

import "testing"

type testRelease struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func TestParseLenient_DirectArray(t *testing.T) {
	input := `[{"title": "Dark Mode", "description": "Shipped dark mode"}]`

	result := ParseLenient[[]testRelease](input, "")
	if !result.OK {
		t.Fatalf("Expected successful parse, got: %s", result.Error)
	}
	if len(result.Data) != 1 || result.Data[0].Title != "Dark Mode" {
		t.Errorf("Unexpected data: %+v", result.Data)
	}
}

func TestParseLenient_EmptyInput(t *testing.T) {
	result := ParseLenient[[]testRelease]("", "classify")
	if result.OK {
		t.Fatal("Expected failure on empty input")
	}
	if result.Error == "" {
		t.Error("Expected error message")
	}
}

func TestParseLenient_CodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "json fence",
			input: "```json\n[{\"title\": \"A\", \"description\": \"a\"}]\n```",
		},
		{
			name:  "bare fence",
			input: "```\n[{\"title\": \"A\", \"description\": \"a\"}]\n```",
		},
		{
			name:  "fence with preamble",
			input: "Here are the releases:\n```json\n[{\"title\": \"A\", \"description\": \"a\"}]\n```\nDone.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLenient[[]testRelease](tt.input, "")
			if !result.OK {
				t.Fatalf("Expected successful parse, got: %s", result.Error)
			}
			if len(result.Data) != 1 || result.Data[0].Title != "A" {
				t.Errorf("Unexpected data: %+v", result.Data)
			}
		})
	}
}

func TestParseLenient_TrailingComma(t *testing.T) {
	input := `[{"title": "A", "description": "a",}, ]`

	result := ParseLenient[[]testRelease](input, "")
	if !result.OK {
		t.Fatalf("Expected trailing-comma repair to succeed, got: %s", result.Error)
	}
	if len(result.Data) != 1 {
		t.Errorf("Expected 1 element, got %d", len(result.Data))
	}
}

func TestParseLenient_ArrayInProse(t *testing.T) {
	input := `The following messages are release-worthy: ["1.0", "3.0"] based on my analysis.`

	result := ParseLenient[[]string](input, "")
	if !result.OK {
		t.Fatalf("Expected extraction from prose, got: %s", result.Error)
	}
	if len(result.Data) != 2 || result.Data[0] != "1.0" {
		t.Errorf("Unexpected data: %+v", result.Data)
	}
}

func TestParseLenient_Garbage(t *testing.T) {
	result := ParseLenient[[]testRelease]("I could not find any JSON to give you, sorry!", "extract")
	if result.OK {
		t.Fatal("Expected failure on prose with no JSON")
	}
}

func TestParseLenient_ContextInError(t *testing.T) {
	result := ParseLenient[[]testRelease]("garbage", "extraction response")
	if result.OK {
		t.Fatal("Expected failure")
	}
	if got := result.Error; got[:len("extraction response")] != "extraction response" {
		t.Errorf("Expected context prefix in error, got: %s", got)
	}
}
