package agent

import (
	"testing"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
)

func TestParseIntentsDocumentOrder(t *testing.T) {
	t.Parallel()
	text := "First <command>ls</command> then <search>go testing</search> then <preview>/tmp/a.txt</preview>"
	got := ParseIntents(text)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Kind != IntentCommand || got[0].Command != "ls" {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Kind != IntentSearch || got[1].Query != "go testing" {
		t.Fatalf("got[1] = %+v", got[1])
	}
	if got[2].Kind != IntentPreview || got[2].Path != "/tmp/a.txt" {
		t.Fatalf("got[2] = %+v", got[2])
	}
}

func TestParseIntentsCommandAliases(t *testing.T) {
	t.Parallel()
	for _, tag := range []string{"command", "cmd", "run", "request"} {
		text := "<" + tag + ">echo hi</" + tag + ">"
		got := ParseIntents(text)
		if len(got) != 1 || got[0].Command != "echo hi" {
			t.Fatalf("tag %q: got %+v", tag, got)
		}
	}
}

func TestParseIntentsCaseSensitiveTags(t *testing.T) {
	t.Parallel()
	if got := ParseIntents("<Search>query</Search> <COMMAND>ls</COMMAND>"); len(got) != 0 {
		t.Fatalf("uppercase tags matched: %+v", got)
	}
}

func TestParseIntentsTrimsAndSkipsEmpty(t *testing.T) {
	t.Parallel()
	got := ParseIntents("<search>  spaced query \n</search><command>   </command>")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Query != "spaced query" {
		t.Fatalf("query = %q", got[0].Query)
	}
}

func TestParseIntentsDeduplicatesExactRepeats(t *testing.T) {
	t.Parallel()
	got := ParseIntents("<search>same</search> and again <search>same</search> but <search>other</search>")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Query != "same" || got[1].Query != "other" {
		t.Fatalf("got = %+v", got)
	}
}

func TestParseIntentsMultiline(t *testing.T) {
	t.Parallel()
	got := ParseIntents("<command>find . \\\n  -name '*.go'</command>")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestStripIntentsIdempotent(t *testing.T) {
	t.Parallel()
	text := "Before <search>q</search> middle <command>ls</command> after"
	stripped := StripIntents(text)
	if got := ParseIntents(stripped); len(got) != 0 {
		t.Fatalf("stripped text still parses intents: %+v", got)
	}
	if again := StripIntents(stripped); again != stripped {
		t.Fatalf("strip not idempotent: %q vs %q", again, stripped)
	}
}

func TestStripIntentsNestedTags(t *testing.T) {
	t.Parallel()
	// A tag revealed only after the inner one is removed must still go.
	text := "<sea<command>x</command>rch>q</search>"
	stripped := StripIntents(text)
	if got := ParseIntents(stripped); len(got) != 0 {
		t.Fatalf("stripped text still parses intents: %+v from %q", got, stripped)
	}
}

func TestNativeIntentMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		chunk provider.StreamChunk
		want  Intent
	}{
		{
			name: "web_search",
			chunk: provider.StreamChunk{
				ToolID: "t1", ToolName: provider.ToolWebSearch,
				Input: map[string]any{"query": " rust vs go "},
			},
			want: Intent{Kind: IntentSearch, Query: "rust vs go", ToolUseID: "t1"},
		},
		{
			name: "bash_execute",
			chunk: provider.StreamChunk{
				ToolID: "t2", ToolName: provider.ToolBashExecute,
				Input: map[string]any{"command": "ls -la"},
			},
			want: Intent{Kind: IntentCommand, Command: "ls -la", ToolUseID: "t2"},
		},
		{
			name: "file_preview",
			chunk: provider.StreamChunk{
				ToolID: "t3", ToolName: provider.ToolFilePreview,
				Input: map[string]any{"path": "/tmp/x"},
			},
			want: Intent{Kind: IntentPreview, Path: "/tmp/x", ToolUseID: "t3"},
		},
	}
	for _, tc := range cases {
		got := nativeIntent(tc.chunk)
		if got.Kind != tc.want.Kind || got.Query != tc.want.Query ||
			got.Command != tc.want.Command || got.Path != tc.want.Path ||
			got.ToolUseID != tc.want.ToolUseID {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestNativeIntentUnknownToolAddressesSkill(t *testing.T) {
	t.Parallel()
	got := nativeIntent(provider.StreamChunk{
		ToolID: "t9", ToolName: "file_organize",
		Input: map[string]any{"query": "sort my downloads"},
	})
	if got.Kind != IntentSkill || got.SkillID != "file_organize" {
		t.Fatalf("got %+v", got)
	}
}
