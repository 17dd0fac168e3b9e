package history

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Can you help me find all PDF files in my downloads folder?", "Help find all PDF files"},
		{"Fix my wifi connection", "Wifi connection"},
		{"the a an is", "The a an is"},
		{"organize photos", "Organize photos"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := GenerateTitle(tc.in); got != tc.want {
			t.Fatalf("GenerateTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerateTitle_StripsRequestPrefixes(t *testing.T) {
	t.Parallel()

	got := GenerateTitle("Please Help me sort my receipts")
	if strings.Contains(strings.ToLower(got), "please") || strings.Contains(strings.ToLower(got), "help me") {
		t.Fatalf("GenerateTitle kept prefixes: %q", got)
	}
}

func TestFuzzyScore(t *testing.T) {
	t.Parallel()

	score1 := fuzzyScore("pdf", "Find PDF files")
	if score1 <= 0 {
		t.Fatalf("score for word match = %v, want > 0", score1)
	}
	score2 := fuzzyScore("pdf", "PDF organization tips")
	if score2 <= score1 {
		t.Fatalf("prefix match %v not ranked above mid match %v", score2, score1)
	}
	if got := fuzzyScore("pdf", "Something completely different"); got != 0 {
		t.Fatalf("score for non-match = %v, want 0", got)
	}
	if got := fuzzyScore("", "anything"); got != 1.0 {
		t.Fatalf("score for empty query = %v, want 1.0", got)
	}
}

func TestTruncatePreview(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 100)
	got := truncatePreview(long)
	if len([]rune(got)) != previewMaxRunes+3 {
		t.Fatalf("len = %d, want %d", len([]rune(got)), previewMaxRunes+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("preview = %q, want ... suffix", got)
	}

	if got := truncatePreview("short\nmessage"); got != "short message" {
		t.Fatalf("preview = %q, want single line", got)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{48 * time.Hour, "2d ago"},
		{14 * 24 * time.Hour, "2w ago"},
	}
	for _, tc := range cases {
		if got := FormatTimeAgo(tc.elapsed); got != tc.want {
			t.Fatalf("FormatTimeAgo(%v) = %q, want %q", tc.elapsed, got, tc.want)
		}
	}
}
