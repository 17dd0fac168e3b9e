package executor

import "testing"

func TestGenerateSummary_FailureFingerprints(t *testing.T) {
	t.Parallel()

	got := generateSummary("frobnicate --all", "", "sh: frobnicate: command not found", false, 12)
	if got != "'frobnicate' is not installed" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("cat missing.txt", "", "cat: missing.txt: No such file or directory", false, 3)
	if got != "File or directory not found" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("touch /etc/x", "", "touch: /etc/x: Permission denied", false, 3)
	if got != "Permission denied - may need admin access" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("whatever", "", "exploded", false, 40)
	if got != "Command failed (40ms)" {
		t.Fatalf("summary=%q", got)
	}
}

func TestGenerateSummary_ListingCounts(t *testing.T) {
	t.Parallel()

	got := generateSummary("ls -la", "a\nb\nc\n", "", true, 5)
	if got != "Found 3 items (5ms)" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("find . -name '*.log'", "", "", true, 9)
	if got != "Found 0 items (9ms)" {
		t.Fatalf("summary=%q", got)
	}
}

func TestGenerateSummary_GrepMatches(t *testing.T) {
	t.Parallel()

	got := generateSummary("grep todo main.go", "", "", true, 4)
	if got != "No matches found" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("rg todo", "one\ntwo\n", "", true, 4)
	if got != "Found 2 matches (4ms)" {
		t.Fatalf("summary=%q", got)
	}
}

func TestGenerateSummary_FileDisplay(t *testing.T) {
	t.Parallel()

	got := generateSummary("cat notes.txt", "l1\nl2\nl3", "", true, 2)
	if got != "Displayed 3 lines (2ms)" {
		t.Fatalf("summary=%q", got)
	}
}

func TestGenerateSummary_FileOperations(t *testing.T) {
	t.Parallel()

	if got := generateSummary("cp a b", "", "", true, 1); got != "File operation complete" {
		t.Fatalf("summary=%q", got)
	}
	if got := generateSummary("mkdir out", "", "", true, 1); got != "Directory created" {
		t.Fatalf("summary=%q", got)
	}
	if got := generateSummary("rm old.txt", "", "", true, 1); got != "Deleted successfully" {
		t.Fatalf("summary=%q", got)
	}
}

func TestGenerateSummary_Git(t *testing.T) {
	t.Parallel()

	got := generateSummary("git status", "nothing to commit, working tree clean", "", true, 7)
	if got != "Working tree clean" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("git status", "modified: main.go", "", true, 7)
	if got != "Changes detected" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("git commit -m x", "", "", true, 7)
	if got != "Committed successfully" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("git push origin main", "", "", true, 7)
	if got != "Pushed to remote" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("git fetch", "", "", true, 7)
	if got != "Git operation complete (7ms)" {
		t.Fatalf("summary=%q", got)
	}
}

func TestGenerateSummary_Cargo(t *testing.T) {
	t.Parallel()

	got := generateSummary("cargo build", "", "Finished dev profile", true, 900)
	if got != "Build complete" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("cargo build", "Compiling foo", "", true, 900)
	if got != "Build in progress..." {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("cargo test", "test result: ok. 4 passed", "", true, 900)
	if got != "Tests passed" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("cargo test", "", "", true, 900)
	if got != "Tests complete" {
		t.Fatalf("summary=%q", got)
	}
	got = generateSummary("cargo fmt", "", "", true, 9)
	if got != "Cargo complete (9ms)" {
		t.Fatalf("summary=%q", got)
	}
}

func TestGenerateSummary_Default(t *testing.T) {
	t.Parallel()

	if got := generateSummary("uptime", "up 3 days", "", true, 11); got != "Complete (11ms)" {
		t.Fatalf("summary=%q", got)
	}
}

func TestParseProgress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		output string
		want   int
		found  bool
	}{
		{"Downloading 45%, then 73% done", 73, true},
		{"no numbers here", 0, false},
		{"upgraded 250% overload", 0, false},
		{"Progress: 100%", 100, true},
		{"9% then stall at 12%", 12, true},
		{"50% done, spiked to 105%", 50, true},
	}
	for _, tc := range cases {
		got, found := ParseProgress(tc.output)
		if got != tc.want || found != tc.found {
			t.Fatalf("ParseProgress(%q)=(%d,%v), want (%d,%v)",
				tc.output, got, found, tc.want, tc.found)
		}
	}
}

func TestLineCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"\n", 1},
	}
	for _, tc := range cases {
		if got := lineCount(tc.in); got != tc.want {
			t.Fatalf("lineCount(%q)=%d, want %d", tc.in, got, tc.want)
		}
	}
}
