package executor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var progressPattern = regexp.MustCompile(`(\d{1,3})%`)

// ParseProgress scans command output for percentage markers and returns the
// last plausible one. Values above 100 are ignored.
func ParseProgress(output string) (int, bool) {
	last, found := 0, false
	for _, m := range progressPattern.FindAllStringSubmatch(output, -1) {
		p, err := strconv.Atoi(m[1])
		if err != nil || p > 100 {
			continue
		}
		last, found = p, true
	}
	return last, found
}

// generateSummary maps a finished command to a one-line human summary.
// Summaries are advisory display text, never parsed back.
func generateSummary(command, stdout, stderr string, success bool, durationMS int64) string {
	cmdBase := ""
	if fields := strings.Fields(command); len(fields) > 0 {
		cmdBase = fields[0]
	}

	if !success {
		switch {
		case strings.Contains(stderr, "command not found"):
			return fmt.Sprintf("'%s' is not installed", cmdBase)
		case strings.Contains(stderr, "No such file"):
			return "File or directory not found"
		case strings.Contains(stderr, "Permission denied"):
			return "Permission denied - may need admin access"
		default:
			return fmt.Sprintf("Command failed (%dms)", durationMS)
		}
	}

	switch cmdBase {
	case "ls", "find", "tree":
		return fmt.Sprintf("Found %d items (%dms)", lineCount(stdout), durationMS)
	case "grep", "rg", "ag":
		count := lineCount(stdout)
		if count == 0 {
			return "No matches found"
		}
		return fmt.Sprintf("Found %d matches (%dms)", count, durationMS)
	case "cat", "head", "tail":
		return fmt.Sprintf("Displayed %d lines (%dms)", lineCount(stdout), durationMS)
	case "cp", "mv":
		return "File operation complete"
	case "mkdir":
		return "Directory created"
	case "rm", "rmdir":
		return "Deleted successfully"
	case "git":
		switch {
		case strings.Contains(command, "status"):
			if strings.Contains(stdout, "nothing to commit") {
				return "Working tree clean"
			}
			return "Changes detected"
		case strings.Contains(command, "commit"):
			return "Committed successfully"
		case strings.Contains(command, "push"):
			return "Pushed to remote"
		default:
			return fmt.Sprintf("Git operation complete (%dms)", durationMS)
		}
	case "cargo":
		switch {
		case strings.Contains(command, "build"):
			if strings.Contains(stdout, "Finished") || strings.Contains(stderr, "Finished") {
				return "Build complete"
			}
			return "Build in progress..."
		case strings.Contains(command, "test"):
			if strings.Contains(stdout, "passed") {
				return "Tests passed"
			}
			return "Tests complete"
		default:
			return fmt.Sprintf("Cargo complete (%dms)", durationMS)
		}
	default:
		return fmt.Sprintf("Complete (%dms)", durationMS)
	}
}

// lineCount counts lines the way a terminal user would: a trailing newline
// does not start an extra line, and empty output has none.
func lineCount(s string) int {
	if s == "" {
		return 0
	}
	count := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		count++
	}
	return count
}
