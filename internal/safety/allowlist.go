package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// commandPathPattern picks out path-looking tokens: absolute, home-relative,
// dot-relative, or Windows drive-letter forms.
var commandPathPattern = regexp.MustCompile(`(?:~|/|\./|\.\./|[A-Za-z]:\\)[^\s"'` + "`" + `]+`)

// ValidateCommand rejects a command before execution when it chains shell
// operations, dumps the environment, or references paths outside the allowed
// directories. The first violation wins and the error text is shown to the
// user as-is.
func ValidateCommand(command string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return errors.New("No folders are allowed. Add one in Settings first.")
	}

	if op, found := ContainsForbiddenShellOps(command); found {
		return fmt.Errorf("This command includes a blocked shell feature (%s). Please run one step at a time.", op)
	}

	// Environment dumps are a cheap way to leak secrets into the transcript.
	trimmed := strings.ToLower(strings.TrimSpace(command))
	if trimmed == "env" || strings.HasPrefix(trimmed, "env ") || trimmed == "printenv" {
		return errors.New("For privacy, printing all environment variables is blocked.")
	}

	for _, raw := range commandPathPattern.FindAllString(command, -1) {
		expanded := normalizeWindowsEnvVars(raw)
		expanded = stripGlobPrefix(expanded)
		candidate := ExpandUserPath(expanded)

		if isSensitivePath(candidate) {
			return fmt.Errorf("This command touches a sensitive path (`%s`). For safety, Little Helper blocks this by default.", raw)
		}

		// A path that does not exist yet (say, a redirect target) is judged
		// by its parent directory.
		toCheck := candidate
		if _, err := os.Stat(candidate); err != nil {
			if parent := filepath.Dir(candidate); parent != "" && parent != candidate {
				toCheck = parent
			}
		}

		if !IsPathInAllowedDirs(toCheck, allowedDirs) {
			return fmt.Errorf("Path `%s` is outside the allowed folders.", raw)
		}
	}

	return nil
}

// ContainsForbiddenShellOps reports the first chaining or substitution
// operator found outside quotes. Pipes and plain redirects stay allowed, and
// stream merges like 2>&1 are the one ampersand exception.
func ContainsForbiddenShellOps(command string) (string, bool) {
	inSingle := false
	inDouble := false
	prev := rune(0)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\\' {
			i++
			prev = c
			continue
		}
		if !inDouble && c == '\'' {
			inSingle = !inSingle
			prev = c
			continue
		}
		if !inSingle && c == '"' {
			inDouble = !inDouble
			prev = c
			continue
		}
		if inSingle || inDouble {
			prev = c
			continue
		}

		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case c == ';':
			return ";", true
		case c == '&' && next == '&':
			return "&&", true
		case c == '&':
			if !(prev == '>' && next >= '0' && next <= '9') {
				return "&", true
			}
		case c == '|' && next == '|':
			return "||", true
		case c == '`':
			return "`", true
		case c == '$' && next == '(':
			return "$()", true
		case c == '<' && next == '<':
			return "<<", true
		}

		prev = c
	}

	return "", false
}

// ExpandUserPath resolves a leading ~/ against the current user's home
// directory. Anything else passes through unchanged.
func ExpandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return path
}

// IsPathInAllowedDirs reports whether path sits under one of the allowed
// directories after user expansion and symlink resolution. An empty allow
// list admits nothing.
func IsPathInAllowedDirs(path string, allowedDirs []string) bool {
	if len(allowedDirs) == 0 {
		return false
	}
	canonical := canonicalizePath(path)
	for _, dir := range allowedDirs {
		allowed := canonicalizePath(ExpandUserPath(dir))
		ok, err := isWithinRoot(canonical, allowed)
		if err == nil && ok {
			return true
		}
	}
	return false
}

func canonicalizePath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func isWithinRoot(path string, root string) (bool, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false, err
	}
	rel = filepath.Clean(rel)
	if rel == "." {
		return true, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false, nil
	}
	return true, nil
}

// isSensitivePath flags locations that commonly hold credentials or secrets.
// These are refused even when they sit inside an allowed directory.
func isSensitivePath(path string) bool {
	s := strings.ToLower(filepath.ToSlash(path))
	return strings.Contains(s, "/.ssh/") ||
		strings.Contains(s, "/.aws/") ||
		strings.Contains(s, "/.gnupg/") ||
		strings.Contains(s, "/library/keychains") ||
		strings.HasSuffix(s, "/.npmrc") ||
		strings.HasSuffix(s, "/.env")
}

func stripGlobPrefix(path string) string {
	wildcard := strings.IndexAny(path, "*?[]")
	if wildcard < 0 {
		return path
	}
	prefix := path[:wildcard]
	sep := strings.LastIndexAny(prefix, `/\`)
	if sep <= 0 {
		return prefix
	}
	return prefix[:sep]
}

func normalizeWindowsEnvVars(s string) string {
	if strings.Contains(s, "%USERNAME%") {
		if user := os.Getenv("USERNAME"); user != "" {
			return strings.ReplaceAll(s, "%USERNAME%", user)
		}
	}
	return s
}
