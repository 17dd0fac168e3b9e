package executor

import (
	"fmt"
	"strconv"
	"strings"
)

// translateUnixToWindows rewrites common Unix command spellings into their
// cmd.exe equivalents. Unknown commands pass through untouched; the shell
// reports its own errors for anything the table misses.
func translateUnixToWindows(command string) string {
	trimmed := strings.TrimSpace(command)
	first, rest := splitHead(trimmed)

	switch strings.ToLower(first) {
	case "ls":
		if rest == "" {
			return "dir"
		}
		var paths []string
		for _, arg := range strings.Fields(rest) {
			if !strings.HasPrefix(arg, "-") {
				paths = append(paths, arg)
			}
		}
		if len(paths) == 0 {
			return "dir"
		}
		return "dir " + strings.Join(paths, " ")
	case "cat":
		if rest == "" {
			return trimmed
		}
		return "type " + rest
	case "grep":
		return translateGrep(rest)
	case "pwd":
		return "cd"
	case "which":
		return "where " + rest
	case "uname":
		return "systeminfo"
	case "df":
		return "wmic logicaldisk get caption,freespace,size"
	case "free":
		return "wmic OS get FreePhysicalMemory,TotalVisibleMemorySize /Value"
	case "ps":
		return "tasklist"
	case "kill":
		return "taskkill /PID " + rest
	case "head":
		return translateHeadTail(trimmed, rest, "-First")
	case "tail":
		return translateHeadTail(trimmed, rest, "-Last")
	case "find":
		if !strings.Contains(rest, "-name") && !strings.Contains(rest, "-iname") {
			return trimmed
		}
		return translateFind(rest)
	case "chmod", "chown":
		return fmt.Sprintf("echo Permission commands are not needed on Windows (was: %s %s)", first, rest)
	default:
		return trimmed
	}
}

func splitHead(command string) (string, string) {
	first, rest, found := strings.Cut(command, " ")
	if !found {
		return command, ""
	}
	return first, strings.TrimSpace(rest)
}

func translateGrep(rest string) string {
	var pattern, path string
	recursive, ignoreCase := false, false
	for _, arg := range strings.Fields(rest) {
		switch {
		case arg == "-r" || arg == "-R" || arg == "--recursive":
			recursive = true
		case arg == "-i" || arg == "--ignore-case":
			ignoreCase = true
		case strings.HasPrefix(arg, "-"):
			// Other grep flags have no findstr equivalent.
		case pattern == "":
			pattern = arg
		default:
			path = arg
		}
	}
	if pattern == "" {
		pattern = `""`
	}

	out := "findstr"
	if recursive {
		out += " /s"
	}
	if ignoreCase {
		out += " /i"
	}
	out += " " + pattern
	if path != "" {
		out += " " + path + `\*`
	}
	return out
}

func translateHeadTail(original, rest, selector string) string {
	args := strings.Fields(rest)
	n := 10
	file := ""
	skip := false
	for i, arg := range args {
		if skip {
			skip = false
			continue
		}
		switch {
		case arg == "-n":
			if i+1 < len(args) {
				n = atoiOr(args[i+1], 10)
				skip = true
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			n = atoiOr(arg[1:], 10)
		default:
			file = arg
		}
	}
	if file == "" {
		return original
	}
	return fmt.Sprintf("powershell -c \"Get-Content '%s' | Select-Object %s %d\"", file, selector, n)
}

func translateFind(rest string) string {
	args := strings.Fields(rest)
	searchPath := "."
	pattern := "*"
	skip := false
	for i, arg := range args {
		if skip {
			skip = false
			continue
		}
		if arg == "-name" || arg == "-iname" {
			if i+1 < len(args) {
				pattern = strings.Trim(args[i+1], `"'`)
				skip = true
			}
		} else if i == 0 && !strings.HasPrefix(arg, "-") {
			searchPath = arg
		}
	}
	winPath := strings.ReplaceAll(searchPath, "/", `\`)
	winPath = strings.ReplaceAll(winPath, "~", "%USERPROFILE%")
	return fmt.Sprintf(`dir /s /b "%s\%s"`, winPath, pattern)
}

func atoiOr(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
