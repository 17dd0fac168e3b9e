// Command little-helper is the terminal host for the Little Helper agent
// core: a mode-switched chat loop with command approvals, plus a skill
// catalog listing.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
	// BuildTime is set via -ldflags at build time.
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "chat":
		chatCmd(os.Args[2:])
	case "skills":
		skillsCmd(os.Args[2:])
	case "version":
		fmt.Printf("little-helper %s (%s) %s\n", Version, Commit, BuildTime)
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `little-helper

Usage:
  little-helper chat [flags]
  little-helper skills [flags]
  little-helper version

Commands:
  chat      Interactive chat in one of the working modes (find, fix, research, data, content, build).
  skills    List the skills available per mode.
  version   Print build information.

`)
}

func setupLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// defaultStateDir is <user config dir>/little_helper/state; it holds the
// sqlite history, the audit log, and the instance lock.
func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "little_helper_state")
	}
	return filepath.Join(dir, "little_helper", "state")
}
