// Package executor runs shell commands on behalf of the agent with safety
// classification, timeouts, output truncation, and privilege-escalation
// paths for Unix (sudo) and Windows (UAC).
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/safety"
)

const (
	// DefaultTimeout bounds a command when the caller passes none.
	DefaultTimeout = 60 * time.Second

	// Combined output beyond this is cut with a truncation marker. The
	// Stdout/Stderr fields keep the full streams.
	maxOutputBytes = 10000

	blockedMessage = "This command is blocked for safety reasons."
)

// Result captures one command execution for display and history.
type Result struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
	Summary    string `json:"summary"`
	NeededSudo bool   `json:"needed_sudo"`
}

// Execute runs a command through the platform shell and captures the outcome.
// Blocked commands never reach the shell. A zero or negative timeout falls
// back to DefaultTimeout.
func Execute(ctx context.Context, command string, timeout time.Duration) Result {
	if safety.Classify(command) == safety.DangerLevelBlocked {
		return Result{
			Command:  command,
			ExitCode: -1,
			Stderr:   blockedMessage,
			Output:   blockedMessage,
			Summary:  "Command blocked for safety",
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	shell, shellArg := "sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd", "/C"
		// Common Unix spellings are translated so the model does not have
		// to get Windows right every time. A safety net, not a substitute
		// for platform-aware prompting.
		command = translateUnixToWindows(command)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, shell, shellArg, command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	durationMS := time.Since(start).Milliseconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return timeoutResult(command, timeout, durationMS, false)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return spawnFailureResult(command, runErr, durationMS, false)
		}
	}

	outStr := stdout.String()
	errStr := stderr.String()
	exitCode := cmd.ProcessState.ExitCode()
	success := runErr == nil

	return Result{
		Command:    command,
		ExitCode:   exitCode,
		Stdout:     outStr,
		Stderr:     errStr,
		Output:     truncateOutput(combineStreams(outStr, errStr)),
		DurationMS: durationMS,
		Success:    success,
		Summary:    generateSummary(command, outStr, errStr, success, durationMS),
		NeededSudo: stderrWantsSudo(errStr),
	}
}

// ExecuteWithSudo re-runs a command under sudo on Unix. The password plus a
// newline is written to the child's stdin exactly once and the pipe is
// closed immediately; it is never logged and never touches disk.
func ExecuteWithSudo(ctx context.Context, command string, password string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	actual := strings.TrimPrefix(command, "sudo ")
	display := "sudo " + actual

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	// -S reads the password from stdin; -k drops cached credentials so the
	// prompt is deterministic.
	cmd := exec.CommandContext(runCtx, "sudo", "-S", "-k", "sh", "-c", actual)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return spawnFailureResult(display, err, time.Since(start).Milliseconds(), true)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return spawnFailureResult(display, err, time.Since(start).Milliseconds(), true)
	}
	_, writeErr := io.WriteString(stdin, password+"\n")
	_ = stdin.Close()
	waitErr := cmd.Wait()
	durationMS := time.Since(start).Milliseconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return timeoutResult(display, timeout, durationMS, true)
	}
	if writeErr != nil {
		return spawnFailureResult(display, writeErr, durationMS, true)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return spawnFailureResult(display, waitErr, durationMS, true)
		}
	}

	outStr := stdout.String()
	errStr := stripSudoPromptLine(stderr.String())
	exitCode := cmd.ProcessState.ExitCode()
	success := waitErr == nil
	wrongPassword := isWrongPassword(errStr)

	var summary string
	switch {
	case wrongPassword:
		summary = "Incorrect password"
	case success:
		summary = generateSummary(command, outStr, errStr, success, durationMS)
	default:
		summary = "Command failed: " + firstLineOr(errStr, "unknown error")
	}

	return Result{
		Command:    display,
		ExitCode:   exitCode,
		Stdout:     outStr,
		Stderr:     errStr,
		Output:     combineStreams(outStr, errStr),
		DurationMS: durationMS,
		Success:    success && !wrongPassword,
		Summary:    summary,
		NeededSudo: true,
	}
}

// ExecuteElevated runs a command with admin rights on Windows through the
// UAC prompt. The elevated child's stdout is not captured; success is read
// from its exit code.
func ExecuteElevated(ctx context.Context, command string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	psCmd := fmt.Sprintf(
		"Start-Process cmd -ArgumentList '/c %s' -Verb RunAs -Wait -PassThru | Select-Object -ExpandProperty ExitCode",
		strings.ReplaceAll(command, "'", "''"),
	)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, "powershell", "-Command", psCmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	durationMS := time.Since(start).Milliseconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Command:    command,
			ExitCode:   -1,
			Stderr:     "Operation timed out",
			Output:     "Admin operation timed out or was cancelled",
			DurationMS: durationMS,
			Summary:    "Timed out or cancelled",
			NeededSudo: true,
		}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{
				Command:    command,
				ExitCode:   -1,
				Stderr:     runErr.Error(),
				Output:     "Failed to elevate: " + runErr.Error(),
				DurationMS: durationMS,
				Summary:    "Failed to request admin privileges",
				NeededSudo: true,
			}
		}
	}

	exitCode := -1
	if parsed, err := strconv.Atoi(strings.TrimSpace(stdout.String())); err == nil {
		exitCode = parsed
	}
	success := exitCode == 0

	output := fmt.Sprintf("Command failed with exit code %d", exitCode)
	summary := "Failed or was cancelled"
	if success {
		output = "Command completed with admin privileges"
		summary = "Completed with admin privileges"
	}

	return Result{
		Command:    command,
		ExitCode:   exitCode,
		Stderr:     stderr.String(),
		Output:     output,
		DurationMS: durationMS,
		Success:    success,
		Summary:    summary,
		NeededSudo: true,
	}
}

// NeedsElevation reports whether a completed command looks like it wants
// admin rights.
func NeedsElevation(result Result) bool {
	return result.NeededSudo ||
		strings.Contains(result.Stderr, "Permission denied") ||
		strings.Contains(result.Stderr, "Operation not permitted") ||
		strings.Contains(result.Stderr, "Access is denied") ||
		strings.Contains(result.Stderr, "requires root") ||
		strings.Contains(result.Stderr, "must be root")
}

func stderrWantsSudo(stderr string) bool {
	return strings.Contains(stderr, "Permission denied") ||
		strings.Contains(stderr, "Operation not permitted") ||
		strings.Contains(stderr, "password")
}

// stripSudoPromptLine removes the leading "[sudo] password for user:" line
// sudo -S writes to stderr.
func stripSudoPromptLine(stderr string) string {
	idx := strings.IndexByte(stderr, '\n')
	if idx < 0 {
		return stderr
	}
	first := stderr[:idx]
	if strings.Contains(first, "password for") || strings.Contains(first, "[sudo]") {
		return stderr[idx+1:]
	}
	return stderr
}

func isWrongPassword(stderr string) bool {
	return strings.Contains(stderr, "incorrect password") ||
		strings.Contains(stderr, "Sorry, try again") ||
		strings.Contains(stderr, "Authentication failure")
}

func combineStreams(stdout, stderr string) string {
	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	return combined
}

func truncateOutput(combined string) string {
	if len(combined) <= maxOutputBytes {
		return combined
	}
	total := len(combined)
	runes := []rune(combined)
	if len(runes) > maxOutputBytes {
		runes = runes[:maxOutputBytes]
	}
	return fmt.Sprintf("%s...\n[Output truncated, %d bytes total]", string(runes), total)
}

func firstLineOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func timeoutResult(command string, timeout time.Duration, durationMS int64, neededSudo bool) Result {
	seconds := int(timeout / time.Second)
	return Result{
		Command:    command,
		ExitCode:   -1,
		Stderr:     "Command timed out",
		Output:     fmt.Sprintf("Command timed out after %d seconds", seconds),
		DurationMS: durationMS,
		Summary:    fmt.Sprintf("Timed out after %ds", seconds),
		NeededSudo: neededSudo,
	}
}

func spawnFailureResult(command string, err error, durationMS int64, neededSudo bool) Result {
	return Result{
		Command:    command,
		ExitCode:   -1,
		Stderr:     err.Error(),
		Output:     "Failed to execute: " + err.Error(),
		DurationMS: durationMS,
		Summary:    "Command failed: " + err.Error(),
		NeededSudo: neededSudo,
	}
}
