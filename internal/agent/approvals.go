package agent

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/auditlog"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/executor"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/safety"
)

// ErrUnknownApproval reports an approval id that is not pending.
var ErrUnknownApproval = errors.New("no pending command with that id")

// PendingCommand is one command waiting for the user's decision.
type PendingCommand struct {
	ID       string             `json:"id"`
	Command  string             `json:"command"`
	Danger   safety.DangerLevel `json:"danger"`
	QueuedAt time.Time          `json:"queued_at"`
}

// CommandRunner abstracts the executor so the turn loop and the approval
// queue can be tested without spawning shells.
type CommandRunner interface {
	Run(ctx context.Context, command string, timeout time.Duration) executor.Result
	RunWithSudo(ctx context.Context, command string, password string, timeout time.Duration) executor.Result
	RunElevated(ctx context.Context, command string, timeout time.Duration) executor.Result
}

// ShellRunner is the production CommandRunner backed by the executor
// package.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, command string, timeout time.Duration) executor.Result {
	return executor.Execute(ctx, command, timeout)
}

func (ShellRunner) RunWithSudo(ctx context.Context, command string, password string, timeout time.Duration) executor.Result {
	return executor.ExecuteWithSudo(ctx, command, password, timeout)
}

func (ShellRunner) RunElevated(ctx context.Context, command string, timeout time.Duration) executor.Result {
	return executor.ExecuteElevated(ctx, command, timeout)
}

// ApprovalQueue holds commands the model proposed but policy would not run
// unattended. The turn loop appends, the host approves or denies, and the
// queue survives turns until explicitly cleared.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending []PendingCommand

	run     CommandRunner
	auditor Auditor
	timeout time.Duration
}

func NewApprovalQueue(run CommandRunner, auditor Auditor, timeout time.Duration) *ApprovalQueue {
	if run == nil {
		run = ShellRunner{}
	}
	if timeout <= 0 {
		timeout = executor.DefaultTimeout
	}
	return &ApprovalQueue{run: run, auditor: auditor, timeout: timeout}
}

// enqueue adds a command unless an identical one is already waiting. The
// second return reports whether anything was appended.
func (q *ApprovalQueue) enqueue(command string, danger safety.DangerLevel) (PendingCommand, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, pc := range q.pending {
		if pc.Command == command {
			return pc, false
		}
	}
	pc := PendingCommand{
		ID:       uuid.NewString(),
		Command:  command,
		Danger:   danger,
		QueuedAt: time.Now(),
	}
	q.pending = append(q.pending, pc)
	return pc, true
}

// Pending returns a copy of the queue in arrival order.
func (q *ApprovalQueue) Pending() []PendingCommand {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingCommand, len(q.pending))
	copy(out, q.pending)
	return out
}

// Approve removes the command and executes it. A NeedsSudo classification
// or a non-empty password routes through the platform's escalation path;
// the password goes straight to the executor and is never retained here.
// The caller posts the result back into the conversation.
func (q *ApprovalQueue) Approve(ctx context.Context, id string, password string) (executor.Result, error) {
	pc, ok := q.take(id)
	if !ok {
		return executor.Result{}, ErrUnknownApproval
	}

	elevated := pc.Danger == safety.DangerLevelNeedsSudo || strings.TrimSpace(password) != ""
	var res executor.Result
	switch {
	case elevated && runtime.GOOS == "windows":
		res = q.run.RunElevated(ctx, strings.TrimPrefix(pc.Command, "sudo "), q.timeout)
	case elevated:
		res = q.run.RunWithSudo(ctx, pc.Command, password, q.timeout)
	default:
		res = q.run.Run(ctx, pc.Command, q.timeout)
	}

	q.audit(auditlog.CommandRun(pc.Command, res.Summary, res.Success))
	return res, nil
}

// Deny drops a pending command without running it.
func (q *ApprovalQueue) Deny(id string) bool {
	pc, ok := q.take(id)
	if !ok {
		return false
	}
	q.audit(auditlog.CommandRun(pc.Command, "Denied by user", false))
	return true
}

// Clear drops everything pending.
func (q *ApprovalQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}

func (q *ApprovalQueue) take(id string) (PendingCommand, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, pc := range q.pending {
		if pc.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return pc, true
		}
	}
	return PendingCommand{}, false
}

func (q *ApprovalQueue) audit(e auditlog.Entry) {
	if q.auditor != nil {
		q.auditor.Append(e)
	}
}
