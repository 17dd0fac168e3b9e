package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/auditlog"
)

// DefaultTimeout bounds one skill execution unless the runner is
// configured otherwise.
const DefaultTimeout = 60 * time.Second

// ExecutionStatus is the lifecycle state of one skill run.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusTimeout   ExecutionStatus = "timeout"
)

// Execution is the record of one skill run, kept for history and audit.
type Execution struct {
	ID         string          `json:"id"`
	SkillID    string          `json:"skill_id"`
	Mode       Mode            `json:"mode"`
	StartedAt  time.Time       `json:"started_at"`
	Input      Input           `json:"input"`
	Output     *Output         `json:"output,omitempty"`
	Status     ExecutionStatus `json:"status"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

func newExecution(skillID string, mode Mode, in Input) Execution {
	return Execution{
		ID:        uuid.NewString(),
		SkillID:   skillID,
		Mode:      mode,
		StartedAt: time.Now(),
		Input:     in,
		Status:    StatusRunning,
	}
}

func (e *Execution) complete(out Output, elapsed time.Duration) {
	e.Output = &out
	e.Status = StatusCompleted
	e.DurationMs = elapsed.Milliseconds()
}

func (e *Execution) fail(message string, elapsed time.Duration) {
	e.Status = StatusFailed
	e.Error = message
	e.DurationMs = elapsed.Milliseconds()
}

func (e *Execution) timedOut(elapsed time.Duration) {
	e.Status = StatusTimeout
	e.Error = "Execution timed out"
	e.DurationMs = elapsed.Milliseconds()
}

// EventType tags runner lifecycle notifications.
type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventTimeout   EventType = "timeout"
)

// Event is one lifecycle notification. Terminal events carry the finished
// execution; progress events carry Percent and Note.
type Event struct {
	Type    EventType
	RunID   string
	SkillID string

	Percent int
	Note    string

	Execution *Execution
}

type progressKey struct{}

// WithProgress returns a context that routes Progress calls to fn. The
// runner installs this for every run; skills only need ReportProgress.
func WithProgress(ctx context.Context, fn func(percent int, note string)) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// Progress reports how far along a skill is. It is a no-op when no
// observer is attached to the execution context.
func Progress(ctx context.Context, percent int, note string) {
	fn, ok := ctx.Value(progressKey{}).(func(percent int, note string))
	if !ok || fn == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	fn(percent, note)
}

// RunnerOptions configure a Runner. The zero value works.
type RunnerOptions struct {
	// Timeout bounds each skill execution. Zero means DefaultTimeout.
	Timeout time.Duration

	Logger *slog.Logger

	// Events receives lifecycle notifications. It must be safe for
	// concurrent use; RunConcurrent emits from several goroutines.
	Events func(Event)
}

// Runner executes registered skills with a per-run timeout, emits lifecycle
// events, and writes audit entries through the session context.
type Runner struct {
	reg     *Registry
	timeout time.Duration
	log     *slog.Logger
	events  func(Event)
}

func NewRunner(reg *Registry, opts RunnerOptions) *Runner {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{reg: reg, timeout: timeout, log: log, events: opts.Events}
}

// Request pairs a skill id with its input for batch runs.
type Request struct {
	SkillID string
	Input   Input
}

// Run gates, validates, and executes one skill. Gate and validation
// failures return an error and no execution record; once a skill starts,
// every outcome including timeout is folded into the returned Execution.
func (r *Runner) Run(ctx context.Context, id string, in Input, sc *Context) (Execution, error) {
	if err := r.reg.CanExecute(id, sc); err != nil {
		return Execution{}, err
	}
	s, ok := r.reg.Get(id)
	if !ok {
		return Execution{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.ValidateInput(in); err != nil {
		return Execution{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	exec := newExecution(id, sc.Mode, in)
	r.emit(Event{Type: EventStarted, RunID: exec.ID, SkillID: id})

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	runCtx = WithProgress(runCtx, func(percent int, note string) {
		if runCtx.Err() != nil {
			return
		}
		r.emit(Event{Type: EventProgress, RunID: exec.ID, SkillID: id, Percent: percent, Note: note})
	})

	type execResult struct {
		out Output
		err error
	}
	done := make(chan execResult, 1)
	go func() {
		out, err := s.Execute(runCtx, in, sc)
		done <- execResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		elapsed := time.Since(exec.StartedAt)
		switch {
		case res.err != nil && errors.Is(res.err, context.DeadlineExceeded):
			// The skill noticed the deadline itself; that is still a
			// timeout, not a skill fault.
			exec.timedOut(elapsed)
		case res.err != nil:
			exec.fail(res.err.Error(), elapsed)
		default:
			exec.complete(res.out, elapsed)
		}
	case <-runCtx.Done():
		elapsed := time.Since(exec.StartedAt)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			exec.timedOut(elapsed)
		} else {
			exec.fail(runCtx.Err().Error(), elapsed)
		}
	}

	r.finish(&exec, sc)
	return exec, nil
}

// RunBatch executes requests sequentially. Gate and validation failures are
// folded into failed execution records so callers get one record per
// request, in order.
func (r *Runner) RunBatch(ctx context.Context, reqs []Request, sc *Context) []Execution {
	out := make([]Execution, 0, len(reqs))
	for _, req := range reqs {
		exec, err := r.Run(ctx, req.SkillID, req.Input, sc)
		if err != nil {
			exec = refusedExecution(req, sc.Mode, err)
		}
		out = append(out, exec)
	}
	return out
}

// RunConcurrent executes requests in parallel, at most limit at a time
// (limit <= 0 means unbounded). Results align with requests by index.
func (r *Runner) RunConcurrent(ctx context.Context, reqs []Request, sc *Context, limit int) []Execution {
	out := make([]Execution, len(reqs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			exec, err := r.Run(ctx, req.SkillID, req.Input, sc)
			if err != nil {
				exec = refusedExecution(req, sc.Mode, err)
			}
			out[i] = exec
			return nil
		})
	}
	// Failures live in the records; the group never carries an error.
	_ = g.Wait()
	return out
}

func refusedExecution(req Request, mode Mode, err error) Execution {
	exec := newExecution(req.SkillID, mode, req.Input)
	exec.fail(err.Error(), 0)
	return exec
}

func (r *Runner) finish(exec *Execution, sc *Context) {
	eventType := EventCompleted
	action := fmt.Sprintf("Completed (%dms)", exec.DurationMs)
	switch exec.Status {
	case StatusFailed:
		eventType = EventFailed
		action = fmt.Sprintf("Failed (%dms)", exec.DurationMs)
	case StatusTimeout:
		eventType = EventTimeout
		action = fmt.Sprintf("Timed out (%dms)", exec.DurationMs)
	}

	detail := map[string]any{
		"run_id": exec.ID,
		"mode":   string(exec.Mode),
		"status": string(exec.Status),
	}
	if exec.Error != "" {
		detail["error"] = exec.Error
	}
	sc.audit(auditlog.SkillExecution(exec.SkillID, action, detail))

	r.log.Info("skill run finished",
		"skill", exec.SkillID,
		"run", exec.ID,
		"status", exec.Status,
		"duration_ms", exec.DurationMs)
	r.emit(Event{Type: eventType, RunID: exec.ID, SkillID: exec.SkillID, Execution: exec})
}

func (r *Runner) emit(e Event) {
	if r.events != nil {
		r.events(e)
	}
}
