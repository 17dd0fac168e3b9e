// Package agent drives one user turn to completion: it budgets the
// conversation, streams the model's reply, extracts tool intents (native
// tool-use events or XML-tagged text), dispatches them through the safety
// gates, and loops with the results until the model answers in plain text
// or the iteration cap forces a summary.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/auditlog"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/budget"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/executor"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/safety"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/websearch"
)

const (
	// MaxIterations bounds the tool loop within one turn. On reaching it the
	// model is asked for a plain summary instead of more tools.
	MaxIterations = 5

	// DefaultIdleTimeout fails the turn when the provider stream delivers
	// nothing for this long.
	DefaultIdleTimeout = 30 * time.Second

	summarizePrompt = "Summarize what you found so far in plain language. Don't include any command tags."

	summaryFallback = "I ran several searches but couldn't generate a summary. Check the preview panel for raw results."
)

// Auditor receives audit entries for executed and denied commands. The
// concrete implementation is auditlog.Store.
type Auditor interface {
	Append(auditlog.Entry)
}

// Generator is the slice of the provider router the turn loop needs.
type Generator interface {
	GenerateStream(ctx context.Context, messages []provider.Message, tools []provider.ToolDef, onChunk func(provider.StreamChunk)) error
}

// Searcher is the slice of the web-search client the turn loop needs.
type Searcher interface {
	Search(ctx context.Context, req websearch.SearchRequest) (websearch.SearchResult, error)
}

// Options configure a session. Generator is required; everything else has a
// working default.
type Options struct {
	Generator Generator
	Search    Searcher
	Runner    CommandRunner
	Skills    *skill.Runner
	SkillCtx  *skill.Context
	Auditor   Auditor
	Logger    *slog.Logger

	// AllowedDirs is the directory allow-list every command and preview
	// path is checked against. Empty rejects all paths.
	AllowedDirs []string

	// AllowTerminal and AllowWeb mirror the user's settings toggles.
	AllowTerminal bool
	AllowWeb      bool

	CommandTimeout time.Duration
	IdleTimeout    time.Duration
}

// ExecutedCommand records one command the turn actually ran (or refused to
// run with a recorded reason).
type ExecutedCommand struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

// TurnResult is everything one completed turn hands back to the host.
type TurnResult struct {
	Reply       string
	PreviewFile string
	Executed    []ExecutedCommand
	Pending     []PendingCommand
	Budget      budget.Report
	Iterations  int
}

// Session owns one conversation: the system message, the growing transcript,
// and the approval queue that outlives individual turns. One turn runs at a
// time; Turn is not safe for concurrent calls on the same session.
type Session struct {
	gen      Generator
	search   Searcher
	skills   *skill.Runner
	skillCtx *skill.Context
	auditor  Auditor
	log      *slog.Logger
	queue    *ApprovalQueue

	allowedDirs   []string
	allowTerminal bool
	allowWeb      bool
	cmdTimeout    time.Duration
	idleTimeout   time.Duration

	mu       sync.Mutex
	messages []provider.Message
}

// NewSession starts a conversation with the given system prompt.
func NewSession(systemPrompt string, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	runner := opts.Runner
	if runner == nil {
		runner = ShellRunner{}
	}
	cmdTimeout := opts.CommandTimeout
	if cmdTimeout <= 0 {
		cmdTimeout = executor.DefaultTimeout
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Session{
		messages:      []provider.Message{provider.SystemMessage(systemPrompt)},
		gen:           opts.Generator,
		search:        opts.Search,
		skills:        opts.Skills,
		skillCtx:      opts.SkillCtx,
		auditor:       opts.Auditor,
		log:           log,
		queue:         NewApprovalQueue(runner, opts.Auditor, cmdTimeout),
		allowedDirs:   opts.AllowedDirs,
		allowTerminal: opts.AllowTerminal,
		allowWeb:      opts.AllowWeb,
		cmdTimeout:    cmdTimeout,
		idleTimeout:   idle,
	}
}

// Approvals exposes the session's pending-command queue to the host.
func (s *Session) Approvals() *ApprovalQueue {
	return s.queue
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AppendMessage adds a message outside the turn loop; the host uses it to
// post approved-command results back into the conversation.
func (s *Session) AppendMessage(m provider.Message) {
	s.append(m)
}

func (s *Session) append(m provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Turn runs one user input to a final reply. Streamed chunks are forwarded
// to onChunk as they arrive; between tool iterations a synthetic
// Done{iteration_reset} chunk tells the UI to clear its partial buffer.
// Provider errors end the turn; tool failures become tool results and the
// loop continues. A panicking adapter degrades to an internal error.
func (s *Session) Turn(ctx context.Context, userText string, onChunk func(provider.StreamChunk)) (result TurnResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("turn panicked", "panic", r)
			err = provider.NewError(provider.ErrKindInternal, fmt.Sprintf("internal error: %v", r), nil)
		}
	}()
	if onChunk == nil {
		onChunk = func(provider.StreamChunk) {}
	}

	s.append(provider.UserMessage(userText))

	for iteration := 0; iteration < MaxIterations; iteration++ {
		if iteration > 0 {
			onChunk(provider.StreamChunk{Kind: provider.ChunkDone, StopReason: provider.StopReasonIterationReset})
		}
		result.Iterations = iteration + 1

		text, toolUses, streamErr := s.streamOnce(ctx, true, onChunk, &result.Budget)
		if streamErr != nil {
			result.Pending = s.queue.Pending()
			return result, s.classifyTurnError(ctx, streamErr)
		}

		intents := s.collectIntents(text, toolUses)
		if len(intents) == 0 {
			s.append(provider.AssistantMessage(text))
			result.Reply = text
			result.Pending = s.queue.Pending()
			return result, nil
		}

		s.append(assistantMessage(text, toolUses))
		s.append(s.dispatch(ctx, intents, &result))

		if ctx.Err() != nil {
			result.Pending = s.queue.Pending()
			return result, s.classifyTurnError(ctx, ctx.Err())
		}
	}

	// Out of iterations. Ask for plain language, tools off.
	s.log.Debug("iteration cap reached, forcing summary")
	s.append(provider.UserMessage(summarizePrompt))
	text, _, streamErr := s.streamOnce(ctx, false, onChunk, &result.Budget)
	if streamErr != nil {
		if ctx.Err() != nil {
			result.Pending = s.queue.Pending()
			return result, s.classifyTurnError(ctx, streamErr)
		}
		s.log.Warn("summary stream failed", "error", streamErr)
		text = summaryFallback
	}
	s.append(provider.AssistantMessage(text))
	result.Reply = text
	result.Pending = s.queue.Pending()
	return result, nil
}

// streamOnce trims the transcript to budget and runs one streamed call,
// accumulating text and completed tool-use events. An idle watchdog cancels
// the stream when no chunk arrives for the configured window.
func (s *Session) streamOnce(ctx context.Context, enableTools bool, onChunk func(provider.StreamChunk), report *budget.Report) (string, []provider.Part, error) {
	kept, rep := budget.Trim(s.Messages(), 0)
	*report = rep
	if rep.DroppedMessages > 0 {
		s.log.Debug("trimmed conversation", "dropped", rep.DroppedMessages, "prompt_tokens_est", rep.PromptTokensEst)
	}

	var tools []provider.ToolDef
	if enableTools {
		tools = provider.BuiltinTools()
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	dog := newIdleWatchdog(s.idleTimeout, cancel)
	defer dog.stop()

	var text strings.Builder
	var toolUses []provider.Part
	err := s.gen.GenerateStream(streamCtx, kept, tools, func(ch provider.StreamChunk) {
		dog.touch()
		switch ch.Kind {
		case provider.ChunkText:
			text.WriteString(ch.Text)
		case provider.ChunkToolUseComplete:
			toolUses = append(toolUses, provider.ToolUsePart(ch.ToolID, ch.ToolName, ch.Input))
		}
		onChunk(ch)
	})
	if err != nil && dog.fired() && ctx.Err() == nil {
		err = provider.NewError(provider.ErrKindTransport,
			fmt.Sprintf("The AI provider stopped responding (no data for %s).", s.idleTimeout), err)
	}
	return text.String(), toolUses, err
}

// collectIntents prefers the structured protocol: any completed tool-use
// events are taken verbatim and the text is never scanned. Otherwise the
// XML tags in the accumulated text drive the turn.
func (s *Session) collectIntents(text string, toolUses []provider.Part) []Intent {
	if len(toolUses) > 0 {
		intents := make([]Intent, 0, len(toolUses))
		for _, part := range toolUses {
			intents = append(intents, nativeIntent(provider.StreamChunk{
				Kind:     provider.ChunkToolUseComplete,
				ToolID:   part.ToolID,
				ToolName: part.ToolName,
				Input:    part.Input,
			}))
		}
		return intents
	}
	return ParseIntents(text)
}

// assistantMessage builds the between-iteration assistant record: exact
// content parts on the native path, raw text on the XML path.
func assistantMessage(text string, toolUses []provider.Part) provider.Message {
	if len(toolUses) == 0 {
		return provider.AssistantMessage(text)
	}
	parts := make([]provider.Part, 0, len(toolUses)+1)
	if strings.TrimSpace(text) != "" {
		parts = append(parts, provider.TextPart(text))
	}
	parts = append(parts, toolUses...)
	return provider.Message{Role: provider.RoleAssistant, Parts: parts}
}

// dispatch runs the turn's intents sequentially in document order and packs
// their outputs into the single user message sent back to the model:
// tool_result parts keyed by tool-use id on the native path, "[...]"
// fragments joined by blank lines on the XML path.
func (s *Session) dispatch(ctx context.Context, intents []Intent, result *TurnResult) provider.Message {
	var parts []provider.Part
	var texts []string
	for _, in := range intents {
		content := s.dispatchOne(ctx, in, result)
		if in.ToolUseID != "" {
			parts = append(parts, provider.ToolResultPart(in.ToolUseID, content))
		} else {
			texts = append(texts, content)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if len(parts) > 0 {
		return provider.Message{Role: provider.RoleUser, Parts: parts}
	}
	return provider.UserMessage(strings.Join(texts, "\n\n"))
}

func (s *Session) dispatchOne(ctx context.Context, in Intent, result *TurnResult) string {
	switch in.Kind {
	case IntentSearch:
		return s.dispatchSearch(ctx, in.Query)
	case IntentCommand:
		return s.dispatchCommand(ctx, in.Command, result)
	case IntentPreview:
		return s.dispatchPreview(in.Path, result)
	case IntentSkill:
		return s.dispatchSkill(ctx, in)
	default:
		return fmt.Sprintf("[Unknown tool request: %s]", in.Kind)
	}
}

func (s *Session) dispatchSearch(ctx context.Context, query string) string {
	if !s.allowWeb {
		return fmt.Sprintf("[Search blocked: Internet access disabled]\nQuery: %s", query)
	}
	if s.search == nil {
		return fmt.Sprintf("[Search failed for '%s']: no search backend configured", query)
	}
	s.log.Debug("web search", "query", query)
	res, err := s.search.Search(ctx, websearch.SearchRequest{Query: query})
	if err != nil {
		return fmt.Sprintf("[Search failed for '%s']: %v", query, err)
	}
	return fmt.Sprintf("[Search Results for '%s']\n%s", query, res.Output)
}

// dispatchCommand is the full gate sequence: terminal toggle, allow-list,
// classifier, then either immediate execution (Safe) or the approval queue.
// The classifier is never consulted for a command the allow-list rejects.
func (s *Session) dispatchCommand(ctx context.Context, cmd string, result *TurnResult) string {
	if !s.allowTerminal {
		result.Executed = append(result.Executed, ExecutedCommand{
			Command: cmd,
			Output:  "Terminal access disabled in settings",
		})
		return fmt.Sprintf("[Command blocked: terminal access disabled]\n$ %s", cmd)
	}
	if err := safety.ValidateCommand(cmd, s.allowedDirs); err != nil {
		return fmt.Sprintf("[Command blocked: %s]\n$ %s", err, cmd)
	}

	danger := safety.Classify(cmd)
	switch danger {
	case safety.DangerLevelBlocked:
		result.Executed = append(result.Executed, ExecutedCommand{
			Command: cmd,
			Output:  "Blocked for safety",
		})
		return fmt.Sprintf("[Command blocked for safety: %s]", cmd)
	case safety.DangerLevelSafe:
		s.log.Debug("running command", "command", cmd)
		res := s.queue.run.Run(ctx, cmd, s.cmdTimeout)
		result.Executed = append(result.Executed, ExecutedCommand{
			Command: cmd,
			Output:  res.Output,
			Success: res.Success,
		})
		s.audit(auditlog.CommandRun(cmd, res.Summary, res.Success))
		out := res.Output
		if strings.TrimSpace(out) == "" {
			out = "(no output)"
		}
		return fmt.Sprintf("[Command output]\n$ %s\n%s", cmd, out)
	default:
		s.queue.enqueue(cmd, danger)
		s.log.Debug("command queued for approval", "command", cmd, "danger", danger)
		return fmt.Sprintf("[Command '%s' queued for user approval]", cmd)
	}
}

func (s *Session) dispatchPreview(path string, result *TurnResult) string {
	expanded := safety.ExpandUserPath(path)
	if !safety.IsPathInAllowedDirs(expanded, s.allowedDirs) {
		return fmt.Sprintf("[Preview blocked: path %s is outside the allowed folders]", path)
	}
	if _, err := os.Stat(expanded); err != nil {
		return fmt.Sprintf("[Preview failed: %s does not exist]", path)
	}
	result.PreviewFile = expanded
	return "File opened in preview panel."
}

func (s *Session) dispatchSkill(ctx context.Context, in Intent) string {
	if s.skills == nil || s.skillCtx == nil {
		return fmt.Sprintf("[Unknown tool: %s]", in.SkillID)
	}
	input := skill.Input{Query: stringInput(in.Params, "query"), Params: in.Params}
	exec, err := s.skills.Run(ctx, in.SkillID, input, s.skillCtx)
	if err != nil {
		return fmt.Sprintf("[Skill '%s' failed: %v]", in.SkillID, err)
	}
	if exec.Output != nil && exec.Output.Text != "" {
		return exec.Output.Text
	}
	if exec.Error != "" {
		return fmt.Sprintf("[Skill '%s' failed: %s]", in.SkillID, exec.Error)
	}
	return fmt.Sprintf("[Skill '%s' finished with status %s]", in.SkillID, exec.Status)
}

// classifyTurnError normalizes stream failures: an aborted context always
// wins over whatever error the provider surfaced while dying.
func (s *Session) classifyTurnError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return provider.NewError(provider.ErrKindCancelled, "Cancelled", ctx.Err())
	}
	return provider.AsProviderError(err)
}

func (s *Session) audit(e auditlog.Entry) {
	if s.auditor != nil {
		s.auditor.Append(e)
	}
}

// idleWatchdog cancels a stream that goes quiet. touch resets the clock;
// fired reports whether the cancellation came from the watchdog rather than
// the caller.
type idleWatchdog struct {
	timeout time.Duration
	timer   *time.Timer

	mu       sync.Mutex
	hasFired bool
}

func newIdleWatchdog(timeout time.Duration, cancel context.CancelFunc) *idleWatchdog {
	w := &idleWatchdog{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.mu.Lock()
		w.hasFired = true
		w.mu.Unlock()
		cancel()
	})
	return w
}

func (w *idleWatchdog) touch() {
	w.timer.Reset(w.timeout)
}

func (w *idleWatchdog) stop() {
	w.timer.Stop()
}

func (w *idleWatchdog) fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasFired
}
