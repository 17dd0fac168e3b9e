package provider

import (
	"context"
	"errors"
	"strings"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind tags one typed fragment of a message.
type PartKind string

const (
	PartKindText       PartKind = "text"
	PartKindToolUse    PartKind = "tool_use"
	PartKindToolResult PartKind = "tool_result"
)

// Part is one content fragment. An assistant message may mix text and
// tool_use parts; a tool-result message carries only tool_result parts keyed
// by prior tool_use ids.
type Part struct {
	Kind     PartKind       `json:"kind"`
	Text     string         `json:"text,omitempty"`
	ToolID   string         `json:"tool_id,omitempty"`
	ToolName string         `json:"tool_name,omitempty"`
	Input    map[string]any `json:"input,omitempty"`
	Content  string         `json:"content,omitempty"`
}

// Message is one conversation entry. Text carries the plain form; Parts, when
// present, carry the structured form used by tool-capable providers.
type Message struct {
	Role  Role   `json:"role"`
	Text  string `json:"text,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

func TextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

func ToolUsePart(id string, name string, input map[string]any) Part {
	return Part{Kind: PartKindToolUse, ToolID: id, ToolName: name, Input: input}
}

func ToolResultPart(toolUseID string, content string) Part {
	return Part{Kind: PartKindToolResult, ToolID: toolUseID, Content: content}
}

// JoinedText returns the plain-text form of a message: Text when set,
// otherwise the concatenation of its text parts.
func (m Message) JoinedText() string {
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	parts := make([]string, 0, len(m.Parts))
	for _, part := range m.Parts {
		if part.Kind != PartKindText {
			continue
		}
		if txt := strings.TrimSpace(part.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n")
}

// ChunkKind tags one item of a provider stream.
type ChunkKind string

const (
	ChunkText            ChunkKind = "text"
	ChunkToolUseStart    ChunkKind = "tool_use_start"
	ChunkToolInputDelta  ChunkKind = "tool_input_delta"
	ChunkToolUseComplete ChunkKind = "tool_use_complete"
	ChunkDone            ChunkKind = "done"
	ChunkError           ChunkKind = "error"
)

// Stop reasons carried by done chunks. IterationReset is a synthetic sentinel
// the orchestrator emits between tool iterations so the UI can clear its
// partial assistant buffer.
const (
	StopReasonEndTurn        = "end_turn"
	StopReasonToolUse        = "tool_use"
	StopReasonMaxTokens      = "max_tokens"
	StopReasonIterationReset = "iteration_reset"
)

// StreamChunk is one ordered item of a generation stream.
type StreamChunk struct {
	Kind       ChunkKind      `json:"kind"`
	Text       string         `json:"text,omitempty"`
	ToolID     string         `json:"tool_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	InputDelta string         `json:"input_delta,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	StopReason string         `json:"stop_reason,omitempty"`
	Err        *Error         `json:"error,omitempty"`
}

// ErrorKind buckets provider failures for policy and user copy decisions.
type ErrorKind string

const (
	ErrKindAuth      ErrorKind = "auth"
	ErrKindTransport ErrorKind = "transport"
	ErrKindProtocol  ErrorKind = "protocol"
	ErrKindCancelled ErrorKind = "cancelled"
	ErrKindInternal  ErrorKind = "internal"
)

// Error is the single error shape the router surfaces: a kind for policy plus
// a human-readable message.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// AsProviderError extracts an *Error from an error chain, wrapping foreign
// errors as internal so callers always get a kind.
func AsProviderError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return NewError(classifyErrorKind(err), err.Error(), err)
}

// classifyErrorKind fingerprints an error into a kind. Keyword matching is
// coarse on purpose: it only drives which friendly message the UI picks.
func classifyErrorKind(err error) ErrorKind {
	if err == nil {
		return ErrKindInternal
	}
	if errors.Is(err, context.Canceled) {
		return ErrKindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTransport
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "api key"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"):
		return ErrKindAuth
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "dns"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "503"):
		return ErrKindTransport
	case strings.Contains(msg, "parse"),
		strings.Contains(msg, "decode"),
		strings.Contains(msg, "unmarshal"),
		strings.Contains(msg, "malformed"):
		return ErrKindProtocol
	default:
		return ErrKindInternal
	}
}

// Names of the host tools advertised to tool-capable providers.
const (
	ToolWebSearch   = "web_search"
	ToolBashExecute = "bash_execute"
	ToolFilePreview = "file_preview"
)

// ToolDef describes one host tool in provider-neutral form.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// BuiltinTools returns the host capabilities advertised when native tool use
// is enabled.
func BuiltinTools() []ToolDef {
	return []ToolDef{
		{
			Name:        ToolWebSearch,
			Description: "Search the web for information. Returns search results.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolBashExecute,
			Description: "Execute a terminal command and return the output.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The shell command to execute",
					},
				},
				"required": []string{"command"},
			},
		},
		{
			Name:        ToolFilePreview,
			Description: "Open a file in the preview panel for the user to see.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Absolute path to the file to preview",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// Provider is one upstream LLM backend. GenerateStream delivers ordered
// chunks to onChunk; adapters that cannot speak a structured tool protocol
// ignore the tool definitions and stream plain text.
type Provider interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, messages []Message) (string, error)
	GenerateStream(ctx context.Context, messages []Message, tools []ToolDef, onChunk func(StreamChunk)) error
}
