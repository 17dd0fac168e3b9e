// Package skill defines the catalog of named, mode-scoped capabilities the
// agent can invoke: descriptors, the registry with its permission gate, safe
// file operations that cannot delete, and a timed runner.
package skill

import (
	"fmt"
	"strings"
	"time"
)

// Mode names one of the assistant's working modes. Every skill declares the
// modes it serves; the registry filters on the active one.
type Mode string

const (
	ModeFind     Mode = "find"
	ModeFix      Mode = "fix"
	ModeResearch Mode = "research"
	ModeData     Mode = "data"
	ModeContent  Mode = "content"
	ModeBuild    Mode = "build"
)

// AllModes returns every mode in declaration order.
func AllModes() []Mode {
	return []Mode{ModeFind, ModeFix, ModeResearch, ModeData, ModeContent, ModeBuild}
}

// ParseMode maps a user-supplied string to a Mode, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeFind, ModeFix, ModeResearch, ModeData, ModeContent, ModeBuild:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func (m Mode) String() string { return string(m) }

// DisplayName is the capitalized form shown in the mode picker.
func (m Mode) DisplayName() string {
	switch m {
	case ModeFind:
		return "Find"
	case ModeFix:
		return "Fix"
	case ModeResearch:
		return "Research"
	case ModeData:
		return "Data"
	case ModeContent:
		return "Content"
	case ModeBuild:
		return "Build"
	}
	return string(m)
}

// PermissionLevel is the risk tier a skill declares for itself. It never
// changes at runtime; the user-set Permission is layered on top.
type PermissionLevel string

const (
	// LevelSafe skills read state or produce text and run without approval.
	LevelSafe PermissionLevel = "safe"
	// LevelSensitive skills mutate the file system or reach the network in
	// ways the user should see coming. One approval per invocation unless
	// the session pre-approved the skill.
	LevelSensitive PermissionLevel = "sensitive"
	// LevelAdmin skills additionally need sudo credentials in hand.
	LevelAdmin PermissionLevel = "admin"
)

// Permission is the user's standing decision for one skill.
type Permission string

const (
	PermissionAuto Permission = "auto"
	PermissionAsk  Permission = "ask"
	PermissionDeny Permission = "deny"
)

// DefaultPermission seeds the user setting from the declared level: safe
// skills start enabled, everything else starts at ask.
func DefaultPermission(level PermissionLevel) Permission {
	if level == LevelSafe {
		return PermissionAuto
	}
	return PermissionAsk
}

// ResultType classifies what a skill produced so the UI can pick a surface.
type ResultType string

const (
	ResultText  ResultType = "text"
	ResultFiles ResultType = "files"
	ResultData  ResultType = "data"
	ResultMixed ResultType = "mixed"
	ResultError ResultType = "error"
)

// FileAction names what happened to a file. There is no deleted action;
// nothing in this package can produce one.
type FileAction string

const (
	ActionCreated  FileAction = "created"
	ActionModified FileAction = "modified"
	ActionMoved    FileAction = "moved"
	ActionArchived FileAction = "archived"
)

// FileResult reports one file a skill touched. Detail carries the origin
// path for moves and archives.
type FileResult struct {
	Path   string     `json:"path"`
	Action FileAction `json:"action"`
	Detail string     `json:"detail,omitempty"`
}

// Citation is a source reference attached to research output.
type Citation struct {
	Text       string    `json:"text"`
	URL        string    `json:"url"`
	AccessedAt time.Time `json:"accessed_at"`
	Verified   bool      `json:"verified"`
}

// SuggestedAction is a follow-up the UI can offer as a one-click button.
type SuggestedAction struct {
	Label   string         `json:"label"`
	SkillID string         `json:"skill_id"`
	Params  map[string]any `json:"params,omitempty"`
}

// Input is what a skill receives: the user's query plus structured
// parameters, and optionally files and recent conversation for context.
type Input struct {
	Query        string         `json:"query"`
	Params       map[string]any `json:"params,omitempty"`
	ContextFiles []string       `json:"context_files,omitempty"`
	Conversation []string       `json:"conversation,omitempty"`
}

// NewInput builds an Input from a bare query.
func NewInput(query string) Input {
	return Input{Query: query, Params: map[string]any{}}
}

// WithParam returns a copy of the input with one parameter set.
func (in Input) WithParam(key string, value any) Input {
	params := make(map[string]any, len(in.Params)+1)
	for k, v := range in.Params {
		params[k] = v
	}
	params[key] = value
	in.Params = params
	return in
}

// WithFile returns a copy of the input with one context file appended.
func (in Input) WithFile(path string) Input {
	files := make([]string, 0, len(in.ContextFiles)+1)
	files = append(files, in.ContextFiles...)
	in.ContextFiles = append(files, path)
	return in
}

// StringParam returns a trimmed string parameter, or "" when absent or not
// a string.
func (in Input) StringParam(key string) string {
	v, ok := in.Params[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Output is what a skill returns.
type Output struct {
	ResultType       ResultType        `json:"result_type"`
	Text             string            `json:"text,omitempty"`
	Files            []FileResult      `json:"files,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	Citations        []Citation        `json:"citations,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// TextOutput builds a plain text result.
func TextOutput(text string) Output {
	return Output{ResultType: ResultText, Text: text}
}

// ErrorOutput builds an error result with a user-facing message.
func ErrorOutput(message string) Output {
	return Output{ResultType: ResultError, Text: message}
}

// DataOutput builds a structured result with an optional text summary.
func DataOutput(text string, data map[string]any) Output {
	return Output{ResultType: ResultData, Text: text, Data: data}
}

// WithCitation returns a copy of the output with one citation appended.
func (o Output) WithCitation(c Citation) Output {
	cs := make([]Citation, 0, len(o.Citations)+1)
	cs = append(cs, o.Citations...)
	o.Citations = append(cs, c)
	return o
}

// WithFile returns a copy of the output with one file result appended. A
// text result that gains files becomes mixed.
func (o Output) WithFile(f FileResult) Output {
	fs := make([]FileResult, 0, len(o.Files)+1)
	fs = append(fs, o.Files...)
	o.Files = append(fs, f)
	if o.ResultType == ResultText {
		o.ResultType = ResultMixed
	}
	return o
}

// IsError reports whether the skill itself flagged the result as a failure.
func (o Output) IsError() bool { return o.ResultType == ResultError }
