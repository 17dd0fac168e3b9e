package agent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
)

// IntentKind tags one tool request extracted from model output.
type IntentKind string

const (
	IntentSearch  IntentKind = "search"
	IntentCommand IntentKind = "command"
	IntentPreview IntentKind = "preview"
	IntentSkill   IntentKind = "skill"
)

// Intent is one tool request. On the native protocol path ToolUseID keys
// the tool result sent back to the provider; on the XML path it is empty.
type Intent struct {
	Kind    IntentKind
	Query   string
	Command string
	Path    string
	SkillID string
	Params  map[string]any

	ToolUseID string
}

// Tag names are case-sensitive and bodies match non-greedily, so two tags
// on one line stay two intents.
var (
	searchTag  = regexp.MustCompile(`(?s)<search>(.*?)</search>`)
	commandTag = regexp.MustCompile(`(?s)<(?:command|cmd|run|request)>(.*?)</(?:command|cmd|run|request)>`)
	previewTag = regexp.MustCompile(`(?s)<preview>(.*?)</preview>`)
)

// ParseIntents extracts tagged tool requests in document order. Bodies are
// trimmed; empty bodies are skipped; exact repeats within one response
// collapse to the first occurrence.
func ParseIntents(text string) []Intent {
	type located struct {
		start  int
		intent Intent
	}
	var found []located

	for _, m := range searchTag.FindAllStringSubmatchIndex(text, -1) {
		if body := strings.TrimSpace(text[m[2]:m[3]]); body != "" {
			found = append(found, located{m[0], Intent{Kind: IntentSearch, Query: body}})
		}
	}
	for _, m := range commandTag.FindAllStringSubmatchIndex(text, -1) {
		if body := strings.TrimSpace(text[m[2]:m[3]]); body != "" {
			found = append(found, located{m[0], Intent{Kind: IntentCommand, Command: body}})
		}
	}
	for _, m := range previewTag.FindAllStringSubmatchIndex(text, -1) {
		if body := strings.TrimSpace(text[m[2]:m[3]]); body != "" {
			found = append(found, located{m[0], Intent{Kind: IntentPreview, Path: body}})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })

	seen := make(map[string]bool, len(found))
	out := make([]Intent, 0, len(found))
	for _, f := range found {
		key := f.intent.dedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f.intent)
	}
	return out
}

func (in Intent) dedupeKey() string {
	return string(in.Kind) + "\x00" + in.Query + in.Command + in.Path
}

// StripIntents removes tool tags so the UI can show the model's prose
// alone. Stripping runs to a fixpoint; reparsing the result yields no
// intents even when tags were nested inside other tags.
func StripIntents(text string) string {
	out := text
	for {
		next := searchTag.ReplaceAllString(out, "")
		next = commandTag.ReplaceAllString(next, "")
		next = previewTag.ReplaceAllString(next, "")
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
}

// nativeIntent maps one structured tool-use event onto an intent. Tool
// names outside the builtin surface address the skill registry.
func nativeIntent(ch provider.StreamChunk) Intent {
	switch ch.ToolName {
	case provider.ToolWebSearch:
		return Intent{Kind: IntentSearch, Query: stringInput(ch.Input, "query"), ToolUseID: ch.ToolID}
	case provider.ToolBashExecute:
		return Intent{Kind: IntentCommand, Command: stringInput(ch.Input, "command"), ToolUseID: ch.ToolID}
	case provider.ToolFilePreview:
		return Intent{Kind: IntentPreview, Path: stringInput(ch.Input, "path"), ToolUseID: ch.ToolID}
	default:
		return Intent{Kind: IntentSkill, SkillID: ch.ToolName, Params: ch.Input, ToolUseID: ch.ToolID}
	}
}

func stringInput(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	s, _ := input[key].(string)
	return strings.TrimSpace(s)
}
