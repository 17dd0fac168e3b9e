// Package budget keeps conversations inside a conservative token window so
// prompts stay small and fast regardless of the active provider's advertised
// context size.
package budget

import (
	"strings"
	"unicode/utf8"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
)

const (
	// ComfortTotalTokens is the whole-turn window: prompt plus reply.
	ComfortTotalTokens = 8000
	// ReservedForReply is held back from the window for the model's answer.
	ReservedForReply = 2000
)

// Estimate approximates token cost at roughly four characters per token,
// never less than one. It is intentionally cheap; the trim policy only needs
// a monotone heuristic, not exact tokenization.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// Report summarizes what a trim kept and dropped.
type Report struct {
	TotalTokensIn   int `json:"total_tokens_in"`
	DroppedMessages int `json:"dropped_messages"`
	PromptTokensEst int `json:"prompt_tokens_est"`
	ReplyTokensEst  int `json:"reply_tokens_est"`
}

// Trim keeps the leading system message, then walks the rest newest-first,
// keeping messages while the cumulative estimate fits the prompt budget. The
// first message that overflows stops the walk: it and everything older are
// dropped. Kept messages come back in their original order.
func Trim(messages []provider.Message, replyReserve int) ([]provider.Message, Report) {
	if replyReserve <= 0 {
		replyReserve = ReservedForReply
	}
	budget := ComfortTotalTokens - replyReserve
	if budget < 0 {
		budget = 0
	}

	report := Report{ReplyTokensEst: replyReserve}
	for _, msg := range messages {
		report.TotalTokensIn += estimateMessage(msg)
	}

	kept := make([]provider.Message, 0, len(messages))
	used := 0
	rest := messages
	if len(messages) > 0 && messages[0].Role == provider.RoleSystem {
		kept = append(kept, messages[0])
		used += estimateMessage(messages[0])
		rest = messages[1:]
	}

	keptRev := make([]provider.Message, 0, len(rest))
	for i := len(rest) - 1; i >= 0; i-- {
		cost := estimateMessage(rest[i])
		if used+cost > budget {
			report.DroppedMessages = i + 1
			break
		}
		used += cost
		keptRev = append(keptRev, rest[i])
	}

	for i := len(keptRev) - 1; i >= 0; i-- {
		kept = append(kept, keptRev[i])
	}

	report.PromptTokensEst = used
	return kept, report
}

// estimateMessage prices a message by its visible text. Structured messages
// count their text and tool-result fragments; tool inputs are noise at this
// granularity.
func estimateMessage(m provider.Message) int {
	if len(m.Parts) == 0 {
		return Estimate(m.Text)
	}
	total := 0
	for _, part := range m.Parts {
		switch part.Kind {
		case provider.PartKindText:
			total += Estimate(part.Text)
		case provider.PartKindToolResult:
			total += Estimate(part.Content)
		case provider.PartKindToolUse:
			total += Estimate(part.ToolName)
		}
	}
	if total < 1 {
		total = 1
	}
	return total
}

// ContextHint reports a rough advertised context size for display only. The
// trim policy ignores it and stays inside the comfort window.
func ContextHint(providerName string, model string) int {
	m := strings.ToLower(model)
	switch {
	case providerName == "gemini" && strings.Contains(m, "1.5"):
		return 1_000_000
	case providerName == "anthropic":
		return 200_000
	case providerName == "openai":
		return 128_000
	default:
		return 8_192
	}
}
