package history

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const previewMaxRunes = 80

// titlePrefixes are request framings stripped before titling, so
// "Can you help me find my tax PDFs" titles as "Tax PDFs ...".
var titlePrefixes = []string{
	"Can you ", "Could you ", "Please ", "Help me ", "I need ",
	"How do I ", "What is ", "Find ", "Search for ", "Show me ",
	"Tell me ", "Explain ", "Analyze ", "Write ", "Create ", "Make ",
	"Fix ", "Check ", "Organize ", "Research ",
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"up": true, "about": true, "into": true, "through": true,
	"during": true, "before": true, "after": true, "above": true,
	"below": true, "between": true, "among": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true,
	"can": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "you": true, "he": true, "she": true,
	"it": true, "we": true, "they": true, "me": true, "him": true,
	"her": true, "us": true, "them": true, "my": true, "your": true,
	"his": true, "its": true, "our": true, "their": true, "just": true,
	"only": true, "also": true, "very": true, "really": true,
}

// GenerateTitle derives a short thread title from a message: strip
// request prefixes, drop stop words, keep at most six content words, and
// capitalize. Falls back to the first five words when everything was a
// stop word.
func GenerateTitle(message string) string {
	cleaned := message
	for _, p := range titlePrefixes {
		cleaned = strings.TrimPrefix(cleaned, p)
	}

	words := strings.Fields(cleaned)

	// Only the first eight words are considered, keeping at most six
	// content words.
	window := words
	if len(window) > 8 {
		window = window[:8]
	}
	titleWords := make([]string, 0, 6)
	for _, w := range window {
		if len(titleWords) >= 6 {
			break
		}
		if stopWords[strings.ToLower(w)] {
			continue
		}
		titleWords = append(titleWords, w)
	}

	title := strings.Join(titleWords, " ")
	if title == "" {
		n := len(words)
		if n > 5 {
			n = 5
		}
		title = strings.Join(words[:n], " ")
	}

	return capitalizeFirst(title)
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

func truncatePreview(message string) string {
	message = strings.TrimSpace(message)
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")
	runes := []rune(message)
	if len(runes) <= previewMaxRunes {
		return message
	}
	return string(runes[:previewMaxRunes]) + "..."
}

// fuzzyScore rates how well query matches target. Zero means no match;
// consecutive-substring matches score higher when they start the target
// or a word within it.
func fuzzyScore(query string, target string) float64 {
	q := []rune(strings.ToLower(query))
	if len(q) == 0 {
		return 1.0
	}
	t := []rune(strings.ToLower(target))

	start := consecutiveMatch(q, t)
	if start < 0 {
		return 0
	}

	score := float64(len(q))
	if start == 0 || isWordBoundary(t[start-1]) {
		score += 0.8
	}
	score += float64(len(q)-1) * 0.5

	startBonus := 0.0
	if start == 0 {
		startBonus = 0.5
	}

	base := score / float64(len(q))
	lengthPenalty := (float64(len(t)) - float64(len(q))) * 0.005

	if s := base + startBonus - lengthPenalty; s > 0 {
		return s
	}
	return 0
}

func consecutiveMatch(query []rune, target []rune) int {
	if len(query) > len(target) {
		return -1
	}
	for start := 0; start <= len(target)-len(query); start++ {
		matched := true
		for i := range query {
			if query[i] != target[start+i] {
				matched = false
				break
			}
		}
		if matched {
			return start
		}
	}
	return -1
}

func isWordBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '-' || r == '_' || r == '/' || r == '.'
}

// FormatTimeAgo renders elapsed time the way the thread list shows it:
// "just now", "5m ago", "3h ago", "2d ago", "1w ago".
func FormatTimeAgo(elapsed time.Duration) string {
	seconds := int64(elapsed.Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	case seconds < 604800:
		return fmt.Sprintf("%dd ago", seconds/86400)
	default:
		return fmt.Sprintf("%dw ago", seconds/86400/7)
	}
}
