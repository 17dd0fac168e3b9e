package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/websearch"
)

// WebResearch runs a web search and returns cited results. It only reaches
// the network when the user's internet research toggle is on.
type WebResearch struct {
	client  *websearch.Client
	enabled func() bool
}

func NewWebResearch(client *websearch.Client, enabled func() bool) *WebResearch {
	return &WebResearch{client: client, enabled: enabled}
}

func (s *WebResearch) ID() string   { return "web_research" }
func (s *WebResearch) Name() string { return "Web Research" }

func (s *WebResearch) Description() string {
	return "Search the web for information on any topic"
}

func (s *WebResearch) Level() skill.PermissionLevel { return skill.LevelSafe }

func (s *WebResearch) Modes() []skill.Mode {
	return []skill.Mode{skill.ModeResearch}
}

func (s *WebResearch) ValidateInput(skill.Input) error { return nil }

func (s *WebResearch) Execute(ctx context.Context, in skill.Input, sc *skill.Context) (skill.Output, error) {
	if s.enabled != nil && !s.enabled() {
		return skill.TextOutput("Web search is disabled. Enable internet research in Settings to run searches."), nil
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return skill.TextOutput("What would you like to search for?\n\nExample: \"What are the benefits of renewable energy?\""), nil
	}

	result, err := s.client.Search(ctx, websearch.SearchRequest{Query: query})
	if err != nil {
		return skill.ErrorOutput(fmt.Sprintf("Search failed: %v", err)), nil
	}

	out := skill.TextOutput(formatResearch(query, result))
	out.Data = map[string]any{
		"query":        query,
		"provider":     result.Provider,
		"result_count": len(result.Results),
	}
	accessed := time.Now().UTC()
	for _, item := range result.Results {
		out = out.WithCitation(skill.Citation{
			Text:       fmt.Sprintf("%s: %s", item.Title, item.Snippet),
			URL:        item.URL,
			AccessedAt: accessed,
		})
	}
	return out, nil
}

func formatResearch(query string, result websearch.SearchResult) string {
	if len(result.Results) == 0 {
		return fmt.Sprintf("## Web Search\n\n**Query**: \"%s\"\n\nNo results found. Try rephrasing the search.", query)
	}
	var out strings.Builder
	fmt.Fprintf(&out, "## Search Results for \"%s\"\n\n", query)
	for i, item := range result.Results {
		fmt.Fprintf(&out, "### %d. %s\n**Source**: [%s](%s)\n\n%s\n\n",
			i+1, item.Title, domainOf(item.URL), item.URL, item.Snippet)
	}
	fmt.Fprintf(&out, "\n*Found %d results*\n", len(result.Results))
	return out.String()
}

func domainOf(url string) string {
	parts := strings.SplitN(url, "/", 4)
	if len(parts) < 3 || parts[2] == "" {
		return url
	}
	return strings.TrimPrefix(parts[2], "www.")
}
