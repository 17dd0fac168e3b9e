// Package websearch answers research queries with the Brave Search API
// when a subscription token is available and degrades to the Wikipedia
// search API otherwise, so the agent always has some research surface.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const braveKeyEnv = "BRAVE_SEARCH_API_KEY"

// Client routes queries to a backend. Zero-value Options work: no key
// means every query goes to Wikipedia.
type Client struct {
	http     *http.Client
	key      string
	braveURL string
	wikiURL  string
}

type Options struct {
	// APIKey is the Brave subscription token. Empty falls back to the
	// BRAVE_SEARCH_API_KEY environment variable, then to Wikipedia.
	APIKey string

	// BraveBaseURL and WikipediaBaseURL override the live endpoints.
	BraveBaseURL     string
	WikipediaBaseURL string

	HTTPClient *http.Client
}

func NewClient(opts Options) *Client {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(braveKeyEnv))
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	braveURL := opts.BraveBaseURL
	if braveURL == "" {
		braveURL = braveWebSearchEndpoint
	}
	wikiURL := opts.WikipediaBaseURL
	if wikiURL == "" {
		wikiURL = wikipediaSearchEndpoint
	}
	return &Client{http: httpClient, key: key, braveURL: braveURL, wikiURL: wikiURL}
}

// Configured reports whether full web search (Brave) is available.
func (c *Client) Configured() bool {
	return c.key != ""
}

// Search runs one query. A Brave failure degrades to the Wikipedia
// fallback; the error is non-nil only when no backend answered.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	req = req.Normalize()
	if req.Query == "" {
		return SearchResult{}, errors.New("missing query")
	}

	if c.key != "" {
		result, err := c.braveSearch(ctx, req)
		if err == nil {
			return result, nil
		}
		if fallback, ferr := c.wikipediaSearch(ctx, req); ferr == nil {
			return fallback, nil
		}
		return SearchResult{}, err
	}

	result, err := c.wikipediaSearch(ctx, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("all search backends failed: %w", err)
	}
	return result, nil
}

// formatResults renders items the way the model expects to read them back:
// numbered title, indented snippet, indented URL, blank line between items.
func formatResults(items []ResultItem) string {
	var out strings.Builder
	for i, item := range items {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "%d. %s\n   %s\n   URL: %s\n", i+1, item.Title, item.Snippet, item.URL)
	}
	return out.String()
}
