package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	wikipediaSearchEndpoint = "https://en.wikipedia.org/w/api.php"
	wikipediaArticleBase    = "https://en.wikipedia.org/wiki/"
	wikipediaTimeout        = 10 * time.Second
	wikipediaUserAgent      = "LittleHelper/1.0 (Desktop App)"

	noResultsFallbackCopy = "No results found. For full web search, add a Brave Search API key in Settings.\nGet one free at: https://api-dashboard.search.brave.com"
	fallbackHeader        = "Results from Wikipedia (for full web search, add a Brave Search API key in Settings):\n\n"
)

type wikipediaSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// wikipediaSearch is the keyless fallback backend. It always works without
// credentials, so research stays available on a fresh install.
func (c *Client) wikipediaSearch(ctx context.Context, req SearchRequest) (SearchResult, error) {
	endpoint, err := url.Parse(c.wikiURL)
	if err != nil || endpoint == nil {
		return SearchResult{}, errors.New("invalid wikipedia search endpoint")
	}
	q := endpoint.Query()
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("srsearch", req.Query)
	q.Set("format", "json")
	q.Set("srlimit", strconv.Itoa(req.Count))
	endpoint.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, wikipediaTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return SearchResult{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", wikipediaUserAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return SearchResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodyBytes))
	if err != nil {
		return SearchResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SearchResult{}, fmt.Errorf("wikipedia search failed (status %d)", resp.StatusCode)
	}

	var decoded wikipediaSearchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return SearchResult{}, errors.New("invalid wikipedia search response")
	}

	results := make([]ResultItem, 0, len(decoded.Query.Search))
	for _, item := range decoded.Query.Search {
		if len(results) == req.Count {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		results = append(results, ResultItem{
			Title:   title,
			URL:     wikipediaArticleBase + url.PathEscape(title),
			Snippet: htmlDecode(htmlTagPattern.ReplaceAllString(item.Snippet, "")),
		})
	}

	output := noResultsFallbackCopy
	if len(results) > 0 {
		output = fallbackHeader + formatResults(results)
	}

	return SearchResult{
		Provider: ProviderWikipedia,
		Query:    req.Query,
		Results:  results,
		Output:   output,
		Sources:  append([]ResultItem(nil), results...),
	}, nil
}

var htmlEntityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

func htmlDecode(s string) string {
	return strings.TrimSpace(htmlEntityReplacer.Replace(s))
}
