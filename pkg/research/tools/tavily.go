package tools

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTavilyURL is the Tavily API root.
const DefaultTavilyURL = "https://api.tavily.com"

// TavilyClient searches the web through the Tavily API.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	rawContent bool
	client     *http.Client
	logger     *slog.Logger
}

// TavilyOption configures a TavilyClient.
type TavilyOption func(*TavilyClient)

// WithTavilyBaseURL points the client at another endpoint.
func WithTavilyBaseURL(url string) TavilyOption {
	return func(c *TavilyClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithRawContent asks Tavily for the cleaned page body of each hit.
func WithRawContent(enabled bool) TavilyOption {
	return func(c *TavilyClient) {
		c.rawContent = enabled
	}
}

// WithTavilyHTTPClient sets the HTTP client.
func WithTavilyHTTPClient(client *http.Client) TavilyOption {
	return func(c *TavilyClient) {
		c.client = client
	}
}

// WithTavilyLogger sets the logger for failed searches.
func WithTavilyLogger(logger *slog.Logger) TavilyOption {
	return func(c *TavilyClient) {
		c.logger = logger
	}
}

// NewTavilyClient creates a client with the given API key.
func NewTavilyClient(apiKey string, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		apiKey:  apiKey,
		baseURL: DefaultTavilyURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
	SearchDepth       string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search returns up to max results for query. It never fails: a provider
// error comes back as one WebResult carrying Err.
func (c *TavilyClient) Search(ctx context.Context, query string, max int) []WebResult {
	results, err := c.search(ctx, query, max)
	if err != nil {
		c.logger.WarnContext(ctx, "web search failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return []WebResult{{Err: err.Error()}}
	}
	return results
}

func (c *TavilyClient) search(ctx context.Context, query string, max int) ([]WebResult, error) {
	if c.apiKey == "" {
		return nil, errors.New("tavily: api key not configured")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	var resp tavilyResponse
	err := doJSON(ctx, c.client, http.MethodPost, c.baseURL+"/search", tavilyRequest{
		Query:             query,
		MaxResults:        max,
		IncludeRawContent: c.rawContent,
		SearchDepth:       "basic",
	}, &resp, header)
	if err != nil {
		return nil, err
	}

	out := make([]WebResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, WebResult{
			Title:      r.Title,
			URL:        r.URL,
			Content:    r.Content,
			RawContent: r.RawContent,
			Score:      r.Score,
		})
	}
	return out, nil
}
