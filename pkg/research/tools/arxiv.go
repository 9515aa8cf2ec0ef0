package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
)

// DefaultArxivURL is the arXiv Atom query endpoint.
const DefaultArxivURL = "https://export.arxiv.org/api/query"

// Sort orders accepted by the arXiv API.
const (
	SortRelevance       = "relevance"
	SortLastUpdatedDate = "lastUpdatedDate"
	SortSubmittedDate   = "submittedDate"
)

// ValidSort reports whether s is an arXiv sort order.
func ValidSort(s string) bool {
	switch s {
	case SortRelevance, SortLastUpdatedDate, SortSubmittedDate:
		return true
	}
	return false
}

// ArxivClient searches arXiv paper metadata.
type ArxivClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// ArxivOption configures an ArxivClient.
type ArxivOption func(*ArxivClient)

// WithArxivBaseURL points the client at another endpoint.
func WithArxivBaseURL(u string) ArxivOption {
	return func(c *ArxivClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithArxivHTTPClient sets the HTTP client.
func WithArxivHTTPClient(client *http.Client) ArxivOption {
	return func(c *ArxivClient) {
		c.client = client
	}
}

// WithArxivLogger sets the logger for failed lookups.
func WithArxivLogger(logger *slog.Logger) ArxivOption {
	return func(c *ArxivClient) {
		c.logger = logger
	}
}

// NewArxivClient creates a client for the public arXiv API.
func NewArxivClient(opts ...ArxivOption) *ArxivClient {
	c := &ArxivClient{
		baseURL: DefaultArxivURL,
		client:  &http.Client{Timeout: time.Minute},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to max papers matching query in sortBy order. An
// unknown sortBy falls back to relevance. It never fails: a lookup error
// comes back as one Paper carrying Err.
func (c *ArxivClient) Search(ctx context.Context, query string, max int, sortBy string) []Paper {
	papers, err := c.search(ctx, query, max, sortBy)
	if err != nil {
		c.logger.WarnContext(ctx, "arxiv search failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return []Paper{{Err: err.Error()}}
	}
	return papers
}

func (c *ArxivClient) search(ctx context.Context, query string, max int, sortBy string) ([]Paper, error) {
	if max <= 0 {
		max = 1
	}
	if !ValidSort(sortBy) {
		sortBy = SortRelevance
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(max))
	params.Set("sortBy", sortBy)
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	parser := &atom.Parser{}
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		// arXiv reports query errors as a feed entry.
		if strings.Contains(e.ID, "/api/errors") {
			return nil, fmt.Errorf("arxiv: %s", strings.TrimSpace(e.Summary))
		}
		papers = append(papers, paperFromEntry(e))
		if len(papers) == max {
			break
		}
	}
	return papers, nil
}

// arxivID strips the abs URL prefix, keeping old-style archive/number ids whole.
func arxivID(entryID string) string {
	if i := strings.Index(entryID, "/abs/"); i >= 0 {
		return entryID[i+len("/abs/"):]
	}
	return entryID[strings.LastIndex(entryID, "/")+1:]
}

func paperFromEntry(e *atom.Entry) Paper {
	p := Paper{
		PaperID:     arxivID(e.ID),
		Title:       strings.Join(strings.Fields(e.Title), " "),
		PublishDate: e.Published,
	}
	if e.PublishedParsed != nil {
		p.PublishDate = e.PublishedParsed.UTC().Format(time.RFC3339)
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if p.PDFURL == "" && p.PaperID != "" {
		p.PDFURL = "https://arxiv.org/pdf/" + p.PaperID
	}
	if p.PDFURL != "" && !strings.HasSuffix(p.PDFURL, ".pdf") {
		p.PDFURL += ".pdf"
	}
	return p
}
