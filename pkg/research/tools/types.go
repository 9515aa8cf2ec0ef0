package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

// WebResult is one web search hit. A provider failure is reported as a
// single WebResult with Err set.
type WebResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score,omitempty"`
	Err        string  `json:"error,omitempty"`
}

// Paper is one arXiv search hit. A lookup failure is reported as a
// single Paper with Err set.
type Paper struct {
	PDFURL      string `json:"pdf_url"`
	PaperID     string `json:"paper_id"`
	Title       string `json:"title"`
	PublishDate string `json:"publish_date"`
	Err         string `json:"error,omitempty"`
}

// Passage is one semantic retrieval hit.
type Passage struct {
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// errorBody bounds how much of a failed response is quoted in errors.
const errorBody = 512

// doJSON sends body (if any) as JSON and decodes a 2xx JSON response into out.
func doJSON(ctx context.Context, client *http.Client, method, url string, body, out any, header http.Header) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(clip(data, errorBody))}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func clip(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
