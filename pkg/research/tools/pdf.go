package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// ErrDocumentFetch wraps every PDFLoader failure.
var ErrDocumentFetch = errors.New("document fetch failed")

// DefaultPDFMaxBytes caps a downloaded document.
const DefaultPDFMaxBytes = 32 << 20

// PDFLoader downloads a PDF and extracts its text.
type PDFLoader struct {
	client   *http.Client
	maxBytes int64
}

// PDFOption configures a PDFLoader.
type PDFOption func(*PDFLoader)

// WithPDFHTTPClient sets the HTTP client.
func WithPDFHTTPClient(client *http.Client) PDFOption {
	return func(l *PDFLoader) {
		l.client = client
	}
}

// WithMaxBytes caps the download size. Non-positive values are ignored.
func WithMaxBytes(n int64) PDFOption {
	return func(l *PDFLoader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// NewPDFLoader creates a loader.
func NewPDFLoader(opts ...PDFOption) *PDFLoader {
	l := &PDFLoader{
		client:   &http.Client{Timeout: time.Minute},
		maxBytes: DefaultPDFMaxBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NormalizeArxivURL maps an arXiv abstract page to its PDF.
// Other URLs are returned unchanged.
func NormalizeArxivURL(u string) string {
	if !strings.Contains(u, "arxiv.org/abs/") {
		return u
	}
	id := strings.TrimRight(u[strings.Index(u, "arxiv.org/abs/")+len("arxiv.org/abs/"):], "/")
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	return "https://arxiv.org/pdf/" + id + ".pdf"
}

// Fetch returns the text of the PDF at url, pages separated by blank lines.
// Every failure returns "" and an error wrapping ErrDocumentFetch.
func (l *PDFLoader) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%w: empty url", ErrDocumentFetch)
	}
	url = NormalizeArxivURL(url)

	data, err := l.download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDocumentFetch, url, err)
	}
	text, err := extractText(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDocumentFetch, url, err)
	}
	return text, nil
}

func (l *PDFLoader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", l.maxBytes)
	}
	return data, nil
}

// extractText reads every page's plain text. The pdf package panics on
// some malformed inputs, so panics become errors.
func extractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if t = strings.TrimSpace(t); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
