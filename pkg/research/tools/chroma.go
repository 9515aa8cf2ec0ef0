package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// DefaultTopK is the number of passages returned when no limit is given.
const DefaultTopK = 10

// ChromaRetriever queries a Chroma collection over its HTTP API.
// Documents are ingested elsewhere; this type only reads.
type ChromaRetriever struct {
	baseURL    string
	collection string
	embedder   embedding.Embedder
	topK       int
	client     *http.Client

	mu           sync.Mutex
	collectionID string
}

var _ retriever.Retriever = (*ChromaRetriever)(nil)

// ChromaOption configures a ChromaRetriever.
type ChromaOption func(*ChromaRetriever)

// WithChromaTopK sets the default result count.
func WithChromaTopK(k int) ChromaOption {
	return func(r *ChromaRetriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithChromaHTTPClient sets the HTTP client.
func WithChromaHTTPClient(client *http.Client) ChromaOption {
	return func(r *ChromaRetriever) {
		r.client = client
	}
}

// NewChromaRetriever creates a retriever over the named collection,
// embedding queries with embedder.
func NewChromaRetriever(baseURL, collection string, embedder embedding.Embedder, opts ...ChromaOption) *ChromaRetriever {
	r := &ChromaRetriever{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		topK:       DefaultTopK,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float64 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// Retrieve implements retriever.Retriever. Scores are 1 - distance, so
// they read as cosine similarity for cosine collections.
func (r *ChromaRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := r.topK
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &topK, Embedding: r.embedder}, opts...)
	if o.Embedding == nil {
		return nil, errors.New("chroma: no embedder configured")
	}
	k := r.topK
	if o.TopK != nil && *o.TopK > 0 {
		k = *o.TopK
	}

	vecs, err := o.Embedding.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("chroma: embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("chroma: embedder returned %d vectors", len(vecs))
	}

	id, err := r.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	var resp chromaQueryResponse
	err = doJSON(ctx, r.client, http.MethodPost,
		r.baseURL+"/api/v1/collections/"+url.PathEscape(id)+"/query",
		chromaQueryRequest{
			QueryEmbeddings: vecs,
			NResults:        k,
			Include:         []string{"documents", "metadatas", "distances"},
		}, &resp, nil)
	if err != nil {
		return nil, fmt.Errorf("chroma: query: %w", err)
	}
	if len(resp.Documents) == 0 {
		return nil, nil
	}

	docs := make([]*schema.Document, 0, len(resp.Documents[0]))
	for i, content := range resp.Documents[0] {
		doc := &schema.Document{Content: content, MetaData: map[string]any{}}
		if len(resp.IDs) > 0 && i < len(resp.IDs[0]) {
			doc.ID = resp.IDs[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			for key, v := range resp.Metadatas[0][i] {
				doc.MetaData[key] = v
			}
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			score := 1 - resp.Distances[0][i]
			if o.ScoreThreshold != nil && score < *o.ScoreThreshold {
				continue
			}
			doc.WithScore(score)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// resolveCollection looks up and caches the collection id. Failures are
// not cached.
func (r *ChromaRetriever) resolveCollection(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collectionID != "" {
		return r.collectionID, nil
	}

	var c chromaCollection
	err := doJSON(ctx, r.client, http.MethodGet,
		r.baseURL+"/api/v1/collections/"+url.PathEscape(r.collection), nil, &c, nil)
	if err != nil {
		return "", fmt.Errorf("chroma: collection %s: %w", r.collection, err)
	}
	if c.ID == "" {
		return "", fmt.Errorf("chroma: collection %s has no id", r.collection)
	}
	r.collectionID = c.ID
	return c.ID, nil
}

// SemanticSearch adapts any eino retriever to the passage lookup used by
// the search workflow.
type SemanticSearch struct {
	retriever retriever.Retriever
}

// NewSemanticSearch wraps r.
func NewSemanticSearch(r retriever.Retriever) *SemanticSearch {
	return &SemanticSearch{retriever: r}
}

// Query returns up to max passages similar to text. A non-positive max
// uses the retriever's default.
func (s *SemanticSearch) Query(ctx context.Context, text string, max int) ([]Passage, error) {
	var opts []retriever.Option
	if max > 0 {
		opts = append(opts, retriever.WithTopK(max))
	}
	docs, err := s.retriever.Retrieve(ctx, text, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]Passage, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		out = append(out, Passage{Content: d.Content, Score: d.Score()})
	}
	return out, nil
}
