package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/ollama/ollama/api"
)

// DefaultOllamaURL is the local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder embeds text with an Ollama embedding model.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

var _ embedding.Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an embedder for model served at baseURL.
// A nil httpClient uses http.DefaultClient.
func NewOllamaEmbedder(baseURL, model string, httpClient *http.Client) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama url: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama embedder: model required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaEmbedder{client: api.NewClient(u, httpClient), model: model}, nil
}

// EmbedStrings implements embedding.Embedder.
func (e *OllamaEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, vec := range resp.Embeddings {
		out[i] = make([]float64, len(vec))
		for j, v := range vec {
			out[i][j] = float64(v)
		}
	}
	return out, nil
}
