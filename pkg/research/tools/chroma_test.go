package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/randalmurphal/researchflow/pkg/research/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	vec []float64
	err error
}

func (f fixedEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type chromaServer struct {
	*httptest.Server
	lookups atomic.Int32
	lastK   atomic.Int32
}

func newChromaServer(t *testing.T) *chromaServer {
	cs := &chromaServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/collections/papers", func(w http.ResponseWriter, r *http.Request) {
		cs.lookups.Add(1)
		_, _ = w.Write([]byte(`{"id": "c-123", "name": "papers"}`))
	})
	mux.HandleFunc("POST /api/v1/collections/c-123/query", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QueryEmbeddings [][]float64 `json:"query_embeddings"`
			NResults        int         `json:"n_results"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, [][]float64{{0.1, 0.2}}, req.QueryEmbeddings)
		cs.lastK.Store(int32(req.NResults))

		_, _ = w.Write([]byte(`{
			"ids": [["d1", "d2"]],
			"documents": [["StyleGAN maps latents", "Mesh deformation"]],
			"metadatas": [[{"title": "stylegan"}, {"title": "mesh"}]],
			"distances": [[0.1, 0.7]]
		}`))
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func TestChromaRetriever_Retrieve(t *testing.T) {
	srv := newChromaServer(t)
	r := tools.NewChromaRetriever(srv.URL, "papers", fixedEmbedder{vec: []float64{0.1, 0.2}}, tools.WithChromaTopK(4))

	docs, err := r.Retrieve(context.Background(), "stylegan")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)
	assert.Equal(t, "StyleGAN maps latents", docs[0].Content)
	assert.Equal(t, "stylegan", docs[0].MetaData["title"])
	assert.InDelta(t, 0.9, docs[0].Score(), 1e-9)
	assert.Equal(t, int32(4), srv.lastK.Load())

	_, err = r.Retrieve(context.Background(), "mesh", retriever.WithTopK(2))
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.lastK.Load())
	assert.Equal(t, int32(1), srv.lookups.Load(), "collection id is cached")

	docs, err = r.Retrieve(context.Background(), "mesh", retriever.WithScoreThreshold(0.5))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)
}

func TestChromaRetriever_Errors(t *testing.T) {
	srv := newChromaServer(t)

	t.Run("embedder", func(t *testing.T) {
		boom := errors.New("ollama down")
		r := tools.NewChromaRetriever(srv.URL, "papers", fixedEmbedder{err: boom})
		_, err := r.Retrieve(context.Background(), "q")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no embedder", func(t *testing.T) {
		r := tools.NewChromaRetriever(srv.URL, "papers", nil)
		_, err := r.Retrieve(context.Background(), "q")
		assert.Error(t, err)
	})

	t.Run("unknown collection", func(t *testing.T) {
		r := tools.NewChromaRetriever(srv.URL, "nope", fixedEmbedder{vec: []float64{0.1, 0.2}})
		_, err := r.Retrieve(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, tools.IsStatus(err, http.StatusNotFound))
	})
}

func TestSemanticSearch_Query(t *testing.T) {
	srv := newChromaServer(t)
	s := tools.NewSemanticSearch(tools.NewChromaRetriever(srv.URL, "papers", fixedEmbedder{vec: []float64{0.1, 0.2}}))

	passages, err := s.Query(context.Background(), "stylegan", 3)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "StyleGAN maps latents", passages[0].Content)
	assert.Equal(t, int32(3), srv.lastK.Load())

	_, err = s.Query(context.Background(), "stylegan", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(tools.DefaultTopK), srv.lastK.Load())
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "nomic-embed-text", "embeddings": [[0.5, 1], [0.25, 0]]}`))
	}))
	defer srv.Close()

	e, err := tools.NewOllamaEmbedder(srv.URL, "nomic-embed-text", srv.Client())
	require.NoError(t, err)

	vecs, err := e.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 1}, {0.25, 0}}, vecs)

	vecs, err = e.EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)

	_, err = tools.NewOllamaEmbedder(srv.URL, "", nil)
	assert.Error(t, err)
}
