package tools_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/randalmurphal/researchflow/pkg/research/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <id>http://arxiv.org/api/abc</id>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>The dominant sequence transduction models...</summary>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <published>2018-10-11T00:50:01Z</published>
    <title>BERT</title>
    <summary>We introduce BERT.</summary>
  </entry>
</feed>`

const arxivErrorFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_x</id>
    <title>Error</title>
    <summary>incorrect id format for x</summary>
  </entry>
</feed>`

func TestArxivClient_Search(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(arxivFeed))
	}))
	defer srv.Close()

	c := tools.NewArxivClient(tools.WithArxivBaseURL(srv.URL))
	papers := c.Search(context.Background(), "attention transformers", 5, tools.SortSubmittedDate)

	require.Len(t, papers, 2)
	assert.Equal(t, tools.Paper{
		PDFURL:      "http://arxiv.org/pdf/1706.03762v7.pdf",
		PaperID:     "1706.03762v7",
		Title:       "Attention Is All You Need",
		PublishDate: "2017-06-12T17:57:34Z",
	}, papers[0])
	assert.Equal(t, "https://arxiv.org/pdf/1810.04805v2.pdf", papers[1].PDFURL, "pdf url derived from id")

	assert.Equal(t, "attention transformers", query.Get("search_query"))
	assert.Equal(t, "5", query.Get("max_results"))
	assert.Equal(t, "submittedDate", query.Get("sortBy"))
}

const arxivOldStyleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/hep-th/9901001v1</id>
    <published>1999-01-04T00:00:00Z</published>
    <title>Old Style</title>
  </entry>
</feed>`

func TestArxivClient_OldStyleIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(arxivOldStyleFeed))
	}))
	defer srv.Close()

	papers := tools.NewArxivClient(tools.WithArxivBaseURL(srv.URL)).
		Search(context.Background(), "q", 1, tools.SortRelevance)
	require.Len(t, papers, 1)
	assert.Equal(t, "hep-th/9901001v1", papers[0].PaperID)
	assert.Equal(t, "https://arxiv.org/pdf/hep-th/9901001v1.pdf", papers[0].PDFURL)
}

func TestArxivClient_SearchOptions(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(arxivFeed))
	}))
	defer srv.Close()

	c := tools.NewArxivClient(tools.WithArxivBaseURL(srv.URL))
	papers := c.Search(context.Background(), "x", 0, "citations")

	require.Len(t, papers, 1, "non-positive max means the single top result")
	assert.Equal(t, "relevance", query.Get("sortBy"))
	assert.Equal(t, "1", query.Get("max_results"))
}

func TestArxivClient_FailuresAreInBand(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{"api error entry", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(arxivErrorFeed))
		}, "incorrect id format"},
		{"http status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "slow down", http.StatusServiceUnavailable)
		}, "503"},
		{"not a feed", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}, "parse feed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			papers := tools.NewArxivClient(tools.WithArxivBaseURL(srv.URL)).
				Search(context.Background(), "q", 1, tools.SortRelevance)
			require.Len(t, papers, 1)
			assert.Contains(t, papers[0].Err, tt.wantErr)
			assert.Empty(t, papers[0].PDFURL)
		})
	}
}

func TestValidSort(t *testing.T) {
	assert.True(t, tools.ValidSort("relevance"))
	assert.True(t, tools.ValidSort("lastUpdatedDate"))
	assert.True(t, tools.ValidSort("submittedDate"))
	assert.False(t, tools.ValidSort("Relevance"))
	assert.False(t, tools.ValidSort(""))
}
