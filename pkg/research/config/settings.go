package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings is the resolved configuration of a researchflow process.
type Settings struct {
	Oracle        OracleSettings
	Search        SearchSettings
	Arxiv         ArxivSettings
	Retrieval     RetrievalSettings
	Improver      ImproverSettings
	Checkpoint    CheckpointSettings
	Log           LogSettings
	Observability ObservabilitySettings
}

// OracleSettings selects and configures the chat model.
type OracleSettings struct {
	Provider    string // openai, ollama, deepseek, ark
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// SearchSettings configures the Tavily web search client.
type SearchSettings struct {
	APIKey            string
	BaseURL           string
	IncludeRawContent bool
	DefaultMaxResults int
	MaxResultsCap     int
	Timeout           time.Duration
}

// ArxivSettings configures paper search and PDF download.
type ArxivSettings struct {
	BaseURL     string
	SortBy      string
	PDFMaxBytes int64
	Timeout     time.Duration
}

// RetrievalSettings configures the Chroma vector store and its embedder.
type RetrievalSettings struct {
	ChromaURL      string
	Collection     string
	TopK           int
	OllamaURL      string
	EmbeddingModel string
}

// ImproverSettings bounds the reflect/revise loop.
type ImproverSettings struct {
	MaxRevisions int
}

// CheckpointSettings selects the session store; see checkpoint.Open.
type CheckpointSettings struct {
	DSN      string
	RedisTTL time.Duration
}

// LogSettings configures the slog handler.
type LogSettings struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// ObservabilitySettings toggles OpenTelemetry instrumentation.
type ObservabilitySettings struct {
	Metrics bool
	Tracing bool
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Oracle: OracleSettings{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0,
			MaxTokens:   4096,
			Timeout:     2 * time.Minute,
		},
		Search: SearchSettings{
			BaseURL:           "https://api.tavily.com",
			IncludeRawContent: true,
			DefaultMaxResults: 3,
			MaxResultsCap:     10,
			Timeout:           30 * time.Second,
		},
		Arxiv: ArxivSettings{
			BaseURL:     "https://export.arxiv.org/api/query",
			SortBy:      "relevance",
			PDFMaxBytes: 32 << 20,
			Timeout:     time.Minute,
		},
		Retrieval: RetrievalSettings{
			ChromaURL:      "http://localhost:8000",
			Collection:     "research",
			TopK:           10,
			OllamaURL:      "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
		},
		Improver: ImproverSettings{MaxRevisions: 2},
		Checkpoint: CheckpointSettings{
			DSN: "researchflow.db",
		},
		Log: LogSettings{Level: "info", Format: "text"},
	}
}

// FromConfig overlays cfg on Defaults.
func FromConfig(cfg Config) Settings {
	s := Defaults()

	o := cfg.Sub("oracle")
	s.Oracle.Provider = strings.ToLower(o.String("provider", s.Oracle.Provider))
	s.Oracle.Model = o.String("model", s.Oracle.Model)
	s.Oracle.BaseURL = o.String("base_url", s.Oracle.BaseURL)
	s.Oracle.APIKey = o.String("api_key", s.Oracle.APIKey)
	s.Oracle.Temperature = o.Float("temperature", s.Oracle.Temperature)
	s.Oracle.MaxTokens = o.Int("max_tokens", s.Oracle.MaxTokens)
	s.Oracle.Timeout = o.Duration("timeout", s.Oracle.Timeout)

	sr := cfg.Sub("search")
	s.Search.APIKey = sr.String("api_key", s.Search.APIKey)
	s.Search.BaseURL = sr.String("base_url", s.Search.BaseURL)
	s.Search.IncludeRawContent = sr.Bool("include_raw_content", s.Search.IncludeRawContent)
	s.Search.DefaultMaxResults = sr.Int("default_max_results", s.Search.DefaultMaxResults)
	s.Search.MaxResultsCap = sr.Int("max_results_cap", s.Search.MaxResultsCap)
	s.Search.Timeout = sr.Duration("timeout", s.Search.Timeout)

	ax := cfg.Sub("arxiv")
	s.Arxiv.BaseURL = ax.String("base_url", s.Arxiv.BaseURL)
	s.Arxiv.SortBy = ax.String("sort_by", s.Arxiv.SortBy)
	s.Arxiv.PDFMaxBytes = int64(ax.Int("pdf_max_bytes", int(s.Arxiv.PDFMaxBytes)))
	s.Arxiv.Timeout = ax.Duration("timeout", s.Arxiv.Timeout)

	rt := cfg.Sub("retrieval")
	s.Retrieval.ChromaURL = rt.String("chroma_url", s.Retrieval.ChromaURL)
	s.Retrieval.Collection = rt.String("collection", s.Retrieval.Collection)
	s.Retrieval.TopK = rt.Int("top_k", s.Retrieval.TopK)
	s.Retrieval.OllamaURL = rt.String("ollama_url", s.Retrieval.OllamaURL)
	s.Retrieval.EmbeddingModel = rt.String("embedding_model", s.Retrieval.EmbeddingModel)

	s.Improver.MaxRevisions = cfg.Int("improver.max_revisions", s.Improver.MaxRevisions)

	s.Checkpoint.DSN = cfg.String("checkpoint.dsn", s.Checkpoint.DSN)
	s.Checkpoint.RedisTTL = cfg.Duration("checkpoint.redis_ttl", s.Checkpoint.RedisTTL)

	s.Log.Level = strings.ToLower(cfg.String("log.level", s.Log.Level))
	s.Log.Format = strings.ToLower(cfg.String("log.format", s.Log.Format))

	s.Observability.Metrics = cfg.Bool("observability.metrics", s.Observability.Metrics)
	s.Observability.Tracing = cfg.Bool("observability.tracing", s.Observability.Tracing)

	return s
}

// Load builds Settings from an optional config file, .env files and the
// process environment, in increasing order of precedence. With no envFiles,
// a .env in the working directory is loaded if present.
func Load(path string, envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Settings{}, fmt.Errorf("load env files: %w", err)
	}

	cfg := New(nil)
	if path != "" {
		var err error
		if cfg, err = FromFile(path); err != nil {
			return Settings{}, err
		}
	}

	s := FromConfig(cfg)
	s.ApplyEnv(os.LookupEnv)
	return s, s.Validate()
}

// ApplyEnv overrides secrets and the checkpoint DSN from the environment.
// The oracle key is taken from the variable matching the provider.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	switch s.Oracle.Provider {
	case "openai":
		set(&s.Oracle.APIKey, "OPENAI_API_KEY")
		set(&s.Oracle.BaseURL, "OPENAI_BASE_URL")
	case "deepseek":
		set(&s.Oracle.APIKey, "DEEPSEEK_API_KEY")
	case "ark":
		set(&s.Oracle.APIKey, "ARK_API_KEY")
	case "ollama":
		set(&s.Oracle.BaseURL, "OLLAMA_HOST")
	}
	set(&s.Oracle.Model, "RESEARCHFLOW_MODEL")
	set(&s.Search.APIKey, "TAVILY_API_KEY")
	set(&s.Retrieval.OllamaURL, "OLLAMA_HOST")
	set(&s.Retrieval.ChromaURL, "CHROMA_URL")
	set(&s.Checkpoint.DSN, "RESEARCHFLOW_CHECKPOINT_DSN")
	set(&s.Log.Level, "RESEARCHFLOW_LOG_LEVEL")
}

// Validate rejects settings no component can run with.
func (s Settings) Validate() error {
	var errs []error
	switch s.Oracle.Provider {
	case "openai", "ollama", "deepseek", "ark":
	default:
		errs = append(errs, fmt.Errorf("oracle.provider: unsupported %q", s.Oracle.Provider))
	}
	if s.Oracle.Model == "" {
		errs = append(errs, errors.New("oracle.model: required"))
	}
	if s.Improver.MaxRevisions < 1 {
		errs = append(errs, fmt.Errorf("improver.max_revisions: must be at least 1, got %d", s.Improver.MaxRevisions))
	}
	if s.Search.MaxResultsCap < 1 {
		errs = append(errs, fmt.Errorf("search.max_results_cap: must be at least 1, got %d", s.Search.MaxResultsCap))
	}
	switch s.Arxiv.SortBy {
	case "relevance", "lastUpdatedDate", "submittedDate":
	default:
		errs = append(errs, fmt.Errorf("arxiv.sort_by: unsupported %q", s.Arxiv.SortBy))
	}
	if s.Log.Format != "text" && s.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unsupported %q", s.Log.Format))
	}
	if _, err := s.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogSettings) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
