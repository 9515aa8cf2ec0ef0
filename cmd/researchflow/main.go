// Command researchflow runs research tasks through the assistant and
// persists each session so later tasks can build on it.
//
//	researchflow -task "find 3 recent papers on diffusion models"
//	researchflow -session <id> -task "compare the second one with DDPM"
//	researchflow -session <id> -show
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"

	"github.com/randalmurphal/researchflow/pkg/flowgraph"
	"github.com/randalmurphal/researchflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/researchflow/pkg/flowgraph/observability"
	"github.com/randalmurphal/researchflow/pkg/research/agents"
	"github.com/randalmurphal/researchflow/pkg/research/config"
	"github.com/randalmurphal/researchflow/pkg/research/oracle"
	"github.com/randalmurphal/researchflow/pkg/research/session"
	"github.com/randalmurphal/researchflow/pkg/research/tools"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	envFile    string
	sessionID  string
	task       string
	show       bool
	verbose    bool
}

func parseFlags(args []string, errW io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("researchflow", flag.ContinueOnError)
	fs.SetOutput(errW)
	fs.StringVar(&o.configPath, "config", "", "path to a YAML or JSON config file")
	fs.StringVar(&o.envFile, "env", "", "env file to load instead of ./.env")
	fs.StringVar(&o.sessionID, "session", "", "resume this session instead of starting a new one")
	fs.StringVar(&o.task, "task", "", "the research task or question")
	fs.BoolVar(&o.show, "show", false, "print the stored state of -session and exit")
	fs.BoolVar(&o.verbose, "verbose", false, "log every graph transition")
	fs.Usage = func() {
		fmt.Fprintln(errW, "Usage: researchflow [flags] -task <text>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.task == "" && fs.NArg() > 0 {
		o.task = strings.Join(fs.Args(), " ")
	}
	switch {
	case o.show && o.sessionID == "":
		return options{}, errors.New("-show requires -session")
	case !o.show && strings.TrimSpace(o.task) == "":
		return options{}, errors.New("a task is required: pass -task or trailing arguments")
	}
	return o, nil
}

func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	opts, err := parseFlags(args, errW)
	if err != nil {
		return err
	}

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	settings, err := config.Load(opts.configPath, envFiles...)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	logger, err := newLogger(errW, settings.Log, opts.verbose)
	if err != nil {
		return err
	}

	assistant, err := buildAssistant(ctx, settings, logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, settings.Checkpoint)
	if err != nil {
		return fmt.Errorf("checkpoint store: %w", err)
	}
	defer store.Close()

	mgrOpts := []session.Option{session.WithLogger(logger)}
	if settings.Observability.Metrics {
		mgrOpts = append(mgrOpts, session.WithMetrics(observability.NewMetricsRecorder()))
	}
	if settings.Observability.Tracing {
		mgrOpts = append(mgrOpts, session.WithTracing(observability.NewSpanManager()))
	}
	if opts.verbose {
		mgrOpts = append(mgrOpts, session.WithRunOptions(flowgraph.WithStepHook(func(s flowgraph.Step) {
			logger.Info("step",
				slog.String("graph", s.Graph),
				slog.Int("iteration", s.Iteration),
				slog.String("node_id", s.NodeID),
				slog.String("label", s.Label),
				slog.String("next", s.Next))
		})))
	}
	mgr := session.NewManager(assistant, store, mgrOpts...)

	var out any
	switch {
	case opts.show:
		out, err = mgr.GetState(ctx, opts.sessionID)
	case opts.sessionID != "":
		out, err = mgr.RunResumed(ctx, opts.sessionID, opts.task)
	default:
		out, err = mgr.RunNew(ctx, opts.task)
	}
	if err != nil {
		return err
	}

	data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(outW, string(data))
	return err
}

func newLogger(w io.Writer, s config.LogSettings, verbose bool) (*slog.Logger, error) {
	level, err := s.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if verbose {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}
	if s.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, ho)), nil
	}
	return slog.New(slog.NewTextHandler(w, ho)), nil
}

func buildAssistant(ctx context.Context, s config.Settings, logger *slog.Logger) (*agents.Assistant, error) {
	o, err := oracle.New(ctx, s.Oracle, oracle.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}

	deps := agents.Deps{
		Oracle: o,
		Web: tools.NewTavilyClient(s.Search.APIKey,
			tools.WithTavilyBaseURL(s.Search.BaseURL),
			tools.WithRawContent(s.Search.IncludeRawContent),
			tools.WithTavilyHTTPClient(&http.Client{Timeout: s.Search.Timeout}),
			tools.WithTavilyLogger(logger)),
		Papers: tools.NewArxivClient(
			tools.WithArxivBaseURL(s.Arxiv.BaseURL),
			tools.WithArxivHTTPClient(&http.Client{Timeout: s.Arxiv.Timeout}),
			tools.WithArxivLogger(logger)),
		Documents: tools.NewPDFLoader(
			tools.WithPDFHTTPClient(&http.Client{Timeout: s.Arxiv.Timeout}),
			tools.WithMaxBytes(s.Arxiv.PDFMaxBytes)),
	}

	if s.Retrieval.ChromaURL != "" {
		embedder, err := tools.NewOllamaEmbedder(s.Retrieval.OllamaURL, s.Retrieval.EmbeddingModel, nil)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		deps.Passages = tools.NewSemanticSearch(tools.NewChromaRetriever(
			s.Retrieval.ChromaURL, s.Retrieval.Collection, embedder,
			tools.WithChromaTopK(s.Retrieval.TopK)))
	}

	return agents.NewAssistant(deps,
		agents.WithMaxRevisions(s.Improver.MaxRevisions),
		agents.WithDefaultMaxResults(s.Search.DefaultMaxResults),
		agents.WithMaxResultsCap(s.Search.MaxResultsCap),
		agents.WithSortBy(s.Arxiv.SortBy))
}

// openStore is checkpoint.Open plus the Redis expiry setting.
func openStore(ctx context.Context, s config.CheckpointSettings) (checkpoint.Store, error) {
	if s.RedisTTL > 0 && (strings.HasPrefix(s.DSN, "redis://") || strings.HasPrefix(s.DSN, "rediss://")) {
		store, err := checkpoint.NewRedisStoreFromURL(ctx, s.DSN, checkpoint.WithRedisTTL(s.RedisTTL))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return checkpoint.Open(ctx, s.DSN)
}
