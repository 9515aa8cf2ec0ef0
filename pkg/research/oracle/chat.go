package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatOracle answers through an eino chat model.
type ChatOracle struct {
	model  model.BaseChatModel
	logger *slog.Logger
	name   string
}

// ChatOption configures a ChatOracle.
type ChatOption func(*ChatOracle)

// WithLogger sets the logger used for per-call debug records.
func WithLogger(logger *slog.Logger) ChatOption {
	return func(c *ChatOracle) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithName labels the model in log records, typically provider/model.
func WithName(name string) ChatOption {
	return func(c *ChatOracle) {
		c.name = name
	}
}

// NewChatOracle wraps m.
func NewChatOracle(m model.BaseChatModel, opts ...ChatOption) *ChatOracle {
	if m == nil {
		panic("oracle: chat model cannot be nil")
	}
	c := &ChatOracle{model: m, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Oracle.
func (c *ChatOracle) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	out, err := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", fmt.Errorf("oracle generate: %w", err)
	}
	if out == nil {
		return "", errors.New("oracle generate: empty response")
	}

	attrs := []any{
		slog.String("model", c.name),
		slog.Int("input_chars", len(system)+len(user)),
		slog.Int("output_chars", len(out.Content)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens),
			slog.Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens))
	}
	c.logger.DebugContext(ctx, "oracle completion", attrs...)

	return out.Content, nil
}

// CompleteStructured implements Oracle.
func (c *ChatOracle) CompleteStructured(ctx context.Context, system, user string, out Structured) error {
	text, err := c.Complete(ctx, structuredPrompt(system, out), user)
	if err != nil {
		return err
	}
	return DecodeStructured(text, out)
}
