package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"

	"github.com/randalmurphal/researchflow/pkg/research/config"
)

// NewChatModel builds the eino chat model selected by s.Provider.
func NewChatModel(ctx context.Context, s config.OracleSettings) (model.BaseChatModel, error) {
	temperature := float32(s.Temperature)
	maxTokens := s.MaxTokens

	switch s.Provider {
	case "openai":
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      s.APIKey,
			BaseURL:     s.BaseURL,
			Model:       s.Model,
			Timeout:     s.Timeout,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("openai chat model: %w", err)
		}
		return m, nil

	case "ollama":
		m, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
			Options: &api.Options{
				Temperature: temperature,
				NumPredict:  maxTokens,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("ollama chat model: %w", err)
		}
		return m, nil

	case "deepseek":
		m, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      s.APIKey,
			BaseURL:     s.BaseURL,
			Model:       s.Model,
			Timeout:     s.Timeout,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("deepseek chat model: %w", err)
		}
		return m, nil

	case "ark":
		timeout := s.Timeout
		m, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      s.APIKey,
			BaseURL:     s.BaseURL,
			Model:       s.Model,
			Timeout:     &timeout,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("ark chat model: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported oracle provider: %q", s.Provider)
	}
}

// New builds a ChatOracle from settings.
func New(ctx context.Context, s config.OracleSettings, opts ...ChatOption) (*ChatOracle, error) {
	m, err := NewChatModel(ctx, s)
	if err != nil {
		return nil, err
	}
	opts = append([]ChatOption{WithName(s.Provider + "/" + s.Model)}, opts...)
	return NewChatOracle(m, opts...), nil
}
