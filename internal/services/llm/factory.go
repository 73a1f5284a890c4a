package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
)

// NewModelBackend creates the completion backend named by the
// configured provider.
func NewModelBackend(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.ModelBackend, error) {
	logger.Info().Str("provider", string(cfg.LLM.Provider)).Msg("Initializing model backend")

	switch cfg.LLM.Provider {
	case common.LLMProviderGemini:
		return NewGeminiBackend(ctx, &cfg.Gemini, logger)
	case common.LLMProviderClaude:
		return NewClaudeBackend(&cfg.Claude, logger)
	case common.LLMProviderLlama:
		return NewLlamaBackend(&cfg.Llama, logger), nil
	case common.LLMProviderMock:
		return NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}

// NewEmbedder creates the embedding backend. The embedding provider
// can differ from the completion provider, claude has no embedding
// API so claude deployments pair with gemini or llama embeddings.
func NewEmbedder(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.Embedder, error) {
	provider := cfg.LLM.EmbeddingProvider
	if provider == "" {
		provider = cfg.LLM.Provider
	}

	switch provider {
	case common.LLMProviderGemini:
		backend, err := NewGeminiBackend(ctx, &cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return NewGeminiEmbedder(backend), nil
	case common.LLMProviderLlama:
		return NewLlamaBackend(&cfg.Llama, logger), nil
	case common.LLMProviderMock:
		return NewMockEmbedder(), nil
	case common.LLMProviderClaude:
		return nil, fmt.Errorf("claude has no embedding API, set llm.embedding_provider to gemini, llama or mock")
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}

// NewClientFromConfig wires a backend into a resilient client using
// the pipeline retry budget and the provider's rate limit.
func NewClientFromConfig(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.ModelClient, error) {
	backend, err := NewModelBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []ClientOption{
		WithLogger(logger),
		WithRetryConfig(&RetryConfig{
			MaxRetries: cfg.Pipeline.MaxRetries,
			BaseDelay:  cfg.Pipeline.BaseDelay(),
		}),
	}
	if interval := providerRateLimit(cfg); interval > 0 {
		opts = append(opts, WithRateLimit(interval))
	}

	return NewClient(backend, opts...), nil
}

// providerRateLimit returns the minimum interval between requests for
// the active provider, 0 when unlimited.
func providerRateLimit(cfg *common.Config) time.Duration {
	switch cfg.LLM.Provider {
	case common.LLMProviderGemini:
		return common.ParseDurationOr(cfg.Gemini.RateLimit, 0)
	case common.LLMProviderClaude:
		return common.ParseDurationOr(cfg.Claude.RateLimit, 0)
	}
	return 0
}
