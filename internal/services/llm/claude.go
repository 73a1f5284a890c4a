package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
)

// ClaudeBackend serves completions through the Anthropic API. One
// transport attempt per Complete call; resilience lives in Client.
type ClaudeBackend struct {
	client anthropic.Client
	config *common.ClaudeConfig
	logger arbor.ILogger
}

// NewClaudeBackend creates a Claude backend. The API key resolves from
// the environment first (ANTHROPIC_API_KEY included), then config.
func NewClaudeBackend(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeBackend, error) {
	apiKey, err := common.ResolveAPIKey("claude_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &ClaudeBackend{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Name identifies the backend in traces and error messages.
func (b *ClaudeBackend) Name() string { return "claude" }

// Complete performs a single generation attempt.
func (b *ClaudeBackend) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	maxTokens := b.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if b.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(b.config.Temperature))
	}
	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	return text.String(), nil
}

// HealthCheck verifies the client is usable.
func (b *ClaudeBackend) HealthCheck(ctx context.Context) error {
	if b.config.Model == "" {
		return fmt.Errorf("claude model not configured")
	}
	return nil
}

var _ interfaces.ModelBackend = (*ClaudeBackend)(nil)
