package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
)

// GeminiBackend serves completions through the Google Gemini API.
// It performs exactly one transport attempt per Complete call; retry
// and classification belong to the Client wrapping it.
type GeminiBackend struct {
	client *genai.Client
	config *common.GeminiConfig
	logger arbor.ILogger
}

// NewGeminiBackend creates a Gemini backend. The API key resolves from
// the environment first, then the config fallback.
func NewGeminiBackend(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (*GeminiBackend, error) {
	apiKey, err := common.ResolveAPIKey("gemini_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Name identifies the backend in traces and error messages.
func (b *GeminiBackend) Name() string { return "gemini" }

// Complete performs a single generation attempt.
func (b *GeminiBackend) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(b.config.Temperature),
	}
	if len(req.StopSequences) > 0 {
		config.StopSequences = req.StopSequences
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.config.Model, contents, config)
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	return text, nil
}

// HealthCheck verifies the client is usable.
func (b *GeminiBackend) HealthCheck(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("gemini client not initialized")
	}
	return nil
}

var _ interfaces.ModelBackend = (*GeminiBackend)(nil)

// GeminiEmbedder generates embeddings through the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	logger arbor.ILogger
	dim    int
}

// NewGeminiEmbedder creates an embedder sharing the backend's client.
func NewGeminiEmbedder(backend *GeminiBackend) *GeminiEmbedder {
	return &GeminiEmbedder{
		client: backend.client,
		model:  backend.config.EmbeddingModel,
		logger: backend.logger,
	}
}

// Name identifies the embedding backend.
func (e *GeminiEmbedder) Name() string { return "gemini" }

// Dimension reports the vector size seen on the last call, 0 before
// the first call.
func (e *GeminiEmbedder) Dimension() int { return e.dim }

// Embed returns one vector per input text.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedding returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embedding %d is empty", i)
		}
		out[i] = emb.Values
	}
	e.dim = len(out[0])

	return out, nil
}

var _ interfaces.Embedder = (*GeminiEmbedder)(nil)
