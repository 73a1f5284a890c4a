// -----------------------------------------------------------------------
// Locally hosted backend - talks to a running llama-server over
// localhost HTTP for both chat and embeddings
// -----------------------------------------------------------------------

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
)

// llamaServerChatRequest represents a chat request to llama-server
type llamaServerChatRequest struct {
	Messages    []llamaServerMessage `json:"messages"`
	Temperature float32              `json:"temperature,omitempty"`
	Stop        []string             `json:"stop,omitempty"`
	Stream      bool                 `json:"stream"`
}

// llamaServerMessage represents a single message in a chat request
type llamaServerMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// llamaServerChatResponse represents a chat response from llama-server
type llamaServerChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// llamaServerEmbeddingRequest represents an embedding request
type llamaServerEmbeddingRequest struct {
	Content string `json:"content"`
}

// llamaServerEmbeddingResponse represents the object embedding response
type llamaServerEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// llamaServerBatchEmbeddingResponse represents the batch response shape
type llamaServerBatchEmbeddingResponse struct {
	Index     int         `json:"index"`
	Embedding [][]float32 `json:"embedding"` // Nested array format
}

// LlamaBackend talks to a llama-server instance the operator runs
// alongside the service. It implements both the completion backend and
// the embedder capability.
type LlamaBackend struct {
	chatURL  string
	embedURL string
	client   *http.Client
	config   *common.LlamaConfig
	logger   arbor.ILogger
	dim      int
}

// NewLlamaBackend creates a backend for a running llama-server.
func NewLlamaBackend(config *common.LlamaConfig, logger arbor.ILogger) *LlamaBackend {
	timeout := common.ParseDurationOr(config.Timeout, 2*time.Minute)
	return &LlamaBackend{
		chatURL:  config.ChatURL,
		embedURL: config.EmbedURL,
		client:   &http.Client{Timeout: timeout},
		config:   config,
		logger:   logger,
	}
}

// Name identifies the backend in traces and error messages.
func (b *LlamaBackend) Name() string { return "llama" }

// Complete performs a single chat completion attempt.
func (b *LlamaBackend) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	reqBody := llamaServerChatRequest{
		Messages: []llamaServerMessage{
			{Role: "user", Content: req.Prompt},
		},
		Stop:   req.StopSequences,
		Stream: false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.chatURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llama-server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llama-server returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp llamaServerChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from llama-server")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// HealthCheck probes the chat server's health endpoint.
func (b *LlamaBackend) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", b.chatURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("llama-server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llama-server health returned status %d", resp.StatusCode)
	}
	return nil
}

// Dimension reports the vector size seen on the last call, 0 before
// the first call.
func (b *LlamaBackend) Dimension() int { return b.dim }

// Embed returns one vector per input text. llama-server answers in a
// few different JSON shapes depending on version, so the parser tries
// object, flat array and batch formats in turn.
func (b *LlamaBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := b.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	if len(out) > 0 {
		b.dim = len(out[0])
	}
	return out, nil
}

func (b *LlamaBackend) embedOne(ctx context.Context, text string) ([]float32, error) {
	reqBody := llamaServerEmbeddingRequest{Content: text}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.embedURL+"/embedding", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llama-server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llama-server returned status %d: %s", resp.StatusCode, string(body))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var embedding []float32

	// Try parsing as object first: {"embedding": [...]}
	var objResponse llamaServerEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &objResponse); err == nil && len(objResponse.Embedding) > 0 {
		embedding = objResponse.Embedding
	} else if err := json.Unmarshal(bodyBytes, &embedding); err == nil && len(embedding) > 0 {
		// Flat array: [...]
	} else {
		// Batch response: [{"index":0,"embedding":[[...]]}]
		var batchResponse []llamaServerBatchEmbeddingResponse
		if err := json.Unmarshal(bodyBytes, &batchResponse); err == nil && len(batchResponse) > 0 &&
			len(batchResponse[0].Embedding) > 0 && len(batchResponse[0].Embedding[0]) > 0 {
			embedding = batchResponse[0].Embedding[0]
		} else {
			preview := bodyBytes
			if len(preview) > 200 {
				preview = preview[:200]
			}
			b.logger.Error().
				Str("response_preview", string(preview)).
				Msg("Failed to parse embedding response in any known format")
			return nil, fmt.Errorf("failed to parse embedding JSON")
		}
	}

	if len(embedding) == 0 {
		return nil, fmt.Errorf("llama-server returned empty embedding")
	}
	return embedding, nil
}

var (
	_ interfaces.ModelBackend = (*LlamaBackend)(nil)
	_ interfaces.Embedder     = (*LlamaBackend)(nil)
)
