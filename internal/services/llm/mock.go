package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/ternarybob/augur/internal/interfaces"
)

// MockBackend returns scripted responses without any network access.
// With no script it answers every prompt with a minimal well-formed
// forecast document so offline runs still complete.
type MockBackend struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

// NewMockBackend creates a backend that replays the given responses in
// order, then falls back to the default document.
func NewMockBackend(responses ...string) *MockBackend {
	return &MockBackend{responses: responses}
}

// QueueError makes the next call fail with err. Errors queue ahead of
// responses, so interleaving failures with successes is possible.
func (b *MockBackend) QueueError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, err)
}

// Calls reports how many completion attempts were made.
func (b *MockBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Prompts returns the prompts seen so far, in call order.
func (b *MockBackend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.prompts))
	copy(out, b.prompts)
	return out
}

// Name identifies the backend in traces and error messages.
func (b *MockBackend) Name() string { return "mock" }

// Complete replays the next queued error or response.
func (b *MockBackend) Complete(_ context.Context, req interfaces.CompletionRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.prompts = append(b.prompts, req.Prompt)

	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		return "", err
	}
	if len(b.responses) > 0 {
		resp := b.responses[0]
		b.responses = b.responses[1:]
		return resp, nil
	}
	return defaultMockForecast, nil
}

// HealthCheck always succeeds for the mock backend.
func (b *MockBackend) HealthCheck(_ context.Context) error { return nil }

// defaultMockForecast is a minimal document that parses as a valid
// synthesis response, used when no scripted response remains.
const defaultMockForecast = `{
  "outlook": "stable",
  "summary": "Steady quarter with no major surprises in the extracted data.",
  "forecast": {
    "total_revenue": {"direction": "flat", "rationale": "limited signal in available documents", "confidence": 0.4}
  },
  "risks": [],
  "opportunities": []
}`

// MockEmbedder produces deterministic vectors from word content.
// Texts sharing words land near each other, which keeps clustering
// meaningful in offline tests without a model.
type MockEmbedder struct {
	dim int
}

// NewMockEmbedder creates an embedder with a fixed 64-wide vector.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dim: 64}
}

// Name identifies the embedder.
func (e *MockEmbedder) Name() string { return "mock" }

// Dimension reports the fixed vector width.
func (e *MockEmbedder) Dimension() int { return e.dim }

// Embed hashes each word into a bucket and accumulates signed counts,
// then normalizes to unit length. Deterministic across runs.
func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,;:!?\"'()")
			if word == "" {
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(word))
			sum := h.Sum32()
			bucket := int(sum % uint32(e.dim))
			sign := float32(1)
			if (sum>>16)&1 == 1 {
				sign = -1
			}
			vec[bucket] += sign
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vec {
				vec[j] *= scale
			}
		}
		out[i] = vec
	}
	return out, nil
}

var (
	_ interfaces.ModelBackend = (*MockBackend)(nil)
	_ interfaces.Embedder     = (*MockEmbedder)(nil)
)
