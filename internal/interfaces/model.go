package interfaces

import (
	"context"

	"github.com/ternarybob/augur/internal/models"
)

// LLMMode represents the operational mode of the model layer
type LLMMode string

const (
	// LLMModeCloud indicates a hosted API backend (Gemini, Claude)
	LLMModeCloud LLMMode = "cloud"

	// LLMModeOffline indicates a locally hosted backend (llama-server)
	LLMModeOffline LLMMode = "offline"

	// LLMModeMock indicates the deterministic in-process backend used
	// for tests and offline development
	LLMModeMock LLMMode = "mock"
)

// CompletionRequest carries one prompt-completion call to a backend.
type CompletionRequest struct {
	// Prompt is the full prompt text, system and user content combined
	Prompt string

	// StopSequences optionally terminate generation early
	StopSequences []string
}

// ModelBackend is the raw capability a language model backend must
// provide. Implementations perform exactly one transport attempt per
// Complete call; retry, backoff and rate-limit classification belong to
// the resilient client wrapping the backend. Callers never depend on
// which backend is active.
type ModelBackend interface {
	// Complete performs a single prompt-completion attempt.
	//
	// Returns the generated text, or an error. Rate-limit conditions
	// must surface as a models.RateLimitedError (possibly wrapped) or
	// carry recognizable rate-limit markers so the client can classify
	// them; any other failure is treated as transient transport error.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Name identifies the backend in traces and error messages.
	Name() string

	// HealthCheck verifies the backend can serve requests.
	HealthCheck(ctx context.Context) error
}

// ModelClient is the resilient completion capability the coordinator
// depends on. One logical Complete call may cost up to MaxRetries
// transport attempts internally; every attempt is appended to the
// active run's conversation trace.
type ModelClient interface {
	// Complete runs one logical completion with retry and backoff.
	// After exhausting retries it returns models.RateLimitedError or
	// models.ModelUnavailableError depending on the failure class.
	Complete(ctx context.Context, prompt string, stops []string) (string, error)

	// BackendName reports the active backend for capability reporting.
	BackendName() string

	// WithTrace returns a client bound to the given trace sink. The
	// returned client shares transport state with the receiver; only
	// the trace destination differs. Used to bind one run's trace.
	WithTrace(sink TraceSink) ModelClient

	// HealthCheck proxies to the active backend.
	HealthCheck(ctx context.Context) error
}

// TraceSink receives conversation-trace events. models.RunContext
// satisfies this; the model client writes every attempt through it.
type TraceSink interface {
	AppendTrace(kind, detail string) models.TraceEvent
}

// Embedder generates semantic embeddings for transcript chunks.
type Embedder interface {
	// Embed returns one vector per input text, all of Dimension() size
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the embedding vector size
	Dimension() int

	// Name identifies the embedding backend
	Name() string
}
