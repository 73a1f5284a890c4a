// -----------------------------------------------------------------------
// Resilient model client - wraps one backend with retry, linear backoff
// and rate-limit classification
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// Client is the resilient completion wrapper. One logical Complete call
// may spend up to MaxRetries transport attempts against the backend;
// every attempt lands in the bound trace sink. The client carries no
// internal timeout: the caller's context owns the end-to-end budget.
type Client struct {
	backend interfaces.ModelBackend
	retry   *RetryConfig
	limiter *rate.Limiter
	logger  arbor.ILogger
	trace   interfaces.TraceSink
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryConfig overrides the default retry budget.
func WithRetryConfig(cfg *RetryConfig) ClientOption {
	return func(c *Client) {
		if cfg != nil {
			c.retry = cfg
		}
	}
}

// WithRateLimit smooths request issue rate to at most one call per
// interval. Zero disables the limiter.
func WithRateLimit(minInterval time.Duration) ClientOption {
	return func(c *Client) {
		if minInterval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTraceSink binds the conversation trace destination.
func WithTraceSink(sink interfaces.TraceSink) ClientOption {
	return func(c *Client) {
		c.trace = sink
	}
}

// NewClient creates a resilient client around a backend.
func NewClient(backend interfaces.ModelBackend, opts ...ClientOption) *Client {
	c := &Client{
		backend: backend,
		retry:   NewDefaultRetryConfig(),
		logger:  common.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTrace returns a client writing attempts to the given sink. The
// returned client shares the backend, retry config and limiter with
// the receiver so per-run clients stay cheap.
func (c *Client) WithTrace(sink interfaces.TraceSink) interfaces.ModelClient {
	clone := *c
	clone.trace = sink
	return &clone
}

// BackendName reports the active backend.
func (c *Client) BackendName() string {
	return c.backend.Name()
}

// HealthCheck proxies to the active backend.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.backend.HealthCheck(ctx)
}

// Complete runs one logical completion. On failure each attempt is
// classified: rate-limit signals and other transient failures both
// retry with linear backoff, and the terminal error kind reflects the
// last failure class seen.
func (c *Client) Complete(ctx context.Context, prompt string, stops []string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req := interfaces.CompletionRequest{
		Prompt:        prompt,
		StopSequences: stops,
	}

	var lastErr error
	var lastWait time.Duration
	rateLimited := false

	for attempt := 1; attempt <= c.retry.MaxRetries; attempt++ {
		text, err := c.backend.Complete(ctx, req)
		if err == nil {
			c.recordAttempt(attempt, fmt.Sprintf("ok (%d chars)", len(text)))
			return text, nil
		}

		lastErr = err
		rateLimited = IsRateLimitError(err)
		c.recordAttempt(attempt, "failed: "+err.Error())

		if attempt == c.retry.MaxRetries {
			break
		}

		backoff := c.retry.Backoff(attempt)
		lastWait = backoff

		logEvent := c.logger.Warn().
			Str("backend", c.backend.Name()).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Bool("rate_limited", rateLimited).
			Err(err)
		if apiDelay := ExtractRetryDelay(err); apiDelay > 0 {
			logEvent = logEvent.Dur("api_suggested_delay", apiDelay)
		}
		logEvent.Msg("Retrying model call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if rateLimited {
		return "", &models.RateLimitedError{
			Backend:  c.backend.Name(),
			Attempts: c.retry.MaxRetries,
			LastWait: lastWait,
		}
	}
	return "", &models.ModelUnavailableError{
		Backend:  c.backend.Name(),
		Attempts: c.retry.MaxRetries,
		Cause:    lastErr,
	}
}

func (c *Client) recordAttempt(attempt int, outcome string) {
	if c.trace == nil {
		return
	}
	detail := fmt.Sprintf("%s attempt %d/%d %s", c.backend.Name(), attempt, c.retry.MaxRetries, outcome)
	c.trace.AppendTrace(models.TraceModelAttempt, detail)
}

var _ interfaces.ModelClient = (*Client)(nil)
