package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RetryConfig defines transport retry behavior for model calls.
// Backoff is linear: wait = BaseDelay * attempt number, so with the
// defaults a failing call waits 5s then 10s before the final attempt.
type RetryConfig struct {
	// MaxRetries is the total number of transport attempts per logical
	// call (default: 3)
	MaxRetries int

	// BaseDelay is the linear backoff base (default: 5s)
	BaseDelay time.Duration
}

// Default retry constants, matched to free-tier rate limit windows.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 5 * time.Second
)

// NewDefaultRetryConfig returns a RetryConfig with the default budget.
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
}

// Backoff computes the linear backoff after the given 1-based attempt.
func (c *RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * c.BaseDelay
}

// IsRateLimitError checks if an error is a backend rate limit signal.
// Matches 429 status codes, RESOURCE_EXHAUSTED and quota/rate wording
// across the Gemini, Claude and llama-server error formats.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Rate limit")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from a rate
// limit error. Returns 0 if no delay is present in the message.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}
