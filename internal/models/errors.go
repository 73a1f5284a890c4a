// -----------------------------------------------------------------------
// Forecast error taxonomy - every failure a run can surface maps to
// exactly one of these kinds
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
	"time"
)

// Error kind identifiers, used in API error bodies and trace events.
const (
	KindRateLimited      = "rate_limited"
	KindModelUnavailable = "model_unavailable"
	KindGatheringFailed  = "gathering_failed"
	KindExtractionGap    = "extraction_gap"
	KindSynthesisFailed  = "synthesis_failed"
	KindValidationFailed = "validation_failed"
	KindTimeoutExceeded  = "timeout_exceeded"
	KindInputInvalid     = "input_invalid"
)

// RateLimitedError indicates the model backend kept signalling a rate
// limit until the retry budget was exhausted.
type RateLimitedError struct {
	Backend  string
	Attempts int
	LastWait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("model backend %s rate limited after %d attempts (last wait %s)", e.Backend, e.Attempts, e.LastWait)
}

func (e *RateLimitedError) Kind() string { return KindRateLimited }

// ModelUnavailableError indicates a non-rate-limit transport failure
// that persisted across the retry budget.
type ModelUnavailableError struct {
	Backend  string
	Attempts int
	Cause    error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model backend %s unavailable after %d attempts: %v", e.Backend, e.Attempts, e.Cause)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Cause }

func (e *ModelUnavailableError) Kind() string { return KindModelUnavailable }

// GatheringFailedError indicates no source produced a single document,
// leaving nothing for the rest of the pipeline to work with.
type GatheringFailedError struct {
	Sources []string
	Gaps    int
}

func (e *GatheringFailedError) Error() string {
	return fmt.Sprintf("gathering produced no documents from %d source(s) (%d gap(s) recorded)", len(e.Sources), e.Gaps)
}

func (e *GatheringFailedError) Kind() string { return KindGatheringFailed }

// ExtractionGapError is the non-fatal per-document failure recorded when
// every extraction strategy came up empty. It never terminates a run.
type ExtractionGapError struct {
	DocumentID string
	Reason     string
}

func (e *ExtractionGapError) Error() string {
	return fmt.Sprintf("extraction gap for document %s: %s", e.DocumentID, e.Reason)
}

func (e *ExtractionGapError) Kind() string { return KindExtractionGap }

// SynthesisFailedError indicates the model output never became valid
// JSON of the expected shape within the bounded recovery budget.
type SynthesisFailedError struct {
	Attempts int
	Reason   string
}

func (e *SynthesisFailedError) Error() string {
	return fmt.Sprintf("synthesis failed after %d attempts: %s", e.Attempts, e.Reason)
}

func (e *SynthesisFailedError) Kind() string { return KindSynthesisFailed }

// ValidationFailedError indicates the assembled forecast never passed
// schema validation, including the single corrective retry.
type ValidationFailedError struct {
	Failures []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("forecast validation failed: %d violation(s)", len(e.Failures))
}

func (e *ValidationFailedError) Kind() string { return KindValidationFailed }

// TimeoutExceededError indicates the run blew its wall-clock budget.
type TimeoutExceededError struct {
	State   RunState
	Elapsed time.Duration
}

func (e *TimeoutExceededError) Error() string {
	return fmt.Sprintf("run exceeded its time budget in state %s after %s", e.State, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutExceededError) Kind() string { return KindTimeoutExceeded }

// InputInvalidError rejects a malformed RunRequest before any state
// transition happens.
type InputInvalidError struct {
	Reason string
}

func (e *InputInvalidError) Error() string {
	return fmt.Sprintf("invalid run request: %s", e.Reason)
}

func (e *InputInvalidError) Kind() string { return KindInputInvalid }

// kinder is implemented by every taxonomy error.
type kinder interface {
	Kind() string
}

// KindOf maps an error to its taxonomy kind, walking wrapped errors.
// Returns an empty string for errors outside the taxonomy.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}
