// -----------------------------------------------------------------------
// Run Context - per-run mutable accumulator owned by the coordinator
// -----------------------------------------------------------------------

package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunState identifies where a run is in the pipeline state machine.
type RunState string

const (
	StateIdle         RunState = "idle"
	StateGathering    RunState = "gathering"
	StateExtracting   RunState = "extracting"
	StateAnalyzing    RunState = "analyzing"
	StateSynthesizing RunState = "synthesizing"
	StateValidating   RunState = "validating"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

// Run modes. A degraded run still completes, carrying explicit gaps.
const (
	ModeFull     = "full"
	ModeDegraded = "degraded"
)

// IsTerminal returns true once a run can no longer transition.
func (s RunState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Trace event kinds.
const (
	TraceTransition   = "transition"
	TraceModelAttempt = "model_attempt"
	TraceTool         = "tool"
	TraceGap          = "gap"
	TraceValidation   = "validation"
)

// Retry-counter step names.
const (
	StepSynthesis  = "synthesis"
	StepValidation = "validation"
)

// TraceEvent is one entry in a run's conversation trace. The trace is
// the audit record: state transitions, every model attempt, tool
// invocations, extraction gaps and validation outcomes all land here.
type TraceEvent struct {
	Seq    int       `json:"seq"`
	Stage  RunState  `json:"stage"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// RunContext accumulates everything one run produces. It belongs to
// exactly one run, is discarded after synthesis, and is never shared
// across runs. Appends are mutex-guarded because document gathering and
// extraction fan out across goroutines within the run.
type RunContext struct {
	RunID   string
	Request RunRequest
	Budget  time.Duration

	mu          sync.Mutex
	state       RunState
	mode        string
	documents   []*SourceDocument
	metrics     []ExtractedMetric
	insights    []QualitativeInsight
	market      *MarketSnapshot
	gaps        []ExtractionGapError
	trace       []TraceEvent
	retryCounts map[string]int
	startedAt   time.Time
	finishedAt  time.Time
	runErr      error
}

// NewRunContext creates the accumulator for one accepted request.
func NewRunContext(req RunRequest, budget time.Duration) *RunContext {
	return &RunContext{
		RunID:       uuid.New().String(),
		Request:     req,
		Budget:      budget,
		state:       StateIdle,
		mode:        ModeFull,
		retryCounts: make(map[string]int),
		startedAt:   time.Now().UTC(),
	}
}

// State returns the current pipeline state.
func (rc *RunContext) State() RunState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// Mode returns full or degraded.
func (rc *RunContext) Mode() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.mode
}

// Transition moves the run to a new state and records the trigger in
// the trace. Every transition is auditable.
func (rc *RunContext) Transition(to RunState, trigger string) TraceEvent {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.state = to
	if to.IsTerminal() {
		rc.finishedAt = time.Now().UTC()
	}
	return rc.appendTraceLocked(to, TraceTransition, trigger)
}

// MarkDegraded flips the run into degraded mode and traces why.
// Degraded is a mode, not a dead end: the run continues toward Done.
func (rc *RunContext) MarkDegraded(reason string) TraceEvent {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.mode = ModeDegraded
	return rc.appendTraceLocked(rc.state, TraceTransition, "degraded: "+reason)
}

// MarkFailed records the terminal error alongside the Failed transition.
func (rc *RunContext) MarkFailed(err error) TraceEvent {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.state = StateFailed
	rc.runErr = err
	rc.finishedAt = time.Now().UTC()
	return rc.appendTraceLocked(StateFailed, TraceTransition, err.Error())
}

// Err returns the terminal error, nil for successful runs.
func (rc *RunContext) Err() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.runErr
}

// AppendTrace records a non-transition event at the current state.
func (rc *RunContext) AppendTrace(kind, detail string) TraceEvent {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.appendTraceLocked(rc.state, kind, detail)
}

func (rc *RunContext) appendTraceLocked(stage RunState, kind, detail string) TraceEvent {
	ev := TraceEvent{
		Seq:    len(rc.trace) + 1,
		Stage:  stage,
		Kind:   kind,
		Detail: detail,
		At:     time.Now().UTC(),
	}
	rc.trace = append(rc.trace, ev)
	return ev
}

// Trace returns a copy of the conversation trace in order.
func (rc *RunContext) Trace() []TraceEvent {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]TraceEvent, len(rc.trace))
	copy(out, rc.trace)
	return out
}

// AddDocument records a gathered document.
func (rc *RunContext) AddDocument(doc *SourceDocument) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.documents = append(rc.documents, doc)
}

// Documents returns the gathered documents, optionally filtered by kind.
func (rc *RunContext) Documents(kind string) []*SourceDocument {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if kind == "" {
		out := make([]*SourceDocument, len(rc.documents))
		copy(out, rc.documents)
		return out
	}
	var out []*SourceDocument
	for _, d := range rc.documents {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// AddMetrics appends extraction results from one document.
func (rc *RunContext) AddMetrics(metrics []ExtractedMetric) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.metrics = append(rc.metrics, metrics...)
}

// Metrics returns all collected metrics.
func (rc *RunContext) Metrics() []ExtractedMetric {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]ExtractedMetric, len(rc.metrics))
	copy(out, rc.metrics)
	return out
}

// AddInsights appends qualitative results from one transcript.
func (rc *RunContext) AddInsights(insights []QualitativeInsight) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.insights = append(rc.insights, insights...)
}

// Insights returns all collected insights.
func (rc *RunContext) Insights() []QualitativeInsight {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]QualitativeInsight, len(rc.insights))
	copy(out, rc.insights)
	return out
}

// SetMarket records the gathered market snapshot.
func (rc *RunContext) SetMarket(snap *MarketSnapshot) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.market = snap
}

// Market returns the gathered market snapshot, nil when none was asked
// for or the provider was unavailable.
func (rc *RunContext) Market() *MarketSnapshot {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.market
}

// RecordGap notes a per-document extraction gap and traces it. Gaps are
// recovered locally and surfaced in the forecast evidence.
func (rc *RunContext) RecordGap(gap ExtractionGapError) TraceEvent {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.gaps = append(rc.gaps, gap)
	return rc.appendTraceLocked(rc.state, TraceGap, gap.Error())
}

// Gaps returns the recorded extraction gaps.
func (rc *RunContext) Gaps() []ExtractionGapError {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]ExtractionGapError, len(rc.gaps))
	copy(out, rc.gaps)
	return out
}

// BumpRetry increments and returns the retry counter for a named step.
func (rc *RunContext) BumpRetry(step string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.retryCounts[step]++
	return rc.retryCounts[step]
}

// RetryCount returns the current retry counter for a named step.
func (rc *RunContext) RetryCount(step string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.retryCounts[step]
}

// StartedAt returns when the run began.
func (rc *RunContext) StartedAt() time.Time {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.startedAt
}

// Elapsed returns how long the run has been going, or took in total
// once terminal.
func (rc *RunContext) Elapsed() time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.finishedAt.IsZero() {
		return rc.finishedAt.Sub(rc.startedAt)
	}
	return time.Since(rc.startedAt)
}
