package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunContext() *RunContext {
	return NewRunContext(validRunRequest(), 5*time.Minute)
}

func TestNewRunContext_StartsIdleAndFull(t *testing.T) {
	rc := newTestRunContext()

	assert.NotEmpty(t, rc.RunID)
	assert.Equal(t, StateIdle, rc.State())
	assert.Equal(t, ModeFull, rc.Mode())
	assert.Nil(t, rc.Err())
	assert.Empty(t, rc.Trace())
}

func TestRunContext_TransitionsAreTraced(t *testing.T) {
	rc := newTestRunContext()

	ev := rc.Transition(StateGathering, "run accepted")
	assert.Equal(t, 1, ev.Seq)
	assert.Equal(t, StateGathering, ev.Stage)
	assert.Equal(t, TraceTransition, ev.Kind)
	assert.Equal(t, "run accepted", ev.Detail)
	assert.False(t, ev.At.IsZero())

	rc.AppendTrace(TraceTool, "screener returned 3 documents")
	rc.Transition(StateExtracting, "documents gathered")

	trace := rc.Trace()
	require.Len(t, trace, 3)
	assert.Equal(t, 2, trace[1].Seq)
	assert.Equal(t, TraceTool, trace[1].Kind)
	assert.Equal(t, StateGathering, trace[1].Stage)
	assert.Equal(t, StateExtracting, trace[2].Stage)
	assert.Equal(t, StateExtracting, rc.State())
}

func TestRunContext_TraceReturnsACopy(t *testing.T) {
	rc := newTestRunContext()
	rc.Transition(StateGathering, "run accepted")

	trace := rc.Trace()
	trace[0].Detail = "tampered"

	assert.Equal(t, "run accepted", rc.Trace()[0].Detail)
}

func TestRunContext_DegradedIsAModeNotAState(t *testing.T) {
	rc := newTestRunContext()
	rc.Transition(StateExtracting, "documents gathered")

	ev := rc.MarkDegraded("no transcripts gathered")
	assert.Equal(t, "degraded: no transcripts gathered", ev.Detail)
	assert.Equal(t, ModeDegraded, rc.Mode())
	assert.Equal(t, StateExtracting, rc.State(), "degrading must not move the state machine")

	rc.Transition(StateDone, "forecast persisted")
	assert.Equal(t, StateDone, rc.State())
	assert.True(t, rc.State().IsTerminal())
	assert.Nil(t, rc.Err())
}

func TestRunContext_MarkFailedIsTerminal(t *testing.T) {
	rc := newTestRunContext()
	rc.Transition(StateSynthesizing, "analysis complete")

	runErr := &SynthesisFailedError{Attempts: 3, Reason: "output was not valid JSON"}
	ev := rc.MarkFailed(runErr)

	assert.Equal(t, StateFailed, rc.State())
	assert.True(t, rc.State().IsTerminal())
	assert.Equal(t, runErr, rc.Err())
	assert.Equal(t, StateFailed, ev.Stage)
	assert.Equal(t, runErr.Error(), ev.Detail)
}

func TestRunContext_GapsAreRecordedWithoutFailing(t *testing.T) {
	rc := newTestRunContext()
	rc.Transition(StateExtracting, "documents gathered")

	rc.RecordGap(ExtractionGapError{DocumentID: "doc-1", Reason: "no tables found"})
	rc.RecordGap(ExtractionGapError{DocumentID: "doc-2", Reason: "scanned pages, OCR unavailable"})

	gaps := rc.Gaps()
	require.Len(t, gaps, 2)
	assert.Equal(t, "doc-1", gaps[0].DocumentID)

	trace := rc.Trace()
	require.Len(t, trace, 3)
	assert.Equal(t, TraceGap, trace[1].Kind)
	assert.Contains(t, trace[2].Detail, "doc-2")

	assert.False(t, rc.State().IsTerminal())
	assert.Nil(t, rc.Err())
}

func TestRunContext_RetryCountsArePerStep(t *testing.T) {
	rc := newTestRunContext()

	assert.Equal(t, 1, rc.BumpRetry(StepSynthesis))
	assert.Equal(t, 2, rc.BumpRetry(StepSynthesis))
	assert.Equal(t, 1, rc.BumpRetry(StepValidation))

	assert.Equal(t, 2, rc.RetryCount(StepSynthesis))
	assert.Equal(t, 1, rc.RetryCount(StepValidation))
	assert.Equal(t, 0, rc.RetryCount("gathering"))
}

func TestRunContext_DocumentsFilterByKind(t *testing.T) {
	rc := newTestRunContext()
	rc.AddDocument(&SourceDocument{ID: "rep-1", Kind: DocumentKindReport})
	rc.AddDocument(&SourceDocument{ID: "call-1", Kind: DocumentKindTranscript})
	rc.AddDocument(&SourceDocument{ID: "rep-2", Kind: DocumentKindReport})

	assert.Len(t, rc.Documents(""), 3)

	reports := rc.Documents(DocumentKindReport)
	require.Len(t, reports, 2)
	assert.Equal(t, "rep-1", reports[0].ID)
	assert.Equal(t, "rep-2", reports[1].ID)

	transcripts := rc.Documents(DocumentKindTranscript)
	require.Len(t, transcripts, 1)
	assert.Equal(t, "call-1", transcripts[0].ID)
}

func TestSourceDocument_HasTextLayer(t *testing.T) {
	withText := &SourceDocument{FormatHint: FormatPDF, Text: "Revenue grew."}
	assert.True(t, withText.HasTextLayer())

	scanned := &SourceDocument{FormatHint: FormatImagePDF, Text: ""}
	assert.False(t, scanned.HasTextLayer())

	whitespaceOnly := &SourceDocument{FormatHint: FormatHTML, Text: "  \n "}
	assert.False(t, whitespaceOnly.HasTextLayer())
}
