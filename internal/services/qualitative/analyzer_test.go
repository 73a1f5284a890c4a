package qualitative

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/services/llm"
)

type traceRecorder struct {
	details []string
}

func (r *traceRecorder) AppendTrace(_, detail string) models.TraceEvent {
	r.details = append(r.details, detail)
	return models.TraceEvent{}
}

func newTestAnalyzer(t *testing.T, opts ...AnalyzerOption) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(llm.NewMockEmbedder(), arbor.NewLogger(), opts...)
	require.NoError(t, err)
	return a
}

func transcriptDoc(text string) *models.SourceDocument {
	return &models.SourceDocument{
		ID:   "call-1",
		Kind: models.DocumentKindTranscript,
		Text: text,
	}
}

func TestAnalyze_EmptyTranscript(t *testing.T) {
	a := newTestAnalyzer(t)
	insights, err := a.Analyze(context.Background(), transcriptDoc(""))
	assert.NoError(t, err)
	assert.Empty(t, insights)
}

func TestAnalyze_SingleChunkConfidence(t *testing.T) {
	a := newTestAnalyzer(t)

	// One chunk yields one singleton cluster: cohesion 1, size term
	// 1/5, so confidence lands at exactly 0.6.
	insights, err := a.Analyze(context.Background(), transcriptDoc(
		"The team met during the quarter to review the product roadmap and client feedback."))
	require.NoError(t, err)
	require.Len(t, insights, 1)

	in := insights[0]
	assert.InDelta(t, 0.6, in.Confidence, 0.0001)
	assert.InDelta(t, 1.0, in.Cohesion, 0.0001)
	assert.Equal(t, 1, in.ChunkCount)
	assert.Zero(t, in.Sentiment)
	assert.Equal(t, "call-1", in.SourceDocumentID)
	assert.NotEmpty(t, in.Quote)
}

func TestAnalyze_ThemesFromLexicon(t *testing.T) {
	a := newTestAnalyzer(t, WithChunking(40, 0.1))

	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("Attrition and employee turnover stayed elevated while hiring and retention remained hard. ")
	}
	insights, err := a.Analyze(context.Background(), transcriptDoc(b.String()))
	require.NoError(t, err)
	require.NotEmpty(t, insights)

	names := map[string]bool{}
	lex := a.Lexicon()
	for _, theme := range lex.Themes {
		names[theme.Name] = true
	}
	for _, in := range insights {
		assert.True(t, names[in.Theme], "theme %q must come from the lexicon", in.Theme)
		assert.GreaterOrEqual(t, in.Confidence, 0.0)
		assert.LessOrEqual(t, in.Confidence, 1.0)
		assert.GreaterOrEqual(t, in.Sentiment, -1.0)
		assert.LessOrEqual(t, in.Sentiment, 1.0)
		assert.Greater(t, in.ChunkCount, 0)
	}
}

func TestAnalyze_NegativeTranscriptScoresNegative(t *testing.T) {
	a := newTestAnalyzer(t)

	insights, err := a.Analyze(context.Background(), transcriptDoc(
		"Headwinds persist and attrition pressure continues. Uncertainty and weak demand drove a slowdown."))
	require.NoError(t, err)
	require.NotEmpty(t, insights)
	assert.Negative(t, insights[0].Sentiment)
}

func TestAnalyze_RecordsTrace(t *testing.T) {
	sink := &traceRecorder{}
	a := newTestAnalyzer(t).WithTrace(sink)

	_, err := a.Analyze(context.Background(), transcriptDoc("Demand stayed steady through the quarter."))
	require.NoError(t, err)
	require.NotEmpty(t, sink.details)
	assert.Contains(t, sink.details[len(sink.details)-1], "clusters")
}

func TestAnalyze_UsesOCRTextWhenPlainTextMissing(t *testing.T) {
	a := newTestAnalyzer(t)

	doc := &models.SourceDocument{
		ID:      "scan-call",
		Kind:    models.DocumentKindTranscript,
		OCRText: "Guidance for the next quarter held steady.",
	}
	insights, err := a.Analyze(context.Background(), doc)
	require.NoError(t, err)
	assert.NotEmpty(t, insights)
}

func TestTruncateQuote(t *testing.T) {
	short := "kept as is"
	assert.Equal(t, short, truncateQuote(short))

	long := strings.TrimSpace(strings.Repeat("word ", 100))
	got := truncateQuote(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), quoteLimit+3)
}
