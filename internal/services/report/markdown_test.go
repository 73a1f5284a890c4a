package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/schemas"
)

func sampleResult() *schemas.ForecastResult {
	result := schemas.NewForecastResult("TCS", "run-7", 3)
	result.Metadata.GeneratedAt = time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)
	result.Metrics = map[string]schemas.MetricEntry{
		"total_revenue": {Value: 1234.5, Unit: "INR Cr", Confidence: 0.95, Period: "Q3 FY26", SourceDocumentID: "rep-q3"},
		"net_profit":    {Value: 4500, Unit: "INR Cr", Confidence: 0.92, Period: "Q3 FY26", SourceDocumentID: "rep-q3"},
	}
	result.Forecast = map[string]schemas.ForecastEntry{
		"total_revenue": {Direction: "up", Confidence: 0.7, Rationale: "healthy deal pipeline"},
	}
	result.Qualitative = schemas.QualitativeSummary{
		Outlook:   "improving",
		KeyThemes: []string{"demand", "margins"},
		Sentiment: 0.4,
		Summary:   "Management sounded upbeat on demand.",
	}
	result.Confidence = schemas.ConfidenceScores{Metrics: 0.95, Analysis: 0.6, Overall: 0.8}
	result.RisksOpportunities = schemas.RisksOpportunities{
		Risks:         []string{"negative attrition commentary in transcripts"},
		Opportunities: []string{"deal wins in BFSI"},
	}
	result.Evidence = []schemas.Citation{
		{Kind: schemas.CitationMetric, Claim: "total_revenue", SourceDocumentID: "rep-q3", Note: "strategy=table confidence=0.95 period=Q3 FY26"},
		{Kind: schemas.CitationTheme, Claim: "demand", SourceDocumentID: "call-1"},
		{Kind: schemas.CitationGap, Claim: "source company-ir unavailable for report documents"},
		{Kind: schemas.CitationAnomaly, Claim: "total_revenue moved 180% quarter on quarter", SourceDocumentID: "rep-q3"},
	}
	return result
}

func TestBuildMarkdown_FullResult(t *testing.T) {
	md := BuildMarkdown(sampleResult())

	assert.Contains(t, md, "# TCS Earnings Forecast")
	assert.Contains(t, md, "Run run-7, generated 11 Feb 2026 09:30 UTC. Covers 3 quarter(s), pipeline mode full.")

	assert.Contains(t, md, "| Metrics | 95% |")
	assert.Contains(t, md, "| Analysis | 60% |")
	assert.Contains(t, md, "| Overall | 80% |")

	profitRow := "| net_profit | 4500 | INR Cr | Q3 FY26 | 92% | rep-q3 |"
	revenueRow := "| total_revenue | 1234.50 | INR Cr | Q3 FY26 | 95% | rep-q3 |"
	assert.Contains(t, md, profitRow)
	assert.Contains(t, md, revenueRow)
	assert.Less(t, strings.Index(md, profitRow), strings.Index(md, revenueRow), "metric rows should be sorted by name")

	assert.Contains(t, md, "| total_revenue | up | 70% | healthy deal pipeline |")

	assert.Contains(t, md, "Outlook: **improving**, sentiment 0.40.")
	assert.Contains(t, md, "Management sounded upbeat on demand.")
	assert.Contains(t, md, "- demand\n- margins\n")

	assert.Contains(t, md, "### Risks\n\n- negative attrition commentary in transcripts")
	assert.Contains(t, md, "### Opportunities\n\n- deal wins in BFSI")
}

func TestBuildMarkdown_EvidencePutsCaveatsFirst(t *testing.T) {
	md := BuildMarkdown(sampleResult())

	gaps := strings.Index(md, "### Gaps")
	anomalies := strings.Index(md, "### Anomalies")
	metricCitations := strings.Index(md, "### Metric Citations")
	themeCitations := strings.Index(md, "### Theme Citations")
	require.NotEqual(t, -1, gaps)
	require.NotEqual(t, -1, anomalies)
	require.NotEqual(t, -1, metricCitations)
	require.NotEqual(t, -1, themeCitations)
	assert.Less(t, gaps, anomalies)
	assert.Less(t, anomalies, metricCitations)
	assert.Less(t, metricCitations, themeCitations)

	assert.Contains(t, md, "- source company-ir unavailable for report documents\n")
	assert.Contains(t, md, "- total_revenue (document rep-q3): strategy=table confidence=0.95 period=Q3 FY26\n")
	assert.Contains(t, md, "- demand (document call-1)\n")
	assert.Contains(t, md, "- total_revenue moved 180% quarter on quarter (document rep-q3)\n")
}

func TestBuildMarkdown_DegradedRunWithNothingExtracted(t *testing.T) {
	result := schemas.NewForecastResult("TCS", "run-8", 3)
	result.Metadata.Mode = "degraded"

	md := BuildMarkdown(result)

	assert.Contains(t, md, "pipeline mode degraded")
	assert.Contains(t, md, "No numeric metrics were extracted for this run.")
	assert.Contains(t, md, "No per-metric projections were produced.")
	assert.Contains(t, md, "Outlook: **stable**, sentiment 0.00.")
	assert.Contains(t, md, "No citations recorded.")
	assert.NotContains(t, md, "## Risks and Opportunities")
}

func TestRenderPDF_ProducesDocument(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	pdfBytes, err := svc.RenderPDF(sampleResult())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")), "output should be a PDF document")
	assert.Greater(t, len(pdfBytes), 1000)
}
