package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResult() *ForecastResult {
	result := NewForecastResult("TCS", "run-1", 4)
	result.Metrics["total_revenue"] = MetricEntry{
		Value: 1234.5, Unit: "INR Cr", Confidence: 0.9, Period: "Q3 FY26", SourceDocumentID: "rep-1",
	}
	result.Qualitative.KeyThemes = []string{"demand"}
	result.Evidence = []Citation{
		{Kind: CitationMetric, Claim: "total_revenue", SourceDocumentID: "rep-1"},
		{Kind: CitationTheme, Claim: "demand", SourceDocumentID: "call-1"},
	}
	return result
}

func TestViolations_ValidResultIsClean(t *testing.T) {
	result := validResult()

	assert.Empty(t, result.Violations())
	assert.NoError(t, result.Validate())
}

func TestViolations_StructTagFailures(t *testing.T) {
	result := validResult()
	result.Metadata.Mode = "partial"
	result.Qualitative.Outlook = "bullish"
	result.Confidence.Overall = 1.5

	violations := result.Violations()
	require.NotEmpty(t, violations)

	joined := ""
	for _, v := range violations {
		joined += v + "\n"
	}
	assert.Contains(t, joined, "Metadata.Mode")
	assert.Contains(t, joined, "Qualitative.Outlook")
	assert.Contains(t, joined, "Confidence.Overall")
	assert.Contains(t, joined, "failed rule oneof")
}

func TestViolations_EmptyEvidenceIsRejected(t *testing.T) {
	result := validResult()
	result.Metrics = map[string]MetricEntry{}
	result.Qualitative.KeyThemes = nil
	result.Evidence = []Citation{}

	violations := result.Violations()
	require.NotEmpty(t, violations)
	assert.Contains(t, violations[0], "Evidence")
}

func TestViolations_UncitedMetric(t *testing.T) {
	result := validResult()
	result.Metrics["net_profit"] = MetricEntry{
		Value: 400, Confidence: 0.8, SourceDocumentID: "rep-1",
	}

	violations := result.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, "metric net_profit has no evidence citation", violations[0])
}

func TestViolations_MetricCitationNeedsSourceDocument(t *testing.T) {
	result := validResult()
	result.Evidence[0].SourceDocumentID = ""

	violations := result.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, "metric total_revenue citation has no source document", violations[0])
}

func TestViolations_UncitedTheme(t *testing.T) {
	result := validResult()
	result.Qualitative.KeyThemes = append(result.Qualitative.KeyThemes, "margins")

	violations := result.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, "theme margins has no evidence citation", violations[0])
}

func TestViolations_GapCitationsNeedNoDocument(t *testing.T) {
	result := validResult()
	result.Evidence = append(result.Evidence, Citation{
		Kind:  CitationGap,
		Claim: "source mailbox unavailable for transcript documents",
	})

	assert.Empty(t, result.Violations())
}

func TestValidate_ReportsViolationCount(t *testing.T) {
	result := validResult()
	result.Metadata.Ticker = ""
	result.Metadata.RunID = ""

	err := result.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 violation(s)")
	assert.Contains(t, err.Error(), "Metadata.Ticker")
}

func TestGetSchema(t *testing.T) {
	for _, name := range []string{"forecast_result.json", "forecast_response.json"} {
		data, err := GetSchema(name)
		require.NoError(t, err, name)

		var schema map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &schema), name)
		assert.NotEmpty(t, schema["title"], name)
	}

	_, err := GetSchema("unknown.json")
	assert.Error(t, err)
}

func TestToMap(t *testing.T) {
	m, err := validResult().ToMap()
	require.NoError(t, err)

	assert.Contains(t, m, "metadata")
	assert.Contains(t, m, "numeric_trends")
	metadata := m["metadata"].(map[string]interface{})
	assert.Equal(t, "TCS", metadata["ticker"])
}
