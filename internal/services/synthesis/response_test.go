package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
  "outlook": "improving",
  "summary": "Revenue momentum held up.",
  "forecast": {
    "total_revenue": {"direction": "up", "rationale": "three rising quarters", "confidence": 0.8}
  },
  "risks": ["client budget cuts"],
  "opportunities": ["deal pipeline"]
}`

func TestParseResponse_PlainJSON(t *testing.T) {
	mf, err := ParseResponse(validResponse)
	require.NoError(t, err)
	assert.Equal(t, "improving", mf.Outlook)
	assert.Equal(t, "up", mf.Forecast["total_revenue"].Direction)
	assert.InDelta(t, 0.8, mf.Forecast["total_revenue"].Confidence, 0.001)
	assert.Equal(t, []string{"client budget cuts"}, mf.Risks)
}

func TestParseResponse_MarkdownFence(t *testing.T) {
	mf, err := ParseResponse("```json\n" + validResponse + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "improving", mf.Outlook)
}

func TestParseResponse_ProseWrapped(t *testing.T) {
	mf, err := ParseResponse("Here is the forecast you asked for:\n" + validResponse + "\nLet me know if you need more.")
	require.NoError(t, err)
	assert.Equal(t, "improving", mf.Outlook)
}

func TestParseResponse_NormalizesCase(t *testing.T) {
	mf, err := ParseResponse(`{
  "outlook": "Stable",
  "summary": "s",
  "forecast": {"eps": {"direction": "UP", "rationale": "r", "confidence": 0.5}}
}`)
	require.NoError(t, err)
	assert.Equal(t, "stable", mf.Outlook)
	assert.Equal(t, "up", mf.Forecast["eps"].Direction)
}

func TestParseResponse_ClampsConfidence(t *testing.T) {
	mf, err := ParseResponse(`{
  "outlook": "stable",
  "summary": "s",
  "forecast": {
    "a": {"direction": "up", "rationale": "r", "confidence": 1.5},
    "b": {"direction": "down", "rationale": "r", "confidence": -0.2}
  }
}`)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mf.Forecast["a"].Confidence, 0.001)
	assert.InDelta(t, 0.0, mf.Forecast["b"].Confidence, 0.001)
}

func TestParseResponse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no JSON at all", "I could not produce a forecast."},
		{"empty", ""},
		{"truncated JSON", `{"outlook": "stable", "summary":`},
		{"bad outlook", `{"outlook": "bullish", "summary": "s", "forecast": {}}`},
		{"bad direction", `{"outlook": "stable", "summary": "s", "forecast": {"eps": {"direction": "sideways", "confidence": 0.5}}}`},
		{"missing forecast", `{"outlook": "stable", "summary": "s"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestExtractJSON_FencePrecedence(t *testing.T) {
	// The fenced block wins over braces in surrounding prose.
	raw := "Notes {draft} below:\n```json\n{\"outlook\": \"stable\"}\n```"
	assert.Equal(t, `{"outlook": "stable"}`, extractJSON(raw))
}
