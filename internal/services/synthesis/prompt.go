// -----------------------------------------------------------------------
// Synthesis prompts - the structured forecast request plus the
// corrective re-prompts for malformed and invalid responses
// -----------------------------------------------------------------------

package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
)

// malformedEchoLimit bounds how much of a bad response gets echoed
// back in a correction prompt.
const malformedEchoLimit = 2000

// responseSchema is embedded in every synthesis prompt so the model
// sees the exact output contract that parsing will enforce.
var responseSchema = mustSchema("forecast_response.json")

func mustSchema(name string) string {
	data, err := schemas.GetSchema(name)
	if err != nil {
		panic(fmt.Sprintf("schema %s not embedded: %v", name, err))
	}
	return string(data)
}

// BuildPrompt creates the synthesis prompt embedding reconciled
// metrics, qualitative insights, optional market context and known gaps.
func BuildPrompt(ticker string, quarters int, metrics map[string]schemas.MetricEntry, insights []models.QualitativeInsight, market *models.MarketSnapshot, gaps []string) string {
	var sb strings.Builder

	sb.WriteString(`You are an equity analyst producing a quarterly forecast from extracted data.

CRITICAL RULES:
1. Use ONLY the metrics and insights provided below, never invent numbers.
2. Every forecast direction needs a rationale referencing the data.
3. If the data is too thin to call a direction, use "flat" with a low confidence.
4. Output valid JSON only. No markdown, no commentary outside the JSON.

`)

	sb.WriteString(fmt.Sprintf("TICKER: %s\nQUARTERS ANALYZED: %d\n", ticker, quarters))

	sb.WriteString("\nEXTRACTED METRICS:\n")
	if len(metrics) == 0 {
		sb.WriteString("  (none extracted)\n")
	} else {
		names := make([]string, 0, len(metrics))
		for name := range metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e := metrics[name]
			sb.WriteString(fmt.Sprintf("  %s: %.2f %s (confidence %.2f", name, e.Value, e.Unit, e.Confidence))
			if e.Period != "" {
				sb.WriteString(", period " + e.Period)
			}
			sb.WriteString(")\n")
		}
	}

	sb.WriteString("\nQUALITATIVE INSIGHTS:\n")
	if len(insights) == 0 {
		sb.WriteString("  (none available)\n")
	} else {
		for _, in := range insights {
			sb.WriteString(fmt.Sprintf("  theme=%s sentiment=%.2f confidence=%.2f chunks=%d quote=%q\n",
				in.Theme, in.Sentiment, in.Confidence, in.ChunkCount, in.Quote))
		}
	}

	if market != nil {
		sb.WriteString("\nMARKET CONTEXT:\n")
		sb.WriteString(fmt.Sprintf("  symbol=%s close=%.2f window_change=%+.1f%% month_change=%+.1f%% range=[%.2f, %.2f]\n",
			market.Symbol, market.Close, market.WindowChange*100, market.MonthChange*100, market.Low, market.High))
		for _, h := range market.Headlines {
			sb.WriteString("  headline: " + h + "\n")
		}
	}

	if len(gaps) > 0 {
		sb.WriteString("\nKNOWN DATA GAPS:\n")
		for _, g := range gaps {
			sb.WriteString("  - " + g + "\n")
		}
	}

	sb.WriteString("\nOUTPUT CONTRACT (JSON Schema):\n")
	sb.WriteString(responseSchema)
	sb.WriteString("\nReturn a single JSON object conforming to the schema above.\n")

	return sb.String()
}

// BuildCorrectionPrompt re-issues the request with the malformed
// output echoed back so the model can fix its own formatting.
func BuildCorrectionPrompt(original, malformed string, parseErr error) string {
	echo := malformed
	if len(echo) > malformedEchoLimit {
		echo = echo[:malformedEchoLimit]
	}

	var sb strings.Builder
	sb.WriteString("Your previous response was not valid JSON matching the requested shape.\n\n")
	sb.WriteString("PARSE ERROR: ")
	sb.WriteString(parseErr.Error())
	sb.WriteString("\n\nYOUR PREVIOUS RESPONSE:\n")
	sb.WriteString(echo)
	sb.WriteString("\n\nReturn ONLY the corrected JSON object, nothing else.\n\n")
	sb.WriteString("ORIGINAL REQUEST:\n")
	sb.WriteString(original)
	return sb.String()
}

// BuildValidationRetryPrompt re-issues the request after schema
// validation failed, listing each violation to correct.
func BuildValidationRetryPrompt(original string, violations []string) string {
	var sb strings.Builder
	sb.WriteString("Your previous forecast failed validation:\n")
	for _, v := range violations {
		sb.WriteString("  - " + v + "\n")
	}
	sb.WriteString("\nCorrect these problems and return ONLY the JSON object.\n\n")
	sb.WriteString("ORIGINAL REQUEST:\n")
	sb.WriteString(original)
	return sb.String()
}
