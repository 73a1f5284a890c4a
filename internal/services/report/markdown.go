package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/augur/internal/schemas"
)

// BuildMarkdown renders a forecast result as a markdown report. The
// markdown form is served directly and is also the input to the PDF
// renderer, so everything here sticks to headings, tables and lists.
func BuildMarkdown(result *schemas.ForecastResult) string {
	var b strings.Builder

	meta := result.Metadata
	fmt.Fprintf(&b, "# %s Earnings Forecast\n\n", meta.Ticker)
	fmt.Fprintf(&b, "Run %s, generated %s. Covers %d quarter(s), pipeline mode %s.\n\n",
		meta.RunID, meta.GeneratedAt.Format("2 Jan 2006 15:04 MST"), meta.QuartersAnalyzed, meta.Mode)

	writeConfidence(&b, result.Confidence)
	writeMetrics(&b, result.Metrics)
	writeForecast(&b, result.Forecast)
	writeQualitative(&b, result.Qualitative)
	writeRisksOpportunities(&b, result.RisksOpportunities)
	writeEvidence(&b, result.Evidence)

	return b.String()
}

func writeConfidence(b *strings.Builder, c schemas.ConfidenceScores) {
	b.WriteString("## Confidence\n\n")
	b.WriteString("| Component | Score |\n|---|---|\n")
	fmt.Fprintf(b, "| Metrics | %.0f%% |\n", c.Metrics*100)
	fmt.Fprintf(b, "| Analysis | %.0f%% |\n", c.Analysis*100)
	fmt.Fprintf(b, "| Overall | %.0f%% |\n\n", c.Overall*100)
}

func writeMetrics(b *strings.Builder, metrics map[string]schemas.MetricEntry) {
	b.WriteString("## Numeric Trends\n\n")
	if len(metrics) == 0 {
		b.WriteString("No numeric metrics were extracted for this run.\n\n")
		return
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("| Metric | Value | Unit | Period | Confidence | Source |\n|---|---|---|---|---|---|\n")
	for _, name := range names {
		m := metrics[name]
		fmt.Fprintf(b, "| %s | %s | %s | %s | %.0f%% | %s |\n",
			name, formatValue(m.Value), orDash(m.Unit), orDash(m.Period), m.Confidence*100, orDash(m.SourceDocumentID))
	}
	b.WriteString("\n")
}

func writeForecast(b *strings.Builder, forecast map[string]schemas.ForecastEntry) {
	b.WriteString("## Next Period Outlook\n\n")
	if len(forecast) == 0 {
		b.WriteString("No per-metric projections were produced.\n\n")
		return
	}

	names := make([]string, 0, len(forecast))
	for name := range forecast {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("| Metric | Direction | Confidence | Rationale |\n|---|---|---|---|\n")
	for _, name := range names {
		f := forecast[name]
		fmt.Fprintf(b, "| %s | %s | %.0f%% | %s |\n",
			name, f.Direction, f.Confidence*100, orDash(f.Rationale))
	}
	b.WriteString("\n")
}

func writeQualitative(b *strings.Builder, q schemas.QualitativeSummary) {
	b.WriteString("## Qualitative Summary\n\n")
	fmt.Fprintf(b, "Outlook: **%s**, sentiment %.2f.\n\n", q.Outlook, q.Sentiment)
	if q.Summary != "" {
		b.WriteString(q.Summary)
		b.WriteString("\n\n")
	}
	if len(q.KeyThemes) > 0 {
		b.WriteString("Key themes:\n\n")
		for _, theme := range q.KeyThemes {
			fmt.Fprintf(b, "- %s\n", theme)
		}
		b.WriteString("\n")
	}
}

func writeRisksOpportunities(b *strings.Builder, ro schemas.RisksOpportunities) {
	if len(ro.Risks) == 0 && len(ro.Opportunities) == 0 {
		return
	}
	b.WriteString("## Risks and Opportunities\n\n")
	if len(ro.Risks) > 0 {
		b.WriteString("### Risks\n\n")
		for _, r := range ro.Risks {
			fmt.Fprintf(b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
	if len(ro.Opportunities) > 0 {
		b.WriteString("### Opportunities\n\n")
		for _, o := range ro.Opportunities {
			fmt.Fprintf(b, "- %s\n", o)
		}
		b.WriteString("\n")
	}
}

func writeEvidence(b *strings.Builder, evidence []schemas.Citation) {
	b.WriteString("## Evidence\n\n")
	if len(evidence) == 0 {
		b.WriteString("No citations recorded.\n\n")
		return
	}

	// Gaps and anomalies surface first so a reader sees caveats before
	// the supporting citations.
	order := []string{schemas.CitationGap, schemas.CitationAnomaly, schemas.CitationMetric, schemas.CitationTheme}
	for _, kind := range order {
		var group []schemas.Citation
		for _, c := range evidence {
			if c.Kind == kind {
				group = append(group, c)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s\n\n", evidenceHeading(kind))
		for _, c := range group {
			line := "- " + c.Claim
			if c.SourceDocumentID != "" {
				line += fmt.Sprintf(" (document %s)", c.SourceDocumentID)
			}
			if c.Note != "" {
				line += ": " + c.Note
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
}

func evidenceHeading(kind string) string {
	switch kind {
	case schemas.CitationGap:
		return "Gaps"
	case schemas.CitationAnomaly:
		return "Anomalies"
	case schemas.CitationMetric:
		return "Metric Citations"
	case schemas.CitationTheme:
		return "Theme Citations"
	default:
		return kind
	}
}

func formatValue(v float64) string {
	if v == float64(int64(v)) && v < 1e15 && v > -1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
