// -----------------------------------------------------------------------
// Output synthesizer - deterministic reconciliation of collected
// metrics and insights into the validated forecast shape
// -----------------------------------------------------------------------

package synthesis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
)

// percentBound is the sanity limit for percent-unit metrics. Values
// past it are flagged in evidence, never dropped.
const percentBound = 100.0

// Synthesizer assembles the final ForecastResult. Everything here is
// deterministic: the model contributes judgment (outlook, directions,
// risks), never numbers.
type Synthesizer struct {
	logger     arbor.ILogger
	riskThemes []string
}

// NewSynthesizer creates a synthesizer. riskThemes marks insight
// themes that surface as risks when management commentary on them
// turns negative.
func NewSynthesizer(logger arbor.ILogger, riskThemes []string) *Synthesizer {
	return &Synthesizer{logger: logger, riskThemes: riskThemes}
}

// Reconcile collapses duplicate metrics by name: the latest reporting
// period wins, confidence breaks period ties, first-seen breaks exact
// ties. Returns winners keyed by metric name.
func (s *Synthesizer) Reconcile(metrics []models.ExtractedMetric) map[string]models.ExtractedMetric {
	winners := make(map[string]models.ExtractedMetric, len(metrics))
	for _, m := range metrics {
		current, exists := winners[m.Name]
		if !exists {
			winners[m.Name] = m
			continue
		}
		curRank, newRank := PeriodRank(current.Period), PeriodRank(m.Period)
		switch {
		case newRank > curRank:
			winners[m.Name] = m
		case newRank == curRank && m.Confidence > current.Confidence:
			winners[m.Name] = m
		}
	}
	return winners
}

// Entries converts reconciled winners into schema metric entries.
func (s *Synthesizer) Entries(winners map[string]models.ExtractedMetric) map[string]schemas.MetricEntry {
	entries := make(map[string]schemas.MetricEntry, len(winners))
	for name, m := range winners {
		entries[name] = schemas.MetricEntry{
			Value:            m.Value,
			Unit:             m.Unit,
			Confidence:       models.ClampConfidence(m.Confidence),
			Period:           m.Period,
			SourceDocumentID: m.SourceDocumentID,
		}
	}
	return entries
}

// Assemble builds the terminal ForecastResult from the run's collected
// data and the model's judgment. The caller validates the result and
// owns the corrective retry.
func (s *Synthesizer) Assemble(rc *models.RunContext, mf *ModelForecast, winners map[string]models.ExtractedMetric) *schemas.ForecastResult {
	insights := rc.Insights()
	gaps := rc.Gaps()

	result := &schemas.ForecastResult{
		Metadata: schemas.ForecastMetadata{
			Ticker:           rc.Request.Ticker,
			RunID:            rc.RunID,
			GeneratedAt:      time.Now().UTC(),
			QuartersAnalyzed: rc.Request.QuarterCount,
			Mode:             rc.Mode(),
		},
		Metrics:  s.Entries(winners),
		Forecast: make(map[string]schemas.ForecastEntry, len(mf.Forecast)),
		Qualitative: schemas.QualitativeSummary{
			Outlook:   mf.Outlook,
			KeyThemes: keyThemes(insights),
			Sentiment: weightedSentiment(insights),
			Summary:   mf.Summary,
		},
		RisksOpportunities: schemas.RisksOpportunities{
			Risks:         s.risksFrom(mf, insights),
			Opportunities: append([]string(nil), mf.Opportunities...),
		},
	}

	for name, call := range mf.Forecast {
		result.Forecast[name] = schemas.ForecastEntry{
			Direction:  call.Direction,
			Rationale:  call.Rationale,
			Confidence: models.ClampConfidence(call.Confidence),
		}
	}

	result.Confidence = confidenceScores(result.Metrics, insights)
	result.Evidence = s.buildEvidence(result, winners, insights, gaps)

	return result
}

// confidenceScores computes the documented aggregate formulas.
// metrics: mean confidence of metrics actually used, gaps excluded
// from the denominator. analysis: cohesion-weighted mean insight
// confidence. overall: mean of the two non-empty components.
func confidenceScores(entries map[string]schemas.MetricEntry, insights []models.QualitativeInsight) schemas.ConfidenceScores {
	var scores schemas.ConfidenceScores

	if len(entries) > 0 {
		var sum float64
		for _, e := range entries {
			sum += e.Confidence
		}
		scores.Metrics = models.ClampConfidence(sum / float64(len(entries)))
	}

	var weighted, weightSum float64
	for _, in := range insights {
		w := in.Cohesion
		if w <= 0 {
			continue
		}
		weighted += in.Confidence * w
		weightSum += w
	}
	if weightSum > 0 {
		scores.Analysis = models.ClampConfidence(weighted / weightSum)
	}

	components := 0
	var total float64
	if len(entries) > 0 {
		total += scores.Metrics
		components++
	}
	if weightSum > 0 {
		total += scores.Analysis
		components++
	}
	if components > 0 {
		scores.Overall = models.ClampConfidence(total / float64(components))
	}

	return scores
}

// keyThemes orders distinct insight themes by total chunk support,
// alphabetical on ties so output is stable.
func keyThemes(insights []models.QualitativeInsight) []string {
	support := make(map[string]int)
	for _, in := range insights {
		support[in.Theme] += in.ChunkCount
	}
	themes := make([]string, 0, len(support))
	for t := range support {
		themes = append(themes, t)
	}
	sort.Slice(themes, func(i, j int) bool {
		if support[themes[i]] != support[themes[j]] {
			return support[themes[i]] > support[themes[j]]
		}
		return themes[i] < themes[j]
	})
	return themes
}

// weightedSentiment averages insight sentiment weighted by chunk
// support.
func weightedSentiment(insights []models.QualitativeInsight) float64 {
	var weighted, weightSum float64
	for _, in := range insights {
		w := float64(in.ChunkCount)
		if w < 1 {
			w = 1
		}
		weighted += in.Sentiment * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return models.ClampSentiment(weighted / weightSum)
}

// risksFrom merges the model's risks with negative commentary on the
// known risk themes.
func (s *Synthesizer) risksFrom(mf *ModelForecast, insights []models.QualitativeInsight) []string {
	risks := append([]string(nil), mf.Risks...)
	for _, in := range insights {
		if in.Sentiment >= 0 || !s.isRiskTheme(in.Theme) {
			continue
		}
		line := fmt.Sprintf("negative %s commentary in transcripts", in.Theme)
		if !containsFold(risks, in.Theme) {
			risks = append(risks, line)
		}
	}
	return risks
}

func (s *Synthesizer) isRiskTheme(theme string) bool {
	for _, t := range s.riskThemes {
		if t == theme {
			return true
		}
	}
	return false
}

func containsFold(list []string, needle string) bool {
	needle = strings.ToLower(needle)
	for _, item := range list {
		if strings.Contains(strings.ToLower(item), needle) {
			return true
		}
	}
	return false
}

// buildEvidence emits ordered citations: one per metric, one per key
// theme, one per extraction gap, one per out-of-bounds anomaly. The
// anomaly entries flag suspect values without removing them.
func (s *Synthesizer) buildEvidence(result *schemas.ForecastResult, winners map[string]models.ExtractedMetric, insights []models.QualitativeInsight, gaps []models.ExtractionGapError) []schemas.Citation {
	evidence := make([]schemas.Citation, 0, len(winners)+len(insights)+len(gaps))

	names := make([]string, 0, len(winners))
	for name := range winners {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := winners[name]
		note := fmt.Sprintf("strategy=%s confidence=%.2f", m.Strategy, m.Confidence)
		if m.Period != "" {
			note += " period=" + m.Period
		}
		evidence = append(evidence, schemas.Citation{
			Kind:             schemas.CitationMetric,
			Claim:            name,
			SourceDocumentID: m.SourceDocumentID,
			Note:             note,
		})
	}

	for _, theme := range result.Qualitative.KeyThemes {
		best := bestInsightFor(theme, insights)
		if best == nil {
			continue
		}
		evidence = append(evidence, schemas.Citation{
			Kind:             schemas.CitationTheme,
			Claim:            theme,
			SourceDocumentID: best.SourceDocumentID,
			Note:             best.Quote,
		})
	}

	for _, gap := range gaps {
		evidence = append(evidence, schemas.Citation{
			Kind:             schemas.CitationGap,
			Claim:            gap.Reason,
			SourceDocumentID: gap.DocumentID,
		})
	}

	for _, name := range names {
		m := winners[name]
		if m.Unit == "%" && (m.Value > percentBound || m.Value < -percentBound) {
			evidence = append(evidence, schemas.Citation{
				Kind:             schemas.CitationAnomaly,
				Claim:            name,
				SourceDocumentID: m.SourceDocumentID,
				Note:             fmt.Sprintf("value %.2f%% outside sane bounds", m.Value),
			})
		}
	}

	return evidence
}

// bestInsightFor picks the insight with the most chunk support for a
// theme.
func bestInsightFor(theme string, insights []models.QualitativeInsight) *models.QualitativeInsight {
	var best *models.QualitativeInsight
	for i := range insights {
		if insights[i].Theme != theme {
			continue
		}
		if best == nil || insights[i].ChunkCount > best.ChunkCount {
			best = &insights[i]
		}
	}
	return best
}
