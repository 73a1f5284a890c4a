// -----------------------------------------------------------------------
// ForecastResult - Schema definitions for the forecast pipeline output
// Provides strongly-typed structures validated before any result leaves
// the pipeline
// -----------------------------------------------------------------------

package schemas

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Citation kinds. Gaps and anomalies ride along in evidence so callers
// see exactly what is missing or suspect instead of silent drops.
const (
	CitationMetric  = "metric"
	CitationTheme   = "theme"
	CitationGap     = "gap"
	CitationAnomaly = "anomaly"
)

// ForecastResult is the terminal, immutable output of one forecast run.
// All fields are validated using go-playground/validator tags plus the
// citation-coverage checks in Violations.
type ForecastResult struct {
	// Run identification
	Metadata ForecastMetadata `json:"metadata" validate:"required"`

	// Reconciled numeric metrics, keyed by canonical metric name
	Metrics map[string]MetricEntry `json:"numeric_trends" validate:"omitempty,dive"`

	// Qualitative synthesis over transcripts
	Qualitative QualitativeSummary `json:"qualitative_summary" validate:"required"`

	// Per-metric next-period projection from the synthesis model call
	Forecast map[string]ForecastEntry `json:"forecast" validate:"omitempty,dive"`

	// Aggregate confidence (documented mean formulas, always in [0,1])
	Confidence ConfidenceScores `json:"confidence_scores" validate:"required"`

	// Risk and opportunity statements from the synthesis call
	RisksOpportunities RisksOpportunities `json:"risks_and_opportunities"`

	// Ordered citations: every metric and theme, plus gaps and anomalies
	Evidence []Citation `json:"evidence" validate:"required,min=1,dive"`
}

// ForecastMetadata identifies the run that produced a result.
type ForecastMetadata struct {
	Ticker           string    `json:"ticker" validate:"required"`
	RunID            string    `json:"run_id" validate:"required"`
	GeneratedAt      time.Time `json:"generated_at" validate:"required"`
	QuartersAnalyzed int       `json:"quarters_analyzed" validate:"gte=1"`
	Mode             string    `json:"mode" validate:"required,oneof=full degraded"`
}

// MetricEntry is one reconciled metric value with its provenance.
type MetricEntry struct {
	Value            float64 `json:"value"`
	Unit             string  `json:"unit,omitempty"`
	Confidence       float64 `json:"confidence" validate:"gte=0,lte=1"`
	Period           string  `json:"period,omitempty"`
	SourceDocumentID string  `json:"source_document_id" validate:"required"`
}

// QualitativeSummary aggregates the transcript analysis.
type QualitativeSummary struct {
	Outlook   string   `json:"outlook" validate:"required,oneof=improving stable deteriorating mixed"`
	KeyThemes []string `json:"key_themes"`
	Sentiment float64  `json:"sentiment" validate:"gte=-1,lte=1"`
	Summary   string   `json:"summary,omitempty"`
}

// ForecastEntry is the model's directional call for one metric.
type ForecastEntry struct {
	Direction  string  `json:"direction" validate:"required,oneof=up flat down"`
	Rationale  string  `json:"rationale,omitempty"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// ConfidenceScores carries the aggregate confidence components.
type ConfidenceScores struct {
	Metrics  float64 `json:"metrics" validate:"gte=0,lte=1"`
	Analysis float64 `json:"analysis" validate:"gte=0,lte=1"`
	Overall  float64 `json:"overall" validate:"gte=0,lte=1"`
}

// RisksOpportunities lists risk and opportunity statements.
type RisksOpportunities struct {
	Risks         []string `json:"risks"`
	Opportunities []string `json:"opportunities"`
}

// Citation ties one claim back to a source document. Gap citations may
// lack a document when an entire document kind was missing.
type Citation struct {
	Kind             string `json:"kind" validate:"required,oneof=metric theme gap anomaly"`
	Claim            string `json:"claim" validate:"required"`
	SourceDocumentID string `json:"source_document_id,omitempty"`
	Note             string `json:"note,omitempty"`
}

// Violations returns every schema violation in human-readable form:
// struct tag failures first, then citation-coverage failures. An empty
// slice means the result is valid.
func (f *ForecastResult) Violations() []string {
	var out []string

	validate := validator.New()
	if err := validate.Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				out = append(out, fmt.Sprintf("field %s failed rule %s", ve.Namespace(), ve.Tag()))
			}
		} else {
			out = append(out, err.Error())
		}
	}

	// Every metric must be cited with a traceable source document.
	cited := make(map[string]string) // kind+claim -> source doc
	for _, c := range f.Evidence {
		cited[c.Kind+"/"+c.Claim] = c.SourceDocumentID
	}
	for name := range f.Metrics {
		src, ok := cited[CitationMetric+"/"+name]
		if !ok {
			out = append(out, fmt.Sprintf("metric %s has no evidence citation", name))
		} else if src == "" {
			out = append(out, fmt.Sprintf("metric %s citation has no source document", name))
		}
	}

	// Every key theme must be cited.
	for _, theme := range f.Qualitative.KeyThemes {
		src, ok := cited[CitationTheme+"/"+theme]
		if !ok {
			out = append(out, fmt.Sprintf("theme %s has no evidence citation", theme))
		} else if src == "" {
			out = append(out, fmt.Sprintf("theme %s citation has no source document", theme))
		}
	}

	return out
}

// Validate validates the result. Returns an error describing the first
// violations if any exist.
func (f *ForecastResult) Validate() error {
	violations := f.Violations()
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("forecast result invalid: %d violation(s), first: %s", len(violations), violations[0])
}

// ToMap converts the result to a map for JSON handoff.
// Uses JSON marshal/unmarshal for clean type conversion.
func (f *ForecastResult) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// NewForecastResult creates a result shell with default values.
func NewForecastResult(ticker, runID string, quarters int) *ForecastResult {
	return &ForecastResult{
		Metadata: ForecastMetadata{
			Ticker:           ticker,
			RunID:            runID,
			GeneratedAt:      time.Now().UTC(),
			QuartersAnalyzed: quarters,
			Mode:             "full",
		},
		Metrics:  map[string]MetricEntry{},
		Forecast: map[string]ForecastEntry{},
		Qualitative: QualitativeSummary{
			Outlook: "stable",
		},
		Evidence: []Citation{},
	}
}
