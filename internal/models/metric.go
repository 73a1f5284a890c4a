package models

// Extraction strategy identifiers, in chain priority order.
const (
	StrategyTable = "table"
	StrategyText  = "text"
	StrategyOCR   = "ocr"
)

// ExtractedMetric is one numeric fact pulled out of a source document.
// Multiple metrics may exist per name across documents; reconciliation
// picks the latest period, with confidence breaking period ties.
type ExtractedMetric struct {
	Name             string  `json:"name"`
	Value            float64 `json:"value"`
	Unit             string  `json:"unit"` // crore, percent, ratio, ...
	Confidence       float64 `json:"confidence"`
	Strategy         string  `json:"strategy"`
	SourceDocumentID string  `json:"source_document_id"`
	Period           string  `json:"period,omitempty"`
}

// ClampConfidence bounds a confidence score to [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampSentiment bounds a sentiment score to [-1,1].
func ClampSentiment(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
