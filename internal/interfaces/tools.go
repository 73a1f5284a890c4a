package interfaces

import (
	"context"

	"github.com/ternarybob/augur/internal/models"
)

// MetricExtractor pulls structured metrics out of a source document.
// Implementations never fail a run over one document: a document that
// yields nothing returns an empty slice and a nil error, and the
// caller records the gap. Returned metrics always carry the source
// document ID and the strategy that produced them.
type MetricExtractor interface {
	Extract(ctx context.Context, doc *models.SourceDocument) ([]models.ExtractedMetric, error)
}

// TranscriptAnalyzer derives qualitative insights from a transcript
// document. Like MetricExtractor, a transcript that yields no themes
// is an empty result, not an error.
type TranscriptAnalyzer interface {
	Analyze(ctx context.Context, doc *models.SourceDocument) ([]models.QualitativeInsight, error)
}
