// -----------------------------------------------------------------------
// Text strategy - pattern matching over linearized document text
// -----------------------------------------------------------------------

package extraction

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/models"
)

// TextCeiling caps confidence for metrics parsed out of running text.
const TextCeiling = 0.75

// contextWindow is how far past a label the value search extends.
const contextWindow = 300

// TextStrategy finds "<label> ... <number>" patterns in linearized
// text. Looser than the table strategy, it tolerates labels and
// values separated by filler words.
type TextStrategy struct {
	vocab  *Vocabulary
	logger arbor.ILogger
}

// NewTextStrategy creates the structured text extraction strategy.
func NewTextStrategy(vocab *Vocabulary, logger arbor.ILogger) *TextStrategy {
	return &TextStrategy{vocab: vocab, logger: logger}
}

// Name identifies the strategy in metric provenance and traces.
func (s *TextStrategy) Name() string { return models.StrategyText }

// Ceiling is the maximum confidence this strategy may emit.
func (s *TextStrategy) Ceiling() float64 { return TextCeiling }

// Extract scans each alias occurrence and parses the first number in
// the following context window.
func (s *TextStrategy) Extract(ctx context.Context, doc *models.SourceDocument) ([]models.ExtractedMetric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := doc.Text
	if text == "" && len(doc.Content) > 0 && doc.FormatHint == models.FormatPDF {
		extracted, err := PDFText(doc.Content)
		if err != nil {
			s.logger.Debug().Err(err).Str("document_id", doc.ID).Msg("PDF text layer unavailable for text scan")
			return nil, nil
		}
		text = extracted
	}
	if text == "" {
		return nil, nil
	}

	return s.ExtractFromText(text, doc), nil
}

// ExtractFromText runs the label/context scan over prepared text.
// Shared with the OCR strategy, which feeds recognized text through
// the same patterns.
func (s *TextStrategy) ExtractFromText(text string, doc *models.SourceDocument) []models.ExtractedMetric {
	lower := strings.ToLower(text)
	metrics := make([]models.ExtractedMetric, 0, 4)
	seen := make(map[string]bool)

	for _, def := range s.vocab.Metrics {
		if seen[def.Key] {
			continue
		}
		for _, alias := range def.Aliases {
			idx := findAlias(lower, strings.ToLower(alias))
			if idx < 0 {
				continue
			}
			end := idx + len(alias) + contextWindow
			if end > len(text) {
				end = len(text)
			}
			window := text[idx+len(alias) : end]
			parsed, ok := ParseFinancialNumber(window)
			if !ok {
				continue
			}
			unit := parsed.Unit
			if unit == UnitCrore {
				unit = s.vocab.UnitFor(def.Key)
			}
			metrics = append(metrics, models.ExtractedMetric{
				Name:             def.Key,
				Value:            parsed.Value,
				Unit:             unit,
				Confidence:       TextCeiling,
				Strategy:         models.StrategyText,
				SourceDocumentID: doc.ID,
				Period:           doc.Period,
			})
			seen[def.Key] = true
			break
		}
	}

	return metrics
}

// findAlias locates an alias with word boundaries for short aliases,
// plain substring otherwise.
func findAlias(lower, alias string) int {
	if len(alias) > 4 {
		return strings.Index(lower, alias)
	}
	idx := 0
	for {
		i := strings.Index(lower[idx:], alias)
		if i < 0 {
			return -1
		}
		start := idx + i
		end := start + len(alias)
		beforeOK := start == 0 || !isLetter(lower[start-1])
		afterOK := end == len(lower) || !isLetter(lower[end])
		if beforeOK && afterOK {
			return start
		}
		idx = start + 1
		if idx >= len(lower) {
			return -1
		}
	}
}

var _ extractionStrategy = (*TextStrategy)(nil)
