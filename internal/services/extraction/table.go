// -----------------------------------------------------------------------
// Table strategy - structured table cells are the highest-confidence
// source for financial metrics
// -----------------------------------------------------------------------

package extraction

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/models"
)

// TableCeiling caps confidence for metrics read out of table cells.
const TableCeiling = 0.95

// TableStrategy reads label/value pairs out of table structures. HTML
// documents use real <table> markup, markdown uses pipe rows, PDFs
// use single-line label/value runs from the text layer.
type TableStrategy struct {
	vocab  *Vocabulary
	logger arbor.ILogger
}

// NewTableStrategy creates the table extraction strategy.
func NewTableStrategy(vocab *Vocabulary, logger arbor.ILogger) *TableStrategy {
	return &TableStrategy{vocab: vocab, logger: logger}
}

// Name identifies the strategy in metric provenance and traces.
func (s *TableStrategy) Name() string { return models.StrategyTable }

// Ceiling is the maximum confidence this strategy may emit.
func (s *TableStrategy) Ceiling() float64 { return TableCeiling }

// Extract scans the document for tabular label/value pairs. One
// metric per canonical key, first hit wins.
func (s *TableStrategy) Extract(ctx context.Context, doc *models.SourceDocument) ([]models.ExtractedMetric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows [][]string
	switch doc.FormatHint {
	case models.FormatHTML:
		rows = s.htmlTableRows(doc)
	case models.FormatMarkdown:
		rows = markdownTableRows(doc.Text)
	default:
		text := doc.Text
		if text == "" && len(doc.Content) > 0 && doc.FormatHint == models.FormatPDF {
			extracted, err := PDFText(doc.Content)
			if err != nil {
				s.logger.Debug().Err(err).Str("document_id", doc.ID).Msg("PDF text layer unavailable for table scan")
				return nil, nil
			}
			text = extracted
		}
		rows = lineRows(text)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	metrics := make([]models.ExtractedMetric, 0, 4)
	seen := make(map[string]bool)
	for _, row := range rows {
		for i, cell := range row {
			key, ok := s.vocab.CanonicalKey(cell)
			if !ok || seen[key] {
				continue
			}
			// Value sits to the right of the label, scan up to
			// four cells over
			limit := i + 5
			if limit > len(row) {
				limit = len(row)
			}
			for j := i + 1; j < limit; j++ {
				parsed, found := ParseFinancialNumber(row[j])
				if !found {
					continue
				}
				unit := parsed.Unit
				if unit == UnitCrore {
					unit = s.vocab.UnitFor(key)
				}
				metrics = append(metrics, models.ExtractedMetric{
					Name:             key,
					Value:            parsed.Value,
					Unit:             unit,
					Confidence:       TableCeiling,
					Strategy:         models.StrategyTable,
					SourceDocumentID: doc.ID,
					Period:           doc.Period,
				})
				seen[key] = true
				break
			}
		}
	}

	return metrics, nil
}

// htmlTableRows collects cell text per row from every <table> in the
// document.
func (s *TableStrategy) htmlTableRows(doc *models.SourceDocument) [][]string {
	html := doc.Text
	if html == "" {
		html = string(doc.Content)
	}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Debug().Err(err).Str("document_id", doc.ID).Msg("Failed to parse HTML for table scan")
		return nil
	}

	var rows [][]string
	gq.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) >= 2 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// markdownTableRows splits pipe-delimited table lines into cells.
func markdownTableRows(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || !strings.Contains(line[1:], "|") {
			continue
		}
		if isMarkdownSeparator(line) {
			continue
		}
		parts := strings.Split(strings.Trim(line, "|"), "|")
		cells := make([]string, 0, len(parts))
		for _, p := range parts {
			cells = append(cells, strings.TrimSpace(p))
		}
		if len(cells) >= 2 {
			rows = append(rows, cells)
		}
	}
	return rows
}

func isMarkdownSeparator(line string) bool {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '|', '-', ':', ' ':
			return -1
		}
		return r
	}, line)
	return stripped == ""
}

// lineRows treats each text line as a row of whitespace-separated
// runs, splitting on runs of two or more spaces so multi-word labels
// stay together.
func lineRows(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cells := splitColumns(line)
		if len(cells) >= 2 {
			rows = append(rows, cells)
		}
	}
	return rows
}

// splitColumns divides a line on gaps of two or more spaces or tabs.
func splitColumns(line string) []string {
	var cells []string
	var current strings.Builder
	spaces := 0
	flush := func() {
		if current.Len() > 0 {
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '\t':
			flush()
			spaces = 0
		case r == ' ':
			spaces++
			if spaces >= 2 {
				flush()
			} else {
				current.WriteRune(r)
			}
		default:
			spaces = 0
			current.WriteRune(r)
		}
	}
	flush()
	return cells
}

var _ extractionStrategy = (*TableStrategy)(nil)
