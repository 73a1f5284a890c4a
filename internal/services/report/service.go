// Package report renders forecast results as markdown and PDF
// documents for the report API surface.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/augur/internal/schemas"
)

// Service renders forecast reports.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new report service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Markdown renders the markdown form of a forecast result.
func (s *Service) Markdown(result *schemas.ForecastResult) string {
	return BuildMarkdown(result)
}

// RenderPDF renders a forecast result into a PDF document.
func (s *Service) RenderPDF(result *schemas.ForecastResult) ([]byte, error) {
	markdown := BuildMarkdown(result)

	s.logger.Debug().
		Str("run_id", result.Metadata.RunID).
		Int("markdown_len", len(markdown)).
		Msg("Rendering forecast report PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(result.Metadata.Ticker+" Earnings Forecast", false)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "", bodyFontSize)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	writer := &pdfWriter{pdf: pdf, source: source}
	if err := writer.render(doc); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write report pdf: %w", err)
	}

	s.logger.Debug().
		Str("run_id", result.Metadata.RunID).
		Int("pdf_size", buf.Len()).
		Msg("Forecast report PDF generated")
	return buf.Bytes(), nil
}
