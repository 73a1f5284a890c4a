// -----------------------------------------------------------------------
// OCR strategy - last resort for scanned documents with no text layer
// Shells out to tesseract when installed, otherwise consumes text a
// caller recognized upstream
// -----------------------------------------------------------------------

package extraction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/models"
)

// OCRCeiling caps confidence for metrics recognized by OCR.
const OCRCeiling = 0.6

// ocrMaxPages bounds how many pages get recognized, OCR is slow.
const ocrMaxPages = 5

// OCRStrategy recognizes text from image-only documents and runs the
// same label patterns as the text strategy over the result.
type OCRStrategy struct {
	text   *TextStrategy
	logger arbor.ILogger
}

// NewOCRStrategy creates the OCR extraction strategy.
func NewOCRStrategy(vocab *Vocabulary, logger arbor.ILogger) *OCRStrategy {
	return &OCRStrategy{
		text:   NewTextStrategy(vocab, logger),
		logger: logger,
	}
}

// Name identifies the strategy in metric provenance and traces.
func (s *OCRStrategy) Name() string { return models.StrategyOCR }

// Ceiling is the maximum confidence this strategy may emit.
func (s *OCRStrategy) Ceiling() float64 { return OCRCeiling }

// Available reports whether a tesseract binary is on PATH. Documents
// carrying pre-recognized text work without one.
func Available() bool {
	_, err := exec.LookPath("tesseract")
	return err == nil
}

// Extract recognizes the document and parses metrics from the result.
// Documents that already carry a text layer are skipped; OCR is strictly
// for scans. Pre-recognized text on the document takes priority over
// running tesseract.
func (s *OCRStrategy) Extract(ctx context.Context, doc *models.SourceDocument) ([]models.ExtractedMetric, error) {
	if doc.Text != "" {
		return nil, nil
	}

	text := doc.OCRText
	if text == "" && len(doc.Content) > 0 {
		recognized, err := s.recognize(ctx, doc.Content)
		if err != nil {
			s.logger.Debug().Err(err).Str("document_id", doc.ID).Msg("OCR recognition failed")
			return nil, nil
		}
		text = recognized
	}
	if text == "" {
		return nil, nil
	}

	metrics := s.text.ExtractFromText(text, doc)
	for i := range metrics {
		metrics[i].Strategy = models.StrategyOCR
		metrics[i].Confidence = OCRCeiling
	}
	return metrics, nil
}

// recognize extracts page images from the PDF and feeds each through
// tesseract, concatenating recognized text in page order.
func (s *OCRStrategy) recognize(ctx context.Context, content []byte) (string, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", fmt.Errorf("tesseract not installed: %w", err)
	}

	workDir := filepath.Join(os.TempDir(), "augur-ocr", uuid.New().String()[:8])
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	pdfFile := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(pdfFile, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(pdfFile, workDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract page images: %w", err)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", fmt.Errorf("failed to list page images: %w", err)
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			images = append(images, entry.Name())
		}
	}
	sort.Strings(images)
	if len(images) > ocrMaxPages {
		images = images[:ocrMaxPages]
	}

	var builder strings.Builder
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		outBase := filepath.Join(workDir, img+"_out")
		cmd := exec.CommandContext(ctx, "tesseract", filepath.Join(workDir, img), outBase)
		if out, err := cmd.CombinedOutput(); err != nil {
			s.logger.Debug().Err(err).Str("image", img).Str("output", string(out)).Msg("tesseract failed on page image")
			continue
		}
		data, err := os.ReadFile(outBase + ".txt")
		if err != nil {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.Write(data)
	}

	return builder.String(), nil
}

var _ extractionStrategy = (*OCRStrategy)(nil)
