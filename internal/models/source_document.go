package models

import "strings"

const (
	// DocumentKindReport marks quarterly/annual financial reports.
	DocumentKindReport = "report"
	// DocumentKindTranscript marks earnings-call transcripts.
	DocumentKindTranscript = "transcript"
)

// Format hints describing how a document's raw content should be read.
const (
	FormatPDF      = "pdf"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatImagePDF = "image-pdf" // scanned PDF with no extractable text layer
)

// SourceDocument is one gathered input document. Owned by the pipeline
// run for its lifetime; never mutated after gathering, only read.
type SourceDocument struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"` // report or transcript
	Content    []byte `json:"-"`    // raw payload (PDF bytes, HTML, ...)
	Text       string `json:"-"`    // normalized plain text, empty for image-only docs
	FormatHint string `json:"format_hint"`
	SourceURL  string `json:"source_url,omitempty"`
	Source     string `json:"source"` // source identifier from the RunRequest
	Period     string `json:"period,omitempty"` // reporting period, e.g. "Q3FY26"
	OCRText    string `json:"-"`    // pre-supplied OCR transcript for image docs
}

// HasTextLayer reports whether the document carries extractable text.
// Image-only documents require the OCR fallback strategy.
func (d *SourceDocument) HasTextLayer() bool {
	return d.FormatHint != FormatImagePDF && strings.TrimSpace(d.Text) != ""
}
