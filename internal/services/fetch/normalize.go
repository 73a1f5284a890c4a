package fetch

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdplugin "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/services/extraction"
)

var (
	quarterRe = regexp.MustCompile(`(?i)q\s*([1-4])|quarter\s*([1-4])`)
	yearRe    = regexp.MustCompile(`(?i)(20\d{2}[-_]?\d{2})|fy\s*'?(\d{2,4}(?:[-_]\d{2})?)`)

	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// buildDocument turns one fetched payload into a normalized source
// document: format sniffed, text layer extracted, reporting period
// detected from whatever carries it (link text, filename, content).
func buildDocument(kind, source, rawURL string, body []byte, contentType, linkText string) *models.SourceDocument {
	doc := &models.SourceDocument{
		ID:        CacheKey(rawURL),
		Kind:      kind,
		Source:    source,
		SourceURL: rawURL,
		Content:   body,
	}

	switch {
	case isPDFPayload(body, contentType, rawURL):
		doc.FormatHint = models.FormatPDF
		if txt, err := extraction.PDFText(body); err == nil && strings.TrimSpace(txt) != "" {
			doc.Text = txt
		} else {
			// No text layer: a scanned or image-built PDF. The OCR
			// strategy handles these downstream.
			doc.FormatHint = models.FormatImagePDF
		}
	case isHTMLPayload(body, contentType):
		doc.FormatHint = models.FormatHTML
		doc.Text = htmlToText(string(body))
	case isMarkdownPayload(contentType, rawURL):
		doc.FormatHint = models.FormatMarkdown
		doc.Text = markdownToText(body)
	default:
		doc.FormatHint = models.FormatText
		doc.Text = cleanWhitespace(string(body))
	}

	doc.Period = detectPeriod(linkText, baseNameOf(rawURL), firstChars(doc.Text, 2000))
	return doc
}

func isPDFPayload(body []byte, contentType, rawURL string) bool {
	if bytes.HasPrefix(body, []byte("%PDF")) {
		return true
	}
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return isPDFLink(rawURL)
}

func isHTMLPayload(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(body[:min(len(body), 512)])
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype"))
}

func isMarkdownPayload(contentType, rawURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "markdown") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(rawURL), ".md")
}

// isPDFLink reports whether a URL points at a PDF, ignoring query
// parameters.
func isPDFLink(rawURL string) bool {
	trimmed := rawURL
	if idx := strings.IndexByte(trimmed, '?'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".pdf")
}

// htmlToText strips boilerplate and scripts from an HTML page and
// returns cleaned plain text.
func htmlToText(rawHTML string) string {
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return cleanWhitespace(rawHTML)
	}

	body := gq.Find("body")
	if body.Length() == 0 {
		return cleanWhitespace(gq.Text())
	}

	body.Find("script, style, noscript").Remove()
	body.Find("nav, header, footer, aside").Remove()

	return cleanWhitespace(body.Text())
}

// htmlToMarkdown converts a page to markdown, preserving table
// structure for the extraction chain.
func htmlToMarkdown(baseURL, rawHTML string) (string, error) {
	converter := md.NewConverter(baseURL, true, nil)
	converter.Use(mdplugin.Table())
	markdown, err := converter.ConvertString(rawHTML)
	if err != nil {
		return "", fmt.Errorf("html to markdown conversion failed: %w", err)
	}
	return markdown, nil
}

// markdownToText flattens markdown to plain text by walking the parse
// tree and collecting text segments.
func markdownToText(source []byte) string {
	parserMD := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := parserMD.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, blocky := n.(*ast.Paragraph); blocky || n.Kind() == ast.KindHeading {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	return cleanWhitespace(sb.String())
}

// detectPeriod scans candidate strings for quarter and fiscal-year
// markers and renders a compact period label, e.g. "Q2 FY2023-24".
// Earlier candidates win; link text is more reliable than page noise.
func detectPeriod(candidates ...string) string {
	var quarter, year string
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if quarter == "" {
			if m := quarterRe.FindStringSubmatch(candidate); m != nil {
				if m[1] != "" {
					quarter = m[1]
				} else {
					quarter = m[2]
				}
			}
		}
		if year == "" {
			if m := yearRe.FindStringSubmatch(candidate); m != nil {
				if m[1] != "" {
					year = m[1]
				} else {
					year = m[2]
				}
				year = strings.ReplaceAll(year, "_", "-")
			}
		}
		if quarter != "" && year != "" {
			break
		}
	}

	switch {
	case quarter != "" && year != "":
		return fmt.Sprintf("Q%s FY%s", quarter, year)
	case year != "":
		return "FY" + year
	case quarter != "":
		return "Q" + quarter
	}
	return ""
}

func cleanWhitespace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func firstChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
