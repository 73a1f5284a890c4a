package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// screenerCompanyURL is the consolidated-figures page for a ticker.
const screenerCompanyURL = "https://www.screener.in/company/%s/consolidated/"

// minTranscriptChars rejects navigation shells masquerading as
// transcript pages.
const minTranscriptChars = 200

// transcriptMarkers flag anchors that lead to earnings-call material.
var transcriptMarkers = []string{
	"transcript",
	"earnings call",
	"concall",
	"conference call",
	"management commentary",
	"transcribed",
}

// pdfLink is one scored document anchor found on the company page.
type pdfLink struct {
	href  string
	text  string
	score int
}

// ScreenerFetcher pulls quarterly report PDFs and earnings-call
// transcripts from a company's screener.in page.
type ScreenerFetcher struct {
	http     *httpClient
	cache    *DiskCache
	renderer *Renderer // nil when browser fallback is disabled
	logger   arbor.ILogger
}

// NewScreenerFetcher wires the screener source.
func NewScreenerFetcher(http *httpClient, cache *DiskCache, renderer *Renderer, logger arbor.ILogger) *ScreenerFetcher {
	return &ScreenerFetcher{
		http:     http,
		cache:    cache,
		renderer: renderer,
		logger:   logger,
	}
}

// Fetch gathers documents of one kind for a ticker. Reports are the
// best-scored PDF anchors on the page; transcripts are anchors whose
// text or target looks like call material.
func (f *ScreenerFetcher) Fetch(ctx context.Context, req interfaces.FetchRequest) ([]*models.SourceDocument, error) {
	pageURL := fmt.Sprintf(screenerCompanyURL, strings.ToUpper(req.Ticker))

	html, err := f.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse company page: %w", err)
	}

	switch req.Kind {
	case models.DocumentKindReport:
		return f.fetchReports(ctx, gq, pageURL, req)
	case models.DocumentKindTranscript:
		return f.fetchTranscripts(ctx, gq, pageURL, req)
	default:
		return nil, fmt.Errorf("unknown document kind %q", req.Kind)
	}
}

// fetchPage gets the company page, serving the cached copy when the
// site is down and falling back to browser rendering when plain HTTP
// returns a script-only shell.
func (f *ScreenerFetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	result, err := f.http.Get(ctx, pageURL)
	if err == nil {
		if err := f.cache.Put(pageURL, result.ContentType, result.Body); err != nil {
			f.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to cache company page")
		}
		html := string(result.Body)
		if pageHasAnchors(html) || f.renderer == nil {
			return html, nil
		}
		f.logger.Debug().Str("url", pageURL).Msg("Static page carried no anchors, rendering with browser")
		if rendered, rerr := f.renderer.Render(ctx, pageURL); rerr == nil {
			return rendered, nil
		}
		return html, nil
	}

	if body, _, ok := f.cache.Get(pageURL); ok {
		f.logger.Warn().
			Err(err).
			Str("url", pageURL).
			Msg("Company page unreachable, serving cached copy")
		return string(body), nil
	}

	if f.renderer != nil {
		if rendered, rerr := f.renderer.Render(ctx, pageURL); rerr == nil {
			return rendered, nil
		}
	}

	return "", fmt.Errorf("company page %s unavailable: %w", pageURL, err)
}

func (f *ScreenerFetcher) fetchReports(ctx context.Context, gq *goquery.Document, pageURL string, req interfaces.FetchRequest) ([]*models.SourceDocument, error) {
	links := collectPDFLinks(gq, pageURL)
	sort.SliceStable(links, func(i, j int) bool { return links[i].score > links[j].score })

	// Over-fetch relative to the requested depth: some anchors point at
	// duplicates or dead files.
	budget := req.Quarters * 2
	if budget < 6 {
		budget = 6
	}
	if len(links) > budget {
		links = links[:budget]
	}

	docs := make([]*models.SourceDocument, 0, req.Quarters)
	for _, link := range links {
		if len(docs) >= req.Quarters {
			break
		}
		doc, err := f.download(ctx, models.DocumentKindReport, link.href, link.text)
		if err != nil {
			if ctx.Err() != nil {
				return docs, ctx.Err()
			}
			f.logger.Debug().Err(err).Str("url", link.href).Msg("Report download failed, trying next anchor")
			continue
		}
		docs = append(docs, doc)
	}

	f.logger.Info().
		Str("ticker", req.Ticker).
		Int("anchors", len(links)).
		Int("documents", len(docs)).
		Msg("Gathered report documents from screener")
	return docs, nil
}

func (f *ScreenerFetcher) fetchTranscripts(ctx context.Context, gq *goquery.Document, pageURL string, req interfaces.FetchRequest) ([]*models.SourceDocument, error) {
	candidates := collectTranscriptLinks(gq, pageURL)

	limit := req.Quarters - 1
	if limit < 1 {
		limit = 1
	}

	docs := make([]*models.SourceDocument, 0, limit)
	for _, link := range candidates {
		if len(docs) >= limit {
			break
		}

		var doc *models.SourceDocument
		var err error
		if isPDFLink(link.href) {
			doc, err = f.download(ctx, models.DocumentKindTranscript, link.href, link.text)
		} else {
			doc, err = f.fetchTranscriptPage(ctx, link.href, link.text)
		}
		if err != nil {
			if ctx.Err() != nil {
				return docs, ctx.Err()
			}
			f.logger.Debug().Err(err).Str("url", link.href).Msg("Transcript fetch failed, trying next candidate")
			continue
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}

	f.logger.Info().
		Str("ticker", req.Ticker).
		Int("candidates", len(candidates)).
		Int("documents", len(docs)).
		Msg("Gathered transcript documents from screener")
	return docs, nil
}

// download fetches one document payload, cache-first on failure, and
// normalizes it.
func (f *ScreenerFetcher) download(ctx context.Context, kind, rawURL, linkText string) (*models.SourceDocument, error) {
	result, err := f.http.Get(ctx, rawURL)
	if err != nil {
		body, contentType, ok := f.cache.Get(rawURL)
		if !ok {
			return nil, err
		}
		f.logger.Debug().Str("url", rawURL).Msg("Serving document from cache after fetch failure")
		return buildDocument(kind, SourceScreener, rawURL, body, contentType, linkText), nil
	}

	if err := f.cache.Put(rawURL, result.ContentType, result.Body); err != nil {
		f.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to cache document")
	}
	return buildDocument(kind, SourceScreener, rawURL, result.Body, result.ContentType, linkText), nil
}

// fetchTranscriptPage pulls a non-PDF transcript target and keeps it
// when it carries enough body text to be a real transcript.
func (f *ScreenerFetcher) fetchTranscriptPage(ctx context.Context, rawURL, linkText string) (*models.SourceDocument, error) {
	result, err := f.http.Get(ctx, rawURL)
	if err != nil {
		body, contentType, ok := f.cache.Get(rawURL)
		if !ok {
			return nil, err
		}
		result = &fetchResult{Body: body, ContentType: contentType}
	} else if cerr := f.cache.Put(rawURL, result.ContentType, result.Body); cerr != nil {
		f.logger.Warn().Err(cerr).Str("url", rawURL).Msg("Failed to cache transcript page")
	}

	rawHTML := string(result.Body)
	text := htmlToText(rawHTML)
	if len(text) < minTranscriptChars {
		return nil, nil
	}

	doc := &models.SourceDocument{
		ID:         CacheKey(rawURL),
		Kind:       models.DocumentKindTranscript,
		Source:     SourceScreener,
		SourceURL:  rawURL,
		Text:       text,
		FormatHint: models.FormatMarkdown,
	}
	if markdown, merr := htmlToMarkdown(rawURL, rawHTML); merr == nil {
		doc.Content = []byte(markdown)
	} else {
		doc.Content = []byte(text)
		doc.FormatHint = models.FormatText
	}
	doc.Period = detectPeriod(linkText, baseNameOf(rawURL), firstChars(text, 2000))
	return doc, nil
}

// collectPDFLinks finds and scores PDF anchors. Quarterly results rank
// above annual reports; plain attachments rank last.
func collectPDFLinks(gq *goquery.Document, pageURL string) []pdfLink {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []pdfLink

	gq.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		full := resolveURL(base, href)
		if full == "" || !isPDFLink(full) || seen[full] {
			return
		}
		seen[full] = true

		text := strings.TrimSpace(sel.Text())
		links = append(links, pdfLink{href: full, text: text, score: scorePDFLink(text)})
	})

	return links
}

// scorePDFLink prefers quarterly consolidated results over everything
// else on the page.
func scorePDFLink(text string) int {
	lower := strings.ToLower(text)
	score := 0
	if strings.Contains(lower, "quarter") || strings.Contains(lower, "q") {
		score += 2
	}
	if strings.Contains(lower, "results") || strings.Contains(lower, "consolidated") {
		score += 2
	}
	if strings.Contains(lower, "annual") {
		score--
	}
	return score
}

// collectTranscriptLinks finds anchors that look like earnings-call
// material by anchor text or link target.
func collectTranscriptLinks(gq *goquery.Document, pageURL string) []pdfLink {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []pdfLink

	gq.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		full := resolveURL(base, href)
		if full == "" || seen[full] {
			return
		}

		text := strings.TrimSpace(sel.Text())
		if !looksLikeTranscript(text) && !transcriptTarget(full) {
			return
		}
		seen[full] = true
		links = append(links, pdfLink{href: full, text: text})
	})

	return links
}

func looksLikeTranscript(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range transcriptMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func transcriptTarget(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "transcript") ||
		strings.Contains(lower, "concall") ||
		strings.Contains(lower, "conference-call")
}

// resolveURL absolutizes an href against the page URL, skipping
// non-document links.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// pageHasAnchors is the cheap signal that static HTML was enough.
func pageHasAnchors(html string) bool {
	return strings.Contains(strings.ToLower(html), "<a ")
}

var _ interfaces.DocumentFetcher = (*ScreenerFetcher)(nil)
