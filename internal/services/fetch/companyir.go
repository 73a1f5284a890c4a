package fetch

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// CompanyIRFetcher pulls result PDFs straight from a company's investor
// relations page. IR pages are configured per ticker; a ticker without
// one simply yields nothing from this source. Transcripts are not
// served here, they come from screener's anchor scan.
type CompanyIRFetcher struct {
	http     *httpClient
	cache    *DiskCache
	renderer *Renderer // nil when browser fallback is disabled
	irPages  map[string]string
	logger   arbor.ILogger
}

// NewCompanyIRFetcher wires the company-ir source.
func NewCompanyIRFetcher(http *httpClient, cache *DiskCache, renderer *Renderer, irPages map[string]string, logger arbor.ILogger) *CompanyIRFetcher {
	return &CompanyIRFetcher{
		http:     http,
		cache:    cache,
		renderer: renderer,
		irPages:  irPages,
		logger:   logger,
	}
}

// Fetch gathers report PDFs from the ticker's IR page. IR pages are
// frequently script-rendered, so the browser fallback kicks in when
// static HTML carries no PDF anchors.
func (f *CompanyIRFetcher) Fetch(ctx context.Context, req interfaces.FetchRequest) ([]*models.SourceDocument, error) {
	if req.Kind != models.DocumentKindReport {
		return nil, nil
	}

	pageURL, ok := f.irPages[strings.ToUpper(req.Ticker)]
	if !ok {
		f.logger.Debug().
			Str("ticker", req.Ticker).
			Msg("No IR page configured for ticker, skipping company-ir source")
		return nil, nil
	}

	links, err := f.findPDFLinks(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	docs := make([]*models.SourceDocument, 0, req.Quarters)
	for _, link := range links {
		if len(docs) >= req.Quarters {
			break
		}
		doc, err := f.download(ctx, link.href, link.text)
		if err != nil {
			if ctx.Err() != nil {
				return docs, ctx.Err()
			}
			f.logger.Debug().Err(err).Str("url", link.href).Msg("IR document download failed, trying next anchor")
			continue
		}
		// IR pages link tiny placeholder PDFs for unreleased quarters.
		if len(doc.Content) < 1000 {
			continue
		}
		docs = append(docs, doc)
	}

	f.logger.Info().
		Str("ticker", req.Ticker).
		Int("anchors", len(links)).
		Int("documents", len(docs)).
		Msg("Gathered report documents from company IR page")
	return docs, nil
}

// findPDFLinks parses the IR page for PDF anchors, rendering with the
// browser when the static page shows none.
func (f *CompanyIRFetcher) findPDFLinks(ctx context.Context, pageURL string) ([]pdfLink, error) {
	html, err := f.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	links := parsePDFAnchors(html, pageURL)
	if len(links) == 0 && f.renderer != nil {
		f.logger.Debug().Str("url", pageURL).Msg("No PDF anchors in static IR page, rendering with browser")
		if rendered, rerr := f.renderer.Render(ctx, pageURL); rerr == nil {
			links = parsePDFAnchors(rendered, pageURL)
		}
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].score > links[j].score })
	return links, nil
}

func (f *CompanyIRFetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	result, err := f.http.Get(ctx, pageURL)
	if err == nil {
		if cerr := f.cache.Put(pageURL, result.ContentType, result.Body); cerr != nil {
			f.logger.Warn().Err(cerr).Str("url", pageURL).Msg("Failed to cache IR page")
		}
		return string(result.Body), nil
	}
	if body, _, ok := f.cache.Get(pageURL); ok {
		f.logger.Warn().Err(err).Str("url", pageURL).Msg("IR page unreachable, serving cached copy")
		return string(body), nil
	}
	return "", err
}

func (f *CompanyIRFetcher) download(ctx context.Context, rawURL, linkText string) (*models.SourceDocument, error) {
	result, err := f.http.Get(ctx, rawURL)
	if err != nil {
		body, contentType, ok := f.cache.Get(rawURL)
		if !ok {
			return nil, err
		}
		return buildDocument(models.DocumentKindReport, SourceCompanyIR, rawURL, body, contentType, linkText), nil
	}

	if cerr := f.cache.Put(rawURL, result.ContentType, result.Body); cerr != nil {
		f.logger.Warn().Err(cerr).Str("url", rawURL).Msg("Failed to cache IR document")
	}
	return buildDocument(models.DocumentKindReport, SourceCompanyIR, rawURL, result.Body, result.ContentType, linkText), nil
}

// parsePDFAnchors extracts scored PDF anchors from raw HTML.
func parsePDFAnchors(html, pageURL string) []pdfLink {
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
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

var _ interfaces.DocumentFetcher = (*CompanyIRFetcher)(nil)
