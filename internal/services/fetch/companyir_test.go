package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

func newCompanyIRForTest(t *testing.T, irPages map[string]string) *CompanyIRFetcher {
	t.Helper()
	logger := arbor.NewLogger()
	cache, err := NewDiskCache(t.TempDir(), logger)
	require.NoError(t, err)
	httpc := newHTTPClient(common.FetchConfig{
		RequestTimeout: "5s",
		MaxAttempts:    2,
		RetryDelay:     "1ms",
		RateLimit:      "0s",
	}, logger)
	return NewCompanyIRFetcher(httpc, cache, nil, irPages, logger)
}

func pdfPayload(size int) []byte {
	payload := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{'x'}, size)...)
	return payload[:size]
}

func irPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ir":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>
<a href="/ir/q1.pdf">Q1 FY25 Consolidated Results</a>
<a href="/ir/q2.pdf">Q2 FY25 Consolidated Results</a>
<a href="/ir/q3.pdf">Q3 FY25 Consolidated Results</a>
</body></html>`))
		case "/ir/q1.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdfPayload(1500))
		case "/ir/q2.pdf":
			// Placeholder linked for a quarter whose results are not out yet.
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdfPayload(400))
		case "/ir/q3.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdfPayload(2000))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCompanyIR_SkipsPlaceholdersAndStopsAtDepth(t *testing.T) {
	srv := irPageServer(t)
	defer srv.Close()

	f := newCompanyIRForTest(t, map[string]string{"TCS": srv.URL + "/ir"})
	docs, err := f.Fetch(context.Background(), interfaces.FetchRequest{Ticker: "tcs", Kind: models.DocumentKindReport, Quarters: 2})
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "Q1 FY25", docs[0].Period)
	assert.Equal(t, "Q3 FY25", docs[1].Period)
	for _, doc := range docs {
		assert.Equal(t, models.DocumentKindReport, doc.Kind)
		assert.Equal(t, SourceCompanyIR, doc.Source)
		assert.GreaterOrEqual(t, len(doc.Content), 1000)
	}
}

func TestCompanyIR_SilentWhenNotApplicable(t *testing.T) {
	f := newCompanyIRForTest(t, map[string]string{"TCS": "http://127.0.0.1:1/ir"})

	docs, err := f.Fetch(context.Background(), interfaces.FetchRequest{Ticker: "TCS", Kind: models.DocumentKindTranscript, Quarters: 3})
	require.NoError(t, err)
	assert.Nil(t, docs, "transcripts are not served from IR pages")

	docs, err = f.Fetch(context.Background(), interfaces.FetchRequest{Ticker: "INFY", Kind: models.DocumentKindReport, Quarters: 3})
	require.NoError(t, err)
	assert.Nil(t, docs, "tickers without a configured IR page yield nothing")
}

func TestCompanyIR_ReplaysFromCacheWhenSiteDown(t *testing.T) {
	srv := irPageServer(t)

	f := newCompanyIRForTest(t, map[string]string{"TCS": srv.URL + "/ir"})
	req := interfaces.FetchRequest{Ticker: "TCS", Kind: models.DocumentKindReport, Quarters: 2}

	live, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, live, 2)

	srv.Close()

	replayed, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, replayed, 2)
	assert.Equal(t, live[0].ID, replayed[0].ID)
	assert.Equal(t, live[0].Content, replayed[0].Content)
	assert.Equal(t, live[1].ID, replayed[1].ID)
}

func TestParsePDFAnchors_ResolvesAgainstPage(t *testing.T) {
	html := `<html><body>
<a href="docs/q4.pdf">Q4 FY25 Results</a>
<a href="docs/q4.pdf">Q4 FY25 Results (duplicate)</a>
<a href="/static/style.css">Stylesheet</a>
</body></html>`

	links := parsePDFAnchors(html, "https://ir.example.com/investors/")

	require.Len(t, links, 1)
	assert.Equal(t, "https://ir.example.com/investors/docs/q4.pdf", links[0].href)
	assert.Equal(t, 4, links[0].score)
}
