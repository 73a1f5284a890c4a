package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
)

// marketServer serves canned EOD bars and news, recording request paths.
type marketServer struct {
	*httptest.Server
	eodJSON    string
	newsJSON   string
	newsStatus int
	paths      []string
}

func newMarketServer(eodJSON, newsJSON string) *marketServer {
	ms := &marketServer{eodJSON: eodJSON, newsJSON: newsJSON, newsStatus: http.StatusOK}
	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ms.paths = append(ms.paths, r.URL.Path)
		switch {
		case strings.HasPrefix(r.URL.Path, "/eod/"):
			w.Write([]byte(ms.eodJSON))
		case r.URL.Path == "/news":
			if ms.newsStatus != http.StatusOK {
				http.Error(w, "news unavailable", ms.newsStatus)
				return
			}
			w.Write([]byte(ms.newsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	return ms
}

func newServiceForTest(t *testing.T, ms *marketServer, exchange string) *Service {
	t.Helper()
	t.Cleanup(ms.Close)
	return NewService(common.MarketConfig{
		APIKey:   "test-key",
		BaseURL:  ms.URL,
		Exchange: exchange,
	}, arbor.NewLogger())
}

// barsRelativeToNow builds an ascending three-bar series: one deep in
// the window, one inside the last month, one yesterday.
func barsRelativeToNow() string {
	now := time.Now().UTC()
	day := func(daysAgo int) string { return now.AddDate(0, 0, -daysAgo).Format("2006-01-02") }
	return fmt.Sprintf(`[
		{"date":%q,"open":100,"high":112,"low":98,"close":100,"adjusted_close":100,"volume":1000},
		{"date":%q,"open":108,"high":118,"low":96,"close":110,"adjusted_close":110,"volume":2000},
		{"date":%q,"open":118,"high":124,"low":117,"close":120,"adjusted_close":120,"volume":3000}
	]`, day(80), day(20), day(1))
}

const sampleNews = `[
	{"date":"2026-08-20 14:05:00","title":"TCS wins large deal","link":"https://example.com/1"},
	{"date":"2026-08-18","title":"IT sector outlook","link":"https://example.com/2"}
]`

func TestSnapshot_SummarizesBarsAndNews(t *testing.T) {
	ms := newMarketServer(barsRelativeToNow(), sampleNews)
	svc := newServiceForTest(t, ms, "NSE")

	snap, err := svc.Snapshot(context.Background(), "TCS", 2)
	require.NoError(t, err)

	assert.Equal(t, "TCS.NSE", snap.Symbol)
	assert.InDelta(t, 120.0, snap.Close, 0.001)
	assert.InDelta(t, 0.20, snap.WindowChange, 0.001, "move from the first to the last bar")
	assert.InDelta(t, (120.0-110.0)/110.0, snap.MonthChange, 0.001, "move from the first bar inside the last month")
	assert.InDelta(t, 124.0, snap.High, 0.001)
	assert.InDelta(t, 96.0, snap.Low, 0.001)
	assert.InDelta(t, 2000.0, snap.AvgVolume, 0.001)
	assert.Equal(t, []string{"TCS wins large deal", "IT sector outlook"}, snap.Headlines)
	assert.WithinDuration(t, time.Now().UTC(), snap.AsOf, time.Minute)

	assert.Contains(t, ms.paths, "/eod/TCS.NSE")
	assert.Contains(t, ms.paths, "/news")
}

func TestSnapshot_DefaultExchangeIsNSE(t *testing.T) {
	ms := newMarketServer(barsRelativeToNow(), `[]`)
	svc := newServiceForTest(t, ms, "")

	snap, err := svc.Snapshot(context.Background(), "INFY", 1)
	require.NoError(t, err)
	assert.Equal(t, "INFY.NSE", snap.Symbol)
}

func TestSnapshot_ExchangeQualifierOverridesDefault(t *testing.T) {
	ms := newMarketServer(barsRelativeToNow(), `[]`)
	svc := newServiceForTest(t, ms, "NSE")

	snap, err := svc.Snapshot(context.Background(), "NYSE:AAPL", 1)
	require.NoError(t, err)
	assert.Equal(t, "AAPL.US", snap.Symbol)
	assert.Contains(t, ms.paths, "/eod/AAPL.US")
}

func TestSnapshot_WindowScalesWithQuarters(t *testing.T) {
	var gotFrom string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/eod/") {
			gotFrom = r.URL.Query().Get("from")
			w.Write([]byte(barsRelativeToNow()))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	svc := NewService(common.MarketConfig{APIKey: "k", BaseURL: ts.URL}, arbor.NewLogger())
	_, err := svc.Snapshot(context.Background(), "TCS", 4)
	require.NoError(t, err)

	from, err := time.Parse("2006-01-02", gotFrom)
	require.NoError(t, err)
	expected := time.Now().UTC().AddDate(0, 0, -daysPerQuarter*4)
	assert.WithinDuration(t, expected, from, 48*time.Hour)
}

func TestSnapshot_NoPriceHistoryIsAnError(t *testing.T) {
	ms := newMarketServer(`[]`, sampleNews)
	svc := newServiceForTest(t, ms, "NSE")

	_, err := svc.Snapshot(context.Background(), "TCS", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price history for TCS.NSE")
}

func TestSnapshot_EODErrorPropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer ts.Close()

	svc := NewService(common.MarketConfig{APIKey: "k", BaseURL: ts.URL}, arbor.NewLogger())
	_, err := svc.Snapshot(context.Background(), "TCS", 2)
	require.Error(t, err)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "price history for TCS.NSE")
}

func TestSnapshot_NewsFailureIsTolerated(t *testing.T) {
	ms := newMarketServer(barsRelativeToNow(), `[]`)
	ms.newsStatus = http.StatusInternalServerError
	svc := newServiceForTest(t, ms, "NSE")

	snap, err := svc.Snapshot(context.Background(), "TCS", 2)
	require.NoError(t, err, "headlines are supplementary, price history is not")
	assert.Empty(t, snap.Headlines)
	assert.InDelta(t, 120.0, snap.Close, 0.001)
}
