package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/app"
	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/handlers"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
	"github.com/ternarybob/augur/internal/services/events"
	"github.com/ternarybob/augur/internal/services/report"
)

// stubForecastService answers every forecast call with fixed data
type stubForecastService struct{}

func (s *stubForecastService) Submit(ctx context.Context, req models.RunRequest) (string, error) {
	return "run-7", nil
}

func (s *stubForecastService) Status(ctx context.Context, runID string) (*models.RequestRecord, error) {
	return &models.RequestRecord{
		RunID:  runID,
		Ticker: "TCS",
		Status: models.RequestStatusRunning,
		State:  models.StateGathering,
		Mode:   models.ModeFull,
	}, nil
}

func (s *stubForecastService) Result(ctx context.Context, runID string) (*schemas.ForecastResult, error) {
	return schemas.NewForecastResult("TCS", runID, 4), nil
}

func (s *stubForecastService) Capabilities(ctx context.Context) []interfaces.Capability {
	return []interfaces.Capability{{Name: "model:mock", Available: true}}
}

// stubStore backs the list, trace and report routes
type stubStore struct{}

func (s *stubStore) SaveRequest(ctx context.Context, rec *models.RequestRecord) error { return nil }

func (s *stubStore) UpdateRequestStatus(ctx context.Context, runID, status string, state models.RunState, mode string, runErr error) error {
	return nil
}

func (s *stubStore) GetRequest(ctx context.Context, runID string) (*models.RequestRecord, error) {
	return nil, interfaces.ErrNotFound
}

func (s *stubStore) ListRequests(ctx context.Context, ticker string, limit int) ([]*models.RequestRecord, error) {
	return []*models.RequestRecord{
		{RunID: "run-7", Ticker: "TCS", Status: models.RequestStatusCompleted},
		{RunID: "run-6", Ticker: "TCS", Status: models.RequestStatusFailed},
	}, nil
}

func (s *stubStore) SaveResult(ctx context.Context, runID string, result *schemas.ForecastResult) error {
	return nil
}

func (s *stubStore) GetResult(ctx context.Context, runID string) (*schemas.ForecastResult, error) {
	return schemas.NewForecastResult("TCS", runID, 4), nil
}

func (s *stubStore) SaveTrace(ctx context.Context, runID string, traceEvents []models.TraceEvent) error {
	return nil
}

func (s *stubStore) GetTrace(ctx context.Context, runID string) ([]*models.TraceRecord, error) {
	return []*models.TraceRecord{
		{ID: runID + "/0001", RunID: runID, Seq: 1, Stage: models.StateGathering, Kind: models.TraceTransition, Detail: "run accepted"},
	}, nil
}

func (s *stubStore) Close() error { return nil }

func newServerForTest(t *testing.T) *Server {
	t.Helper()
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	t.Cleanup(func() { eventService.Close() })

	service := &stubForecastService{}
	store := &stubStore{}

	application := &app.App{
		Config:          common.NewDefaultConfig(),
		Logger:          logger,
		Store:           store,
		EventService:    eventService,
		ReportService:   report.NewService(logger),
		APIHandler:      handlers.NewAPIHandler(service, logger),
		ForecastHandler: handlers.NewForecastHandler(service, store, logger),
		ReportHandler:   handlers.NewReportHandler(store, report.NewService(logger), logger),
		WSHandler:       handlers.NewWebSocketHandler(eventService, logger),
	}
	return New(application)
}

func serve(t *testing.T, srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_HealthThroughMiddleware(t *testing.T) {
	srv := newServerForTest(t)

	rec := serve(t, srv, "GET", "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRoutes_PreflightShortCircuits(t *testing.T) {
	srv := newServerForTest(t)

	rec := serve(t, srv, "OPTIONS", "/api/forecast", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, rec.Body.String())
}

func TestRoutes_ForecastDispatch(t *testing.T) {
	srv := newServerForTest(t)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		expected int
		contains string
	}{
		{"submit", "POST", "/api/forecast", `{"ticker":"TCS","quarters":4,"sources":["screener"]}`, http.StatusAccepted, `"run_id":"run-7"`},
		{"list", "GET", "/api/forecast", "", http.StatusOK, `"count":2`},
		{"status", "GET", "/api/forecast/run-7", "", http.StatusOK, `"state":"gathering"`},
		{"trace", "GET", "/api/forecast/run-7/trace", "", http.StatusOK, `"detail":"run accepted"`},
		{"result", "GET", "/api/forecast/run-7/result", "", http.StatusOK, `"ticker":"TCS"`},
		{"markdown report", "GET", "/api/forecast/run-7/report?format=markdown", "", http.StatusOK, "# TCS Earnings Forecast"},
		{"capabilities", "GET", "/api/capabilities", "", http.StatusOK, `"model:mock"`},
		{"schema", "GET", "/api/schema/forecast", "", http.StatusOK, `"ForecastResult"`},
		{"collection rejects delete", "DELETE", "/api/forecast", "", http.StatusMethodNotAllowed, ""},
		{"unknown api path", "GET", "/api/bogus", "", http.StatusNotFound, `"/api/bogus"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, srv, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.expected, rec.Code)
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestRecoveryMiddleware_CatchesPanics(t *testing.T) {
	srv := newServerForTest(t)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/anything", nil)
	srv.recoveryMiddleware(panicking).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShutdownHandler(t *testing.T) {
	t.Run("requires POST", func(t *testing.T) {
		srv := newServerForTest(t)
		rec := serve(t, srv, "GET", "/api/shutdown", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("unavailable without channel", func(t *testing.T) {
		srv := newServerForTest(t)
		rec := serve(t, srv, "POST", "/api/shutdown", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("disabled in production", func(t *testing.T) {
		srv := newServerForTest(t)
		srv.app.Config.Environment = "production"
		srv.SetShutdownChannel(make(chan struct{}, 1))

		rec := serve(t, srv, "POST", "/api/shutdown", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("signals shutdown channel", func(t *testing.T) {
		srv := newServerForTest(t)
		ch := make(chan struct{}, 1)
		srv.SetShutdownChannel(ch)

		rec := serve(t, srv, "POST", "/api/shutdown", "")
		require.Equal(t, http.StatusAccepted, rec.Code)

		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("shutdown signal never arrived")
		}
	})
}
