// Package agent hosts the forecast coordinator: the state machine that
// drives a run from request to validated forecast. The coordinator owns
// run lifecycle, degradation decisions and bounded error recovery; the
// tools it calls (fetchers, extraction chain, analyzer, model client)
// stay policy-free.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/schemas"
	"github.com/ternarybob/augur/internal/services/extraction"
	"github.com/ternarybob/augur/internal/services/qualitative"
	"github.com/ternarybob/augur/internal/services/synthesis"
)

// healthProbeTimeout bounds backend health checks on the capability surface.
const healthProbeTimeout = 5 * time.Second

// Deps carries everything a Coordinator needs. All fields are required
// unless noted; Events may be nil when no subscriber surface exists and
// Market may be nil when no market data provider is configured.
type Deps struct {
	Config    *common.Config
	Client    interfaces.ModelClient
	Embedder  interfaces.Embedder
	Extractor *extraction.Chain
	Analyzer  *qualitative.Analyzer
	Fetchers  map[string]interfaces.DocumentFetcher
	Market    interfaces.MarketDataProvider
	Store     interfaces.ForecastStore
	Events    interfaces.RunEventSink
	Logger    arbor.ILogger
}

// Coordinator implements interfaces.ForecastService. One instance
// serves all runs; per-run state lives in models.RunContext.
type Coordinator struct {
	config    *common.Config
	client    interfaces.ModelClient
	embedder  interfaces.Embedder
	extractor *extraction.Chain
	analyzer  *qualitative.Analyzer
	fetchers  map[string]interfaces.DocumentFetcher
	market    interfaces.MarketDataProvider
	synth     *synthesis.Synthesizer
	store     interfaces.ForecastStore
	events    interfaces.RunEventSink
	logger    arbor.ILogger

	mu   sync.RWMutex
	runs map[string]*models.RunContext
}

// NewCoordinator wires a Coordinator from its dependencies.
func NewCoordinator(deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Coordinator{
		config:    deps.Config,
		client:    deps.Client,
		embedder:  deps.Embedder,
		extractor: deps.Extractor,
		analyzer:  deps.Analyzer,
		fetchers:  deps.Fetchers,
		market:    deps.Market,
		synth:     synthesis.NewSynthesizer(logger, deps.Analyzer.Lexicon().RiskThemes),
		store:     deps.Store,
		events:    deps.Events,
		logger:    logger,
		runs:      make(map[string]*models.RunContext),
	}
}

// Submit validates the request, persists a pending record and starts
// the pipeline in the background. It returns the run ID immediately;
// progress is observable through Status and the event sink.
func (c *Coordinator) Submit(ctx context.Context, req models.RunRequest) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	rc := models.NewRunContext(req, c.config.Pipeline.Budget())

	rec := &models.RequestRecord{
		RunID:         rc.RunID,
		Ticker:        req.Ticker,
		Quarters:      req.QuarterCount,
		Sources:       req.Sources,
		IncludeMarket: req.IncludeMarket,
		Status:        models.RequestStatusPending,
		State:         models.StateIdle,
		Mode:          models.ModeFull,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := c.store.SaveRequest(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to persist run request: %w", err)
	}

	c.mu.Lock()
	c.runs[rc.RunID] = rc
	c.mu.Unlock()

	c.logger.Info().
		Str("run_id", rc.RunID).
		Str("ticker", req.Ticker).
		Int("quarters", req.QuarterCount).
		Msg("Forecast run accepted")

	common.SafeGo(c.logger, "forecast-run", func() {
		c.execute(rc)
	})

	return rc.RunID, nil
}

// Status returns the persisted request record. The store is the
// authoritative view; it is updated on every state transition.
func (c *Coordinator) Status(ctx context.Context, runID string) (*models.RequestRecord, error) {
	return c.store.GetRequest(ctx, runID)
}

// Result returns the stored forecast for a completed run.
func (c *Coordinator) Result(ctx context.Context, runID string) (*schemas.ForecastResult, error) {
	return c.store.GetResult(ctx, runID)
}

// Capabilities reports what the pipeline can currently do: the active
// model backend, the embedding backend, OCR tooling and optional fetch
// surfaces. Handlers expose this on the health endpoint.
func (c *Coordinator) Capabilities(ctx context.Context) []interfaces.Capability {
	caps := make([]interfaces.Capability, 0, 6)

	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	backend := interfaces.Capability{Name: "model", Available: true, Detail: c.client.BackendName()}
	if err := c.client.HealthCheck(probeCtx); err != nil {
		backend.Available = false
		backend.Detail = fmt.Sprintf("%s: %v", c.client.BackendName(), err)
	}
	caps = append(caps, backend)

	caps = append(caps, interfaces.Capability{
		Name:      "embeddings",
		Available: c.embedder != nil,
		Detail:    c.embedderName(),
	})

	ocr := interfaces.Capability{Name: "ocr", Available: extraction.Available()}
	if !ocr.Available {
		ocr.Detail = "tesseract not found on PATH"
	}
	caps = append(caps, ocr)

	sources := make([]string, 0, len(c.fetchers))
	for name := range c.fetchers {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	caps = append(caps, interfaces.Capability{
		Name:      "sources",
		Available: len(sources) > 0,
		Detail:    strings.Join(sources, ", "),
	})

	caps = append(caps, interfaces.Capability{
		Name:      "browser_fetch",
		Available: c.config.Fetch.EnableBrowser,
	})

	caps = append(caps, interfaces.Capability{
		Name:      "market_data",
		Available: c.market != nil,
	})

	return caps
}

func (c *Coordinator) embedderName() string {
	if c.embedder == nil {
		return ""
	}
	return fmt.Sprintf("%s (dim %d)", c.embedder.Name(), c.embedder.Dimension())
}

// ActiveRuns reports how many runs are currently in flight.
func (c *Coordinator) ActiveRuns() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}

// -------------------------------------------------------------------------
// Internal plumbing shared by the run loop
// -------------------------------------------------------------------------

// publish forwards a trace event to the run event sink, if any.
func (c *Coordinator) publish(rc *models.RunContext, ev models.TraceEvent) {
	if c.events == nil {
		return
	}
	c.events.Publish(models.RunEvent{
		RunID: rc.RunID,
		State: rc.State(),
		Mode:  rc.Mode(),
		Event: ev,
	})
}

// transition moves the run to a new state and mirrors it to the store
// and the event sink. Store failures are logged, never fatal: the run
// itself is the source of truth while in flight.
func (c *Coordinator) transition(rc *models.RunContext, to models.RunState, trigger string) {
	ev := rc.Transition(to, trigger)
	c.publish(rc, ev)
	c.mirrorStatus(rc)
}

// degrade flips the run into degraded mode with a reason. Safe to call
// repeatedly; every call lands in the trace.
func (c *Coordinator) degrade(rc *models.RunContext, reason string) {
	ev := rc.MarkDegraded(reason)
	c.publish(rc, ev)
	c.logger.Warn().
		Str("run_id", rc.RunID).
		Str("reason", reason).
		Msg("Forecast run degraded")
}

// mirrorStatus pushes the run's current state into its request record.
// Uses a background context: the run context may already be expired
// when the terminal state is written.
func (c *Coordinator) mirrorStatus(rc *models.RunContext) {
	status := models.RequestStatusRunning
	switch rc.State() {
	case models.StateDone:
		status = models.RequestStatusCompleted
	case models.StateFailed:
		status = models.RequestStatusFailed
	}
	if err := c.store.UpdateRequestStatus(context.Background(), rc.RunID, status, rc.State(), rc.Mode(), rc.Err()); err != nil {
		c.logger.Warn().
			Err(err).
			Str("run_id", rc.RunID).
			Msg("Failed to mirror run status to store")
	}
}

// Compile-time interface check.
var _ interfaces.ForecastService = (*Coordinator)(nil)
