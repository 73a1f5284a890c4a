// Package app wires configuration, storage, services and handlers into
// one application instance shared by the server and CLI entrypoints.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/agent"
	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/handlers"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/services/events"
	"github.com/ternarybob/augur/internal/services/extraction"
	"github.com/ternarybob/augur/internal/services/fetch"
	"github.com/ternarybob/augur/internal/services/llm"
	"github.com/ternarybob/augur/internal/services/market"
	"github.com/ternarybob/augur/internal/services/qualitative"
	"github.com/ternarybob/augur/internal/services/report"
	"github.com/ternarybob/augur/internal/services/scheduler"
	"github.com/ternarybob/augur/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB    *badger.DB
	Store interfaces.ForecastStore

	// Pipeline services
	Client        interfaces.ModelClient
	Embedder      interfaces.Embedder
	Extractor     *extraction.Chain
	Analyzer      *qualitative.Analyzer
	FetchService  *fetch.Service
	MarketService *market.Service

	// Coordination and surfaces
	EventService  interfaces.RunEventService
	Coordinator   *agent.Coordinator
	ReportService *report.Service
	Scheduler     *scheduler.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ForecastHandler *handlers.ForecastHandler
	ReportHandler   *handlers.ReportHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.Scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Str("model", app.Client.BackendName()).
		Str("embeddings", app.Embedder.Name()).
		Int("sources", len(app.FetchService.Fetchers())).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens Badger and builds the forecast store.
func (a *App) initStorage() error {
	db, err := badger.Open(a.Logger, a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.Store = badger.NewForecastStore(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices builds the pipeline services in dependency order.
func (a *App) initServices(ctx context.Context) error {
	client, err := llm.NewClientFromConfig(ctx, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("model client: %w", err)
	}
	a.Client = client

	embedder, err := llm.NewEmbedder(ctx, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	a.Embedder = embedder

	vocab, err := extraction.LoadVocabulary()
	if err != nil {
		return fmt.Errorf("metric vocabulary: %w", err)
	}
	a.Extractor = extraction.NewChain(vocab, a.Logger)

	analyzer, err := qualitative.NewAnalyzer(embedder, a.Logger,
		qualitative.WithChunking(a.Config.Pipeline.ChunkWords, a.Config.Pipeline.ChunkOverlap),
		qualitative.WithSimilarityThreshold(a.Config.Pipeline.SimilarityThreshold),
	)
	if err != nil {
		return fmt.Errorf("qualitative analyzer: %w", err)
	}
	a.Analyzer = analyzer

	fetchService, err := fetch.NewService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("fetch service: %w", err)
	}
	a.FetchService = fetchService

	if a.Config.Market.Enabled {
		key, err := common.ResolveAPIKey("eodhd_api_key", a.Config.Market.APIKey)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Market data enabled but no API key found, runs requesting it will degrade")
		} else {
			cfg := a.Config.Market
			cfg.APIKey = key
			a.MarketService = market.NewService(cfg, a.Logger)
		}
	}

	eventService := events.NewService(a.Logger)
	eventService.MirrorToLog()
	if a.Config.Logging.Journal != "" {
		eventService.JournalToFile(a.Config.Logging.Journal)
	}
	a.EventService = eventService

	deps := agent.Deps{
		Config:    a.Config,
		Client:    a.Client,
		Embedder:  a.Embedder,
		Extractor: a.Extractor,
		Analyzer:  a.Analyzer,
		Fetchers:  a.FetchService.Fetchers(),
		Store:     a.Store,
		Events:    a.EventService,
		Logger:    a.Logger,
	}
	// Assign only when present so a nil *market.Service never hides
	// behind a non-nil interface.
	if a.MarketService != nil {
		deps.Market = a.MarketService
	}
	a.Coordinator = agent.NewCoordinator(deps)

	a.ReportService = report.NewService(a.Logger)
	a.Scheduler = scheduler.NewService(&a.Config.Scheduler, a.Coordinator, a.FetchService.Cache(), a.Logger)

	return nil
}

// initHandlers builds the HTTP handler set.
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Coordinator, a.Logger)
	a.ForecastHandler = handlers.NewForecastHandler(a.Coordinator, a.Store, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.Store, a.ReportService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Close releases all resources in reverse dependency order.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.EventService != nil {
		a.EventService.Close()
	}
	if a.FetchService != nil {
		a.FetchService.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
	a.Logger.Debug().Msg("Application closed")
}
