// Package scheduler runs background maintenance on a cron schedule:
// document cache sweeps and recurring forecast refreshes.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
	"github.com/ternarybob/augur/internal/services/fetch"
)

// Service owns the cron loop. All entries run in cron's own goroutine,
// so handlers only kick off work and log.
type Service struct {
	config   *common.SchedulerConfig
	forecast interfaces.ForecastService
	cache    *fetch.DiskCache
	cron     *cron.Cron
	logger   arbor.ILogger
	running  bool
}

// NewService creates a new scheduler service
func NewService(config *common.SchedulerConfig, forecast interfaces.ForecastService, cache *fetch.DiskCache, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		forecast: forecast,
		cache:    cache,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Start registers the configured entries and begins the cron loop.
// A disabled scheduler is not an error, the service just stays idle.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Debug().Msg("Scheduler disabled, skipping start")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	sweep := s.config.CacheSweep
	if sweep == "" {
		sweep = "0 0 3 * * *"
	}
	if s.cache != nil {
		if _, err := s.cron.AddFunc(sweep, s.runCacheSweep); err != nil {
			return fmt.Errorf("failed to schedule cache sweep: %w", err)
		}
		s.logger.Info().Str("schedule", sweep).Msg("Cache sweep scheduled")
	}

	for _, entry := range s.config.Refreshes {
		entry := entry
		if err := common.ValidateSchedule(entry.Schedule); err != nil {
			s.logger.Warn().Err(err).Str("ticker", entry.Ticker).Msg("Skipping refresh with invalid schedule")
			continue
		}
		if _, err := s.cron.AddFunc(entry.Schedule, func() { s.runRefresh(entry) }); err != nil {
			return fmt.Errorf("failed to schedule refresh for %s: %w", entry.Ticker, err)
		}
		s.logger.Info().
			Str("ticker", entry.Ticker).
			Str("schedule", entry.Schedule).
			Msg("Forecast refresh scheduled")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Int("entries", len(s.cron.Entries())).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop. Running entries finish on their own.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// RunSweepNow triggers an immediate cache sweep.
func (s *Service) RunSweepNow() {
	go s.runCacheSweep()
}

func (s *Service) runCacheSweep() {
	if s.cache == nil {
		return
	}
	maxAge := common.ParseDurationOr(s.config.CacheMaxAge, 720*time.Hour)

	removed, err := s.cache.Sweep(maxAge)
	if err != nil {
		s.logger.Error().Err(err).Msg("Cache sweep failed")
		return
	}
	s.logger.Info().
		Int("removed", removed).
		Str("max_age", maxAge.String()).
		Msg("Cache sweep completed")
}

func (s *Service) runRefresh(entry common.RefreshEntry) {
	quarters := entry.Quarters
	if quarters <= 0 {
		quarters = 4
	}
	sources := entry.Sources
	if len(sources) == 0 {
		sources = []string{fetch.SourceScreener}
	}

	// Submit only validates and enqueues, the run itself is backgrounded
	// by the coordinator under its own budget.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runID, err := s.forecast.Submit(ctx, models.RunRequest{
		Ticker:        entry.Ticker,
		QuarterCount:  quarters,
		Sources:       sources,
		IncludeMarket: entry.IncludeMarket,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("ticker", entry.Ticker).Msg("Scheduled refresh rejected")
		return
	}
	s.logger.Info().
		Str("ticker", entry.Ticker).
		Str("run_id", runID).
		Msg("Scheduled forecast refresh submitted")
}
