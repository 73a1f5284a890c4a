// Package fetch gathers source documents for forecast runs: company
// pages and PDFs over HTTP with retry, rate limiting and an on-disk
// cache fallback, an optional headless-browser renderer for scripted
// pages, and an optional IMAP announcement mailbox.
package fetch

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
)

// Source identifiers accepted in run requests.
const (
	SourceScreener  = "screener"
	SourceCompanyIR = "company-ir"
	SourceMailbox   = "mailbox"
)

// Service owns the shared fetch infrastructure and the per-source
// fetcher registry.
type Service struct {
	cache    *DiskCache
	renderer *Renderer
	fetchers map[string]interfaces.DocumentFetcher
	logger   arbor.ILogger
}

// NewService builds the fetcher registry from configuration. The
// mailbox source registers only when IMAP is enabled; the browser
// renderer only when configured.
func NewService(cfg *common.Config, logger arbor.ILogger) (*Service, error) {
	cache, err := NewDiskCache(cfg.Fetch.CacheDir, logger)
	if err != nil {
		return nil, err
	}

	var renderer *Renderer
	if cfg.Fetch.EnableBrowser {
		renderer = NewRenderer(cfg.Fetch.UserAgent, common.ParseDurationOr(cfg.Fetch.BrowserWait, 3*time.Second), logger)
	}

	httpc := newHTTPClient(cfg.Fetch, logger)

	fetchers := map[string]interfaces.DocumentFetcher{
		SourceScreener:  NewScreenerFetcher(httpc, cache, renderer, logger),
		SourceCompanyIR: NewCompanyIRFetcher(httpc, cache, renderer, cfg.Fetch.IRPages, logger),
	}
	if cfg.Fetch.IMAP.Enabled {
		fetchers[SourceMailbox] = NewMailboxFetcher(cfg.Fetch.IMAP, logger)
	}

	return &Service{
		cache:    cache,
		renderer: renderer,
		fetchers: fetchers,
		logger:   logger,
	}, nil
}

// Fetchers returns the source registry for the coordinator.
func (s *Service) Fetchers() map[string]interfaces.DocumentFetcher {
	return s.fetchers
}

// Cache exposes the disk cache for scheduled sweeps.
func (s *Service) Cache() *DiskCache {
	return s.cache
}

// Close releases the headless browser, if one was started.
func (s *Service) Close() {
	if s.renderer != nil {
		s.renderer.Close()
	}
}
