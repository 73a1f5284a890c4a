package market

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// daysPerQuarter approximates one fiscal quarter in calendar days when
// sizing the price window.
const daysPerQuarter = 91

// headlineLimit caps how many news titles a snapshot carries.
const headlineLimit = 5

// Service builds market snapshots for forecast runs.
type Service struct {
	client   *Client
	exchange string
	logger   arbor.ILogger
}

// NewService builds the snapshot service from configuration.
func NewService(cfg common.MarketConfig, logger arbor.ILogger) *Service {
	opts := []ClientOption{WithLogger(logger)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimit(cfg.RateLimit))
	}

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "NSE"
	}

	return &Service{
		client:   NewClient(cfg.APIKey, opts...),
		exchange: exchange,
		logger:   logger,
	}
}

// Snapshot builds trading context for a ticker over the analyzed window:
// closing level, the move over the window and over the last month, the
// price range, average volume and recent headlines. News failures are
// logged and tolerated; missing price history is not. The ticker may
// carry an exchange qualifier ("NYSE:AAPL"); plain codes resolve against
// the configured default exchange.
func (s *Service) Snapshot(ctx context.Context, ticker string, quarters int) (*models.MarketSnapshot, error) {
	if quarters < 1 {
		quarters = 1
	}
	symbol := common.ParseTicker(ticker, s.exchange).EODHDSymbol()
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -daysPerQuarter*quarters)

	bars, err := s.client.GetEOD(ctx, symbol, from, now)
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price history for %s", symbol)
	}

	snap := summarize(symbol, now, bars)

	news, err := s.client.GetNews(ctx, symbol, headlineLimit)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Msg("News fetch failed, snapshot continues without headlines")
	} else {
		for _, item := range news {
			if item.Title != "" {
				snap.Headlines = append(snap.Headlines, item.Title)
			}
		}
	}

	return snap, nil
}

// summarize folds the bar series into snapshot figures. Bars arrive in
// ascending date order.
func summarize(symbol string, asOf time.Time, bars []Bar) *models.MarketSnapshot {
	first, last := bars[0], bars[len(bars)-1]

	snap := &models.MarketSnapshot{
		Symbol: symbol,
		AsOf:   asOf,
		Close:  last.Close,
		High:   first.High,
		Low:    first.Low,
	}

	monthStart := asOf.AddDate(0, 0, -30)
	var totalVolume, monthBase float64
	for _, b := range bars {
		if b.High > snap.High {
			snap.High = b.High
		}
		if b.Low > 0 && b.Low < snap.Low {
			snap.Low = b.Low
		}
		totalVolume += float64(b.Volume)
		if monthBase == 0 && !b.Date.IsZero() && !b.Date.Before(monthStart) {
			monthBase = b.Close
		}
	}

	snap.AvgVolume = totalVolume / float64(len(bars))
	if first.Close > 0 {
		snap.WindowChange = (last.Close - first.Close) / first.Close
	}
	if monthBase > 0 {
		snap.MonthChange = (last.Close - monthBase) / monthBase
	}

	return snap
}

// Compile-time interface check.
var _ interfaces.MarketDataProvider = (*Service)(nil)
