package models

import "time"

// MarketSnapshot is recent trading context for a ticker, gathered when a
// run asks for it. It supplements the document evidence during synthesis
// and never replaces it: a missing snapshot degrades the run, nothing more.
type MarketSnapshot struct {
	Symbol       string    `json:"symbol"`
	AsOf         time.Time `json:"as_of"`
	Close        float64   `json:"close"`
	WindowChange float64   `json:"window_change"` // fractional move over the analyzed window
	MonthChange  float64   `json:"month_change"`  // fractional move over the last 30 days
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	AvgVolume    float64   `json:"avg_volume"`
	Headlines    []string  `json:"headlines,omitempty"`
}
