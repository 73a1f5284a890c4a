// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// exchangeSuffix maps exchange codes to the suffix EODHD expects in its
// CODE.SUFFIX symbols. Exchanges not listed use their own code as the
// suffix, which matches EODHD's convention for most national exchanges.
var exchangeSuffix = map[string]string{
	"NSE":    "NSE",
	"BSE":    "BSE",
	"NYSE":   "US",
	"NASDAQ": "US",
	"LSE":    "LSE",
}

// Ticker is an exchange-qualified security identifier.
type Ticker struct {
	// Exchange is the exchange code (e.g. "NSE", "NYSE")
	Exchange string
	// Code is the security code (e.g. "TCS", "AAPL")
	Code string
}

// ParseTicker parses an optionally exchange-qualified ticker string.
// Supported forms:
//   - "NSE:TCS"  -> Exchange="NSE", Code="TCS"
//   - "TCS"      -> Exchange=defaultExchange, Code="TCS"
//   - "nse:tcs"  -> normalized to uppercase
//
// Run requests carry plain codes; the exchange qualifier exists so
// scheduled refreshes and direct callers can reach beyond the default
// exchange without reconfiguring the service.
func ParseTicker(raw, defaultExchange string) Ticker {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return Ticker{}
	}

	if idx := strings.Index(raw, ":"); idx > 0 && idx < len(raw)-1 {
		return Ticker{
			Exchange: raw[:idx],
			Code:     raw[idx+1:],
		}
	}

	return Ticker{
		Exchange: strings.ToUpper(strings.TrimSpace(defaultExchange)),
		Code:     raw,
	}
}

// String returns the exchange-qualified form, e.g. "NSE:TCS".
func (t Ticker) String() string {
	if t.Exchange == "" || t.Code == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// EODHDSymbol returns the CODE.SUFFIX symbol the EODHD API expects.
// Example: "NSE:TCS" -> "TCS.NSE", "NYSE:AAPL" -> "AAPL.US".
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := exchangeSuffix[t.Exchange]
	if !ok {
		suffix = t.Exchange
	}
	if suffix == "" {
		return t.Code
	}
	return t.Code + "." + suffix
}
