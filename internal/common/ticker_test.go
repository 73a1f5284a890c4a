package common

import (
	"testing"
)

func TestParseTicker(t *testing.T) {
	tests := []struct {
		input        string
		wantExchange string
		wantCode     string
		wantString   string
		wantEODHD    string
	}{
		// Exchange-qualified
		{"NSE:TCS", "NSE", "TCS", "NSE:TCS", "TCS.NSE"},
		{"BSE:RELIANCE", "BSE", "RELIANCE", "BSE:RELIANCE", "RELIANCE.BSE"},
		{"NYSE:AAPL", "NYSE", "AAPL", "NYSE:AAPL", "AAPL.US"},
		{"NASDAQ:MSFT", "NASDAQ", "MSFT", "NASDAQ:MSFT", "MSFT.US"},
		{"LSE:VOD", "LSE", "VOD", "LSE:VOD", "VOD.LSE"},

		// Plain code falls back to the default exchange
		{"TCS", "NSE", "TCS", "NSE:TCS", "TCS.NSE"},
		{"INFY", "NSE", "INFY", "NSE:INFY", "INFY.NSE"},

		// Unknown exchange uses its own code as the suffix
		{"TSE:7203", "TSE", "7203", "TSE:7203", "7203.TSE"},

		// Case normalization
		{"nse:tcs", "NSE", "TCS", "NSE:TCS", "TCS.NSE"},
		{"tcs", "NSE", "TCS", "NSE:TCS", "TCS.NSE"},

		// Whitespace handling
		{"  NSE:TCS  ", "NSE", "TCS", "NSE:TCS", "TCS.NSE"},
		{"  TCS  ", "NSE", "TCS", "NSE:TCS", "TCS.NSE"},

		// Empty input
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input, "NSE")

			if result.Exchange != tt.wantExchange {
				t.Errorf("Exchange = %q, want %q", result.Exchange, tt.wantExchange)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.String() != tt.wantString {
				t.Errorf("String() = %q, want %q", result.String(), tt.wantString)
			}
			if result.EODHDSymbol() != tt.wantEODHD {
				t.Errorf("EODHDSymbol() = %q, want %q", result.EODHDSymbol(), tt.wantEODHD)
			}
		})
	}
}

func TestParseTickerNoDefaultExchange(t *testing.T) {
	result := ParseTicker("TCS", "")
	if result.Exchange != "" {
		t.Errorf("Exchange = %q, want empty", result.Exchange)
	}
	if result.EODHDSymbol() != "TCS" {
		t.Errorf("EODHDSymbol() = %q, want %q", result.EODHDSymbol(), "TCS")
	}
}

func TestParseTickerDegenerateColons(t *testing.T) {
	// Leading or trailing colons are not valid qualifiers; the string is
	// treated as a plain code and left for the API to reject.
	tests := []struct {
		input    string
		wantCode string
	}{
		{":TCS", ":TCS"},
		{"TCS:", "TCS:"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input, "NSE")
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.Exchange != "NSE" {
				t.Errorf("Exchange = %q, want %q", result.Exchange, "NSE")
			}
		})
	}
}
