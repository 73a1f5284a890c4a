package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
)

// maxBodyBytes caps downloaded payloads. Quarterly report PDFs run a
// few MB; anything past this is not a document we want.
const maxBodyBytes = 32 << 20

// defaultUserAgent identifies polite scraping traffic.
const defaultUserAgent = "augur-forecast/1.0 (+https://github.com/ternarybob/augur)"

// fetchResult is one successful HTTP payload.
type fetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
}

// httpClient wraps net/http with per-host rate limiting and bounded
// retry. Retryable failures are transient statuses and network errors;
// other client errors fail immediately.
type httpClient struct {
	client      *http.Client
	gate        *hostGate
	maxAttempts int
	retryDelay  time.Duration
	userAgent   string
	logger      arbor.ILogger
}

func newHTTPClient(cfg common.FetchConfig, logger arbor.ILogger) *httpClient {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	return &httpClient{
		client: &http.Client{
			Timeout: common.ParseDurationOr(cfg.RequestTimeout, 30*time.Second),
		},
		gate:        newHostGate(common.ParseDurationOr(cfg.RateLimit, time.Second)),
		maxAttempts: attempts,
		retryDelay:  common.ParseDurationOr(cfg.RetryDelay, 2*time.Second),
		userAgent:   ua,
		logger:      logger,
	}
}

// Get fetches a URL with retry. Each attempt waits on the host gate
// first, then backs off exponentially with jitter between attempts.
func (h *httpClient) Get(ctx context.Context, rawURL string) (*fetchResult, error) {
	var lastErr error

	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		if err := h.gate.Wait(ctx, rawURL); err != nil {
			return nil, err
		}

		result, err := h.doGet(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryableFetchError(err) {
			return nil, err
		}
		if attempt == h.maxAttempts {
			break
		}

		backoff := h.backoff(attempt)
		h.logger.Debug().
			Str("url", rawURL).
			Int("attempt", attempt).
			Err(err).
			Str("backoff", backoff.String()).
			Msg("Fetch attempt failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", h.maxAttempts, lastErr)
}

func (h *httpClient) doGet(ctx context.Context, rawURL string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &fetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// backoff doubles the base delay per attempt with ±25% jitter.
func (h *httpClient) backoff(attempt int) time.Duration {
	base := float64(h.retryDelay)
	for i := 1; i < attempt; i++ {
		base *= 2
	}
	if max := float64(30 * time.Second); base > max {
		base = max
	}
	jitter := base * 0.25 * (rand.Float64()*2 - 1)
	return time.Duration(base + jitter)
}

// httpStatusError carries a non-2xx response status.
type httpStatusError struct {
	URL        string
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// retryableFetchError reports whether another attempt could succeed.
// Timeouts, connection failures and transient server statuses retry;
// 4xx responses other than 408/429 do not.
func retryableFetchError(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
