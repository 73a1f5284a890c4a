package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
)

func newTestHTTPClient(maxAttempts int) *httpClient {
	return newHTTPClient(common.FetchConfig{
		RequestTimeout: "5s",
		MaxAttempts:    maxAttempts,
		RetryDelay:     "1ms",
		RateLimit:      "0s",
	}, arbor.NewLogger())
}

func TestHTTPClient_RetriesTransientStatuses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 payload"))
	}))
	defer srv.Close()

	result, err := newTestHTTPClient(3).Get(context.Background(), srv.URL+"/d/results.pdf")
	require.NoError(t, err)

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []byte("%PDF-1.7 payload"), result.Body)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestHTTPClient_FailsFastOnClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestHTTPClient(3).Get(context.Background(), srv.URL+"/gone.pdf")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "4xx responses should not be retried")

	var statusErr *httpStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestHTTPClient_ReportsAttemptsOnExhaustion(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestHTTPClient(2).Get(context.Background(), srv.URL+"/flaky.pdf")
	require.Error(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Contains(t, err.Error(), "fetch failed after 2 attempts")
	assert.Contains(t, err.Error(), "returned status 502")
}

func TestHTTPClient_DefaultsWhenConfigEmpty(t *testing.T) {
	h := newHTTPClient(common.FetchConfig{}, arbor.NewLogger())

	assert.Equal(t, 3, h.maxAttempts)
	assert.Equal(t, defaultUserAgent, h.userAgent)
}

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "net failure" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestRetryableFetchError(t *testing.T) {
	assert.True(t, retryableFetchError(&httpStatusError{URL: "u", StatusCode: http.StatusTooManyRequests}))
	assert.True(t, retryableFetchError(&httpStatusError{URL: "u", StatusCode: http.StatusServiceUnavailable}))
	assert.True(t, retryableFetchError(&httpStatusError{URL: "u", StatusCode: http.StatusRequestTimeout}))
	assert.False(t, retryableFetchError(&httpStatusError{URL: "u", StatusCode: http.StatusNotFound}))
	assert.False(t, retryableFetchError(&httpStatusError{URL: "u", StatusCode: http.StatusForbidden}))

	assert.True(t, retryableFetchError(context.DeadlineExceeded))
	assert.True(t, retryableFetchError(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.True(t, retryableFetchError(&fakeNetError{timeout: true}))
	assert.False(t, retryableFetchError(&fakeNetError{timeout: false}))
	assert.False(t, retryableFetchError(errors.New("malformed url")))
}
