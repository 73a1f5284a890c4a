package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostGate enforces a minimum delay between requests to the same host.
// Screener and company IR sites are scraped politely; one slow host
// never blocks requests to another.
type hostGate struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
	delay time.Duration
}

func newHostGate(delay time.Duration) *hostGate {
	return &hostGate{
		hosts: make(map[string]*rate.Limiter),
		delay: delay,
	}
}

// Wait blocks until the host of rawURL may be contacted again. Honors
// context cancellation while waiting.
func (g *hostGate) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	if host == "" || g.delay <= 0 {
		return nil
	}
	return g.limiter(host).Wait(ctx)
}

func (g *hostGate) limiter(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	lim, ok := g.hosts[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(g.delay), 1)
		g.hosts[host] = lim
	}
	return lim
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
