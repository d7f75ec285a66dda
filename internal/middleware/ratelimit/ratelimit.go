// Package ratelimit counts requests per client IP in fixed one-minute
// windows. The server applies it to POST routes only, where calculation and
// advice cost something; reads stay unlimited.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window = time.Minute
	// idleAfter is how long a client may stay quiet before its window is
	// forgotten by the sweep.
	idleAfter = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// Limiter is safe for concurrent use. Stop ends its sweep goroutine.
type Limiter struct {
	limit int
	clock func() time.Time

	mu      sync.Mutex
	windows map[string]*clientWindow

	limited  atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	opened time.Time
	seen   time.Time
	count  int
}

// Metrics is reported by the server's readiness endpoint.
type Metrics struct {
	TotalHits   int64 `json:"limited"`
	ClientCount int64 `json:"clients"`
}

// NewLimiter starts a limiter; zero fields take DefaultConfig values.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		limit:   cfg.RequestsPerMinute,
		clock:   time.Now,
		windows: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go l.sweepEvery(cfg.CleanupInterval)
	return l
}

// Allow counts one request from ip. The window opens on a client's first
// request, so steady traffic cannot keep it open past a minute.
func (l *Limiter) Allow(ip string) bool {
	ok, _ := l.take(ip)
	return ok
}

// take counts a request and, when it is refused, reports how long until
// the client's window resets.
func (l *Limiter) take(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	w := l.windows[ip]
	if w == nil || now.Sub(w.opened) >= window {
		l.windows[ip] = &clientWindow{opened: now, seen: now, count: 1}
		return true, 0
	}

	w.seen = now
	w.count++
	if w.count <= l.limit {
		return true, 0
	}
	l.limited.Add(1)
	return false, max(window-now.Sub(w.opened), 0)
}

// RetryAfter reports how long until ip's current window resets.
func (l *Limiter) RetryAfter(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.windows[ip]
	if w == nil {
		return 0
	}
	return max(window-l.clock().Sub(w.opened), 0)
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.sweep()
		}
	}
}

// sweep forgets clients idle for longer than idleAfter.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock().Add(-idleAfter)
	n := 0
	for ip, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, ip)
			n++
		}
	}
	return n
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.limited.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware limits requests whose method is listed; with no methods every
// request counts. A refused request gets Retry-After and then onLimit, or
// a plain 429 when onLimit is nil.
func (l *Limiter) Middleware(clientIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request), methods ...string) func(http.Handler) http.Handler {
	counted := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		counted[m] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := counted[r.Method]; len(counted) > 0 && !ok {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := l.take(clientIP(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			if onLimit == nil {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
