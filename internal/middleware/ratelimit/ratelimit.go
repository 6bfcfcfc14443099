// Package ratelimit caps state-changing requests per client.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter counts requests per client in fixed windows.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time

	limit   int
	span    time.Duration
	methods map[string]bool
}

type window struct {
	start time.Time
	seen  time.Time
	count int
}

type Config struct {
	// Requests allowed per client in each Window.
	Requests int
	Window   time.Duration
	// CleanupInterval controls how often idle clients are forgotten.
	CleanupInterval time.Duration
	// Methods limited; all methods when empty.
	Methods []string
}

// DefaultConfig limits form posts to 60 a minute.
func DefaultConfig() Config {
	return Config{
		Requests:        60,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
		Methods:         []string{http.MethodPost},
	}
}

// NewLimiter starts a limiter and its cleanup loop. Zero fields take the
// DefaultConfig values.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = def.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
		now:     time.Now,
		limit:   cfg.Requests,
		span:    cfg.Window,
	}
	if len(cfg.Methods) > 0 {
		rl.methods = make(map[string]bool, len(cfg.Methods))
		for _, m := range cfg.Methods {
			rl.methods[m] = true
		}
	}
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Allow records one request from client. When the client is over its limit
// it returns false and the time left until its window resets.
func (rl *Limiter) Allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= rl.span {
		rl.windows[client] = &window{start: now, seen: now, count: 1}
		return true, 0
	}

	w.count++
	w.seen = now
	if w.count <= rl.limit {
		return true, 0
	}
	return false, w.start.Add(rl.span).Sub(now)
}

func (rl *Limiter) applies(method string) bool {
	return rl.methods == nil || rl.methods[method]
}

func (rl *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.forgetIdle()
		case <-rl.stop:
			return
		}
	}
}

// forgetIdle drops clients not seen for two windows.
func (rl *Limiter) forgetIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.span)
	for client, w := range rl.windows {
		if w.seen.Before(cutoff) {
			delete(rl.windows, client)
		}
	}
}

// ActiveClients returns the number of clients with a live window.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// RetryAfter formats d as a Retry-After header value in whole seconds.
func RetryAfter(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Middleware rejects over-limit requests with 429, or hands them to onLimit
// together with the wait until the client's window resets.
func (rl *Limiter) Middleware(clientOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request, time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.applies(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if ok, wait := rl.Allow(clientOf(r)); !ok {
				if onLimit != nil {
					onLimit(w, r, wait)
					return
				}
				w.Header().Set("Retry-After", RetryAfter(wait))
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
