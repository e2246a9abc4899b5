package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RealIP returns the client address, trusting CF-Connecting-IP and then the
// first X-Forwarded-For hop before falling back to RemoteAddr. Those headers
// are client-controlled unless a proxy in front of the server sets them.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return RemoteIP(r)
}

// RemoteIP returns the host of the connection's remote address, ignoring
// forwarding headers.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIP picks the client key for rate limiting. Forwarding headers are
// only honored when trustProxy is set.
func ClientIP(trustProxy bool) func(*http.Request) string {
	if trustProxy {
		return RealIP
	}
	return RemoteIP
}

// Policy is a fixed-window budget. Name separates the counters of different
// policies that see the same client key.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per policy and key in fixed windows.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one request for key under p. It reports whether the request
// fits the budget, how many remain and how long until the window resets.
func (rl *RateLimiter) Allow(p Policy, key string) (ok bool, remaining int, reset time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	id := p.Name + "|" + key
	w, found := rl.windows[id]
	if !found || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(p.Window)}
		rl.windows[id] = w
	}
	w.count++

	remaining = max(p.Limit-w.count, 0)
	return w.count <= p.Limit, remaining, w.resetAt.Sub(now)
}

// Cleanup drops windows that have already reset.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, id)
		}
	}
}

// RateLimit enforces p per keyFunc(r). Rejected requests get 429 with
// Retry-After set to the whole seconds left in the window.
func RateLimit(limiter *RateLimiter, p Policy, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, reset := limiter.Allow(p, keyFunc(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(p.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				secs := max(int(math.Ceil(reset.Seconds())), 1)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeMessage(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
