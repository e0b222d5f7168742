package mockservice

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is a fixed-window counter per client key. Quota headers go on
// every limited response; health and version stay unmetered so readiness
// polling can never exhaust the quota.
type rateLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	counts map[string]*windowCount
}

type windowCount struct {
	start time.Time
	n     int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{limit: limit, window: window, counts: map[string]*windowCount{}}
}

func (rl *rateLimiter) allow(key string, now time.Time) (ok bool, remaining int, reset time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	wc := rl.counts[key]
	if wc == nil || now.Sub(wc.start) >= rl.window {
		wc = &windowCount{start: now}
		rl.counts[key] = wc
	}
	reset = wc.start.Add(rl.window)
	if wc.n >= rl.limit {
		return false, 0, reset
	}
	wc.n++
	return true, rl.limit - wc.n, reset
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/version" {
			next.ServeHTTP(w, r)
			return
		}
		now := time.Now()
		ok, remaining, reset := rl.allow(clientKey(r), now)
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if !ok {
			retryAfter := int(math.Ceil(reset.Sub(now).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "request quota exhausted, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey buckets requests by bearer token when present, otherwise by
// client address.
func clientKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
