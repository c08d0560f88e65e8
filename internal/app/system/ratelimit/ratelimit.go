// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter allows limit requests per key in any trailing window of length
// duration. It keeps the timestamps of each key's recent requests, so the
// window slides with every request. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	hits     map[string][]time.Time
	limit    int
	duration time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a limiter allowing limit requests per duration for each key.
// Idle keys are swept every 2×duration until Stop is called.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		hits:     make(map[string][]time.Time),
		limit:    limit,
		duration: duration,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go l.cleanupLoop(duration * 2)
	return l
}

// Allow records a request for key and reports whether it is within limit.
func (l *Limiter) Allow(key string) bool {
	ok, _, _ := l.take(key)
	return ok
}

// take records a request for key when it fits the window. It returns how many
// requests remain and, when refused, how long until the oldest hit expires.
func (l *Limiter) take(key string) (ok bool, remaining int, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := prune(l.hits[key], now.Add(-l.duration))
	if len(hits) >= l.limit {
		l.hits[key] = hits
		return false, 0, hits[0].Add(l.duration).Sub(now)
	}
	hits = append(hits, now)
	l.hits[key] = hits
	return true, l.limit - len(hits), 0
}

// prune drops hits at or before cutoff. hits is in ascending order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// Stop ends the background sweep.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.duration)
	for key, hits := range l.hits {
		if len(prune(hits, cutoff)) == 0 {
			delete(l.hits, key)
		}
	}
}

// Middleware rejects requests whose key has exhausted its window by calling
// onLimit instead of next. key decides who is being limited, e.g. caller id
// or client IP. Every response carries X-RateLimit-Limit and
// X-RateLimit-Remaining; refusals also carry Retry-After in seconds.
func Middleware(l *Limiter, key func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, retryAfter := l.take(key(r))
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP, preferring X-Forwarded-For and X-Real-IP
// set by a proxy, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
