package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyFunc picks the bucket a request is charged to. An empty key skips
// limiting.
type KeyFunc func(r *http.Request) string

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	key      KeyFunc
	idleTTL  time.Duration
	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(limit rate.Limit, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		burst:    burst,
		key:      key,
		idleTTL:  3 * time.Minute,
		visitors: make(map[string]*visitor),
	}
}

// KeyByIP charges the client address, preferring the first X-Forwarded-For
// hop.
func KeyByIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// KeyByParticipant charges the authenticated participant. It must run after
// the auth middleware.
func KeyByParticipant(r *http.Request) string {
	id, ok := GetParticipantID(r.Context())
	if !ok {
		return ""
	}
	return id.String()
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := l.key(r); key != "" && !l.getLimiter(key).Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (l *RateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, key)
		}
	}
}

// Run evicts idle visitors every minute until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.cleanup(now)
		}
	}
}
