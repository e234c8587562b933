package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"
	"golang.org/x/time/rate"

	"github.com/impactsmiles/smiles-wallet/internal/serve/auth"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
)

const defaultLimiterIdleTTL = 10 * time.Minute

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per authenticated caller, or per client IP for anonymous requests.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*callerLimiter
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*callerLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		idleTTL:  defaultLimiterIdleTTL,
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &callerLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Prune drops the buckets of callers idle for longer than the idle TTL.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	pruned := 0
	cutoff := rl.now().Add(-rl.idleTTL)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			pruned++
		}
	}
	return pruned
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		key, ok := auth.CallerFromContext(req.Context())
		if !ok {
			key = clientIP(req)
		}

		if !rl.allow(key) {
			log.Ctx(req.Context()).WithField("caller", key).Warnf("rate limit exceeded on %s %s", req.Method, req.URL.Path)
			rw.Header().Set("Retry-After", "1")
			httperror.TooManyRequests.Render(rw)
			return
		}
		next.ServeHTTP(rw, req)
	})
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
