package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// ThrottleMiddleware is a coarse per-IP token bucket in front of the
// public read endpoints. It is independent of the fixed-window limiter
// guarding the auth endpoints and only exists to keep polling clients
// from hammering the store.
type ThrottleMiddleware struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

func NewThrottleMiddleware(perSec float64, burst int) *ThrottleMiddleware {
	return &ThrottleMiddleware{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(perSec),
		burst:    burst,
	}
}

func (t *ThrottleMiddleware) limiterFor(ip string) *rate.Limiter {
	t.mu.RLock()
	limiter, ok := t.limiters[ip]
	t.mu.RUnlock()
	if ok {
		return limiter
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if limiter, ok := t.limiters[ip]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(t.perSec, t.burst)
	t.limiters[ip] = limiter
	return limiter
}

func (t *ThrottleMiddleware) Throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.limiterFor(ClientIP(r)).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"Too many requests"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
