package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/payplaces/directory/pkg/logger"
)

// RateLimit enforces a per-key token bucket, one bucket per key the
// KeyFunc passed to Handler returns (falling back to the client address,
// X-Forwarded-For or remote IP, when that key is empty).
type RateLimit struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

func NewRateLimit(requestsPerSecond float64, burst int, log *logger.Logger) *RateLimit {
	return &RateLimit{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimit) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// KeyFunc extracts the rate-limit key from a request, e.g. the bearer
// token's access token id once auth middleware has run.
type KeyFunc func(r *http.Request) string

func (rl *RateLimit) Handler(keyOf KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" {
				key = clientIP(r)
			}

			if !rl.limiterFor(key).Allow() {
				if rl.log != nil {
					rl.log.WithContext(r.Context()).WithField("key", key).Warn("rate limit exceeded")
				}
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Cleanup discards all tracked limiters once the map grows unbounded;
// called periodically from a background ticker.
func (rl *RateLimit) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

func (rl *RateLimit) StartCleanup(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-done:
				return
			}
		}
	}()
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
