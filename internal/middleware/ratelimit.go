package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexcv-backend/pkg/logging"
)

type rateBucket struct {
	count       int
	windowStart time.Time
}

// RateLimit allows max requests per client IP per window and answers 429
// afterwards. State is in-process; a multi-instance deployment would move
// this to Redis.
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*rateBucket)
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			now := time.Now()

			mu.Lock()
			b, ok := buckets[ip]
			if !ok || now.Sub(b.windowStart) >= window {
				b = &rateBucket{windowStart: now}
				buckets[ip] = b
			}
			b.count++
			over := b.count > max
			mu.Unlock()

			if over {
				logging.L(r.Context()).Warn("rate limit exceeded",
					zap.String("ip", ip),
					zap.Int("max", max),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too_many_requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
