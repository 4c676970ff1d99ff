package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: cache hits per key namespace (conv, chat, enhance, resume...).
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits by key namespace.",
		},
		[]string{"namespace"},
	)

	// Counter: cache misses per key namespace.
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses by key namespace.",
		},
		[]string{"namespace"},
	)

	// Counter: fuzzy chat cache hits by matched variant (exact, normalized, keywords).
	ChatCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_hits_total",
			Help: "Total number of chat cache hits by matched hash variant.",
		},
		[]string{"variant"},
	)

	// Histogram: upstream AI call latency in seconds.
	AIRequestSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_request_seconds",
			Help:    "Latency of upstream AI text generation calls in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Counter: credits spent by metered operation.
	CreditsSpentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_spent_total",
			Help: "Total credits deducted by metered operation.",
		},
		[]string{"reason"},
	)

	// Histogram: HTTP latency in seconds.
	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		ChatCacheHitsTotal,
		AIRequestSeconds,
		CreditsSpentTotal,
		HTTPLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures HTTP latency for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// capture status code
		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()

		HTTPLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(duration)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
