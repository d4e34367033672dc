package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total number of password login attempts",
		},
		[]string{"outcome"},
	)

	tokenRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_token_rotations_total",
			Help: "Total number of refresh token rotation attempts",
		},
		[]string{"outcome"},
	)

	rateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	noteSearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "note_search_total",
			Help: "Total number of note search requests",
		},
		[]string{"mode"},
	)

	embeddingCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_calls_total",
			Help: "Total number of embedding API calls",
		},
		[]string{"status"},
	)

	embeddingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_duration_seconds",
			Help:    "Embedding API call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// MetricsMiddleware collects Prometheus metrics for every HTTP request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		httpRequestsInFlight.Inc()

		// Route pattern rather than the raw path, so /notes/:id stays
		// one series.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordLogin records a password login attempt.
func RecordLogin(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	loginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenRotation records a refresh token rotation attempt.
func RecordTokenRotation(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	tokenRotationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRateLimited records a rate limiter rejection.
func RecordRateLimited(scope string) {
	rateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// RecordNoteSearch records a note search by mode (substring or semantic).
func RecordNoteSearch(mode string) {
	noteSearchTotal.WithLabelValues(mode).Inc()
}

// RecordEmbeddingCall records an embedding API call.
func RecordEmbeddingCall(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	embeddingCallsTotal.WithLabelValues(status).Inc()
	embeddingDuration.Observe(duration.Seconds())
}
