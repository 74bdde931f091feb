package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magma_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "magma_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	providerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magma_provider_calls_total",
			Help: "Total number of model provider calls",
		},
		[]string{"provider", "status"},
	)
	providerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "magma_provider_call_duration_seconds",
			Help:    "Model provider call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)
	locations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magma_locations_parsed_total",
			Help: "Coordinate parse outcomes for model replies",
		},
		[]string{"outcome"},
	)

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "magma_sessions_active",
		Help: "Number of chat sessions held in memory",
	})
)

// RecordProviderCall records one model call
func RecordProviderCall(provider string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	providerCalls.WithLabelValues(provider, status).Inc()
	providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordLocation records a coordinate parse outcome ("point", "bbox", or an
// error class)
func RecordLocation(outcome string) {
	locations.WithLabelValues(outcome).Inc()
}

// SetSessions updates the active session gauge
func SetSessions(n int) {
	sessionsActive.Set(float64(n))
}

// unmatchedRoute labels requests that hit no route
const unmatchedRoute = "unmatched"

// Middleware records request counts and durations by chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
