package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enrollment",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "enrollment",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "enrollment",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	enrollmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enrollment",
			Subsystem: "billing",
			Name:      "enrollments_total",
			Help:      "Confirmed enrollments by billing shape and outcome",
		},
		[]string{"shape", "outcome"},
	)

	providerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enrollment",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Calls made to external providers",
		},
		[]string{"provider", "operation", "status"},
	)

	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "enrollment",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Duration of external provider calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	crmSyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enrollment",
			Subsystem: "crm",
			Name:      "sync_failures_total",
			Help:      "CRM sync failures that were logged and swallowed",
		},
		[]string{"stage"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEnrollment counts one confirm-payment outcome
func RecordEnrollment(shape, outcome string) {
	enrollmentsTotal.WithLabelValues(shape, outcome).Inc()
}

// RecordProviderCall records a single call to the payment or CRM provider
func RecordProviderCall(provider, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	providerCallsTotal.WithLabelValues(provider, operation, status).Inc()
	providerCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordCRMSyncFailure counts a swallowed CRM failure at the given stage
func RecordCRMSyncFailure(stage string) {
	crmSyncFailures.WithLabelValues(stage).Inc()
}
