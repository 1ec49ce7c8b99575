package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConsumerIterationsTotal counts poll-loop iterations by category.
	ConsumerIterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_iterations_total",
			Help: "Total number of poll loop iterations",
		},
		[]string{"category"},
	)
	// ConsumerMessagesHandledTotal counts messages successfully dispatched
	// through every handler, by category.
	ConsumerMessagesHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_messages_handled_total",
			Help: "Total number of messages successfully handled",
		},
		[]string{"category"},
	)
	// ConsumerHandlerErrorsTotal counts handler failures by category and
	// handler label.
	ConsumerHandlerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_handler_errors_total",
			Help: "Total number of handler errors",
		},
		[]string{"category", "handler"},
	)
	// ConsumerGetDuration records the latency of each Getter.Get call by
	// category.
	ConsumerGetDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consumer_get_duration_seconds",
			Help:    "Duration of category message fetches",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"category"},
	)
	// PositionStorePutTotal counts position checkpoint flushes by category.
	PositionStorePutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "position_store_put_total",
			Help: "Total number of position store checkpoint flushes",
		},
		[]string{"category"},
	)
	// PositionStoreFlushLag is the gauge of in-memory position minus the
	// last flushed position, by category.
	PositionStoreFlushLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "position_store_flush_lag",
			Help: "In-memory position minus last flushed position",
		},
		[]string{"category"},
	)

	// CircuitBreakerStatus tracks circuit breaker state (0=closed,
	// 1=open, 2=half-open) for guarded store calls.
	CircuitBreakerStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_status",
			Help: "Circuit breaker status (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "operation"},
	)

	// HTTPRequestsTotal counts admin-server HTTP requests by route, method,
	// and status label.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests to the admin server",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration records admin-server request durations by route
	// and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)
)

// InitMetrics registers every consumer-domain Prometheus vector with the
// default registry.
func InitMetrics() {
	prometheus.MustRegister(ConsumerIterationsTotal)
	prometheus.MustRegister(ConsumerMessagesHandledTotal)
	prometheus.MustRegister(ConsumerHandlerErrorsTotal)
	prometheus.MustRegister(ConsumerGetDuration)
	prometheus.MustRegister(PositionStorePutTotal)
	prometheus.MustRegister(PositionStoreFlushLag)
	prometheus.MustRegister(CircuitBreakerStatus)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}

// RecordCircuitBreakerStatus records circuit breaker state for a guarded
// service/operation pair.
func RecordCircuitBreakerStatus(service, operation string, status int) {
	CircuitBreakerStatus.WithLabelValues(service, operation).Set(float64(status))
}

// HTTPMetricsMiddleware records Prometheus metrics for each admin HTTP
// request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()

		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}
