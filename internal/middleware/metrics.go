package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsMiddleware collects metrics about requests
type MetricsMiddleware struct {
	requestCounter   *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(reg prometheus.Registerer) *MetricsMiddleware {
	const namespace = "brewing_dashboard"

	requestCounter := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration := promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	requestsInFlight := promauto.With(reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Current number of requests being processed",
		},
		[]string{"method"},
	)

	return &MetricsMiddleware{
		requestCounter:   requestCounter,
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
	}
}

// CollectMetrics collects metrics for requests. Routes are labelled by their
// mux path template so IDs and query strings do not explode cardinality.
func (m *MetricsMiddleware) CollectMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		route := routeLabel(r)

		m.requestsInFlight.WithLabelValues(method).Inc()
		defer m.requestsInFlight.WithLabelValues(method).Dec()

		rw := newStatusRecorder(w)

		start := time.Now()
		next.ServeHTTP(rw, r)
		duration := time.Since(start).Seconds()

		m.requestCounter.WithLabelValues(method, route, strconv.Itoa(rw.status)).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(duration)
	})
}

func routeLabel(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}
