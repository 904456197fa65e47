package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	dismissalEventsTotal *prometheus.CounterVec
	lunchResolutions     *prometheus.CounterVec
	liveSubscribers      prometheus.Gauge
	liveEventsTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dismissal_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_http_errors_total",
			Help: "Total number of error responses.",
		}, []string{"method", "route", "status"})

		dismissalEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_records_events_total",
			Help: "Dismissal record mutations by operation and outcome.",
		}, []string{"operation", "outcome"})

		lunchResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_lunch_resolutions_total",
			Help: "Lunch lookups by the tier that answered and outcome.",
		}, []string{"tier", "outcome"})

		liveSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dismissal_live_subscribers",
			Help: "Open live feed subscriptions.",
		})

		liveEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dismissal_live_events_total",
			Help: "Live change events by collection and origin.",
		}, []string{"collection", "origin"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			dismissalEventsTotal,
			lunchResolutions,
			liveSubscribers,
			liveEventsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// DismissalEvents counts submit, edit and delete outcomes.
func DismissalEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return dismissalEventsTotal
}

// LunchResolutions counts lunch lookups per tier.
func LunchResolutions() *prometheus.CounterVec {
	RegisterMetrics()
	return lunchResolutions
}

// LiveSubscribers tracks open live subscriptions.
func LiveSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return liveSubscribers
}

// LiveEvents counts change notifications.
func LiveEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return liveEventsTotal
}
