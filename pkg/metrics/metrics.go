package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Availability coordinator metrics
	AvailabilityFetches *prometheus.CounterVec
	StaleResponses      prometheus.Counter

	// Booking submission metrics
	BookingSubmissions *prometheus.CounterVec

	// Upstream client metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	// Catalog cache metrics
	CatalogCache *prometheus.CounterVec

	// Booking events consumed by the worker
	BookingEvents *prometheus.CounterVec

	OpenSessions prometheus.Gauge
}

// New creates the application metrics without registering them.
func New(namespace string) *Metrics {
	return &Metrics{
		AvailabilityFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_fetches_total",
			Help:      "Availability fetches by outcome",
		}, []string{"outcome"}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_stale_responses_total",
			Help:      "Availability responses discarded because a newer request superseded them",
		}),
		BookingSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the booking backend",
		}, []string{"operation", "status"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of requests sent to the booking backend",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		CatalogCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_lookups_total",
			Help:      "Service catalog cache lookups by result",
		}, []string{"result"}),
		BookingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_total",
			Help:      "Booking events consumed from the broker",
		}, []string{"status"}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "booking_sessions_open",
			Help:      "Booking sessions currently open",
		}),
	}
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := New(namespace)
	reg.MustRegister(
		m.AvailabilityFetches,
		m.StaleResponses,
		m.BookingSubmissions,
		m.UpstreamRequests,
		m.UpstreamLatency,
		m.CatalogCache,
		m.BookingEvents,
		m.OpenSessions,
	)
	return m
}
