package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the service.
type Metrics struct {
	Submissions *prometheus.CounterVec // labels: outcome={accepted,invalid,error}

	// Location resolution.
	LocationResolutions *prometheus.CounterVec // labels: method={alias,fuzzy,fallback,geocoder}
	GeocodeRequests     *prometheus.CounterVec // labels: outcome={success,empty,unplaced,error}
	GeocodeEnabled      prometheus.Gauge

	// Aggregation.
	AggregationDuration *prometheus.HistogramVec // labels: key
	AggregationRows     prometheus.Histogram

	EventsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Submissions,
		m.LocationResolutions,
		m.GeocodeRequests,
		m.GeocodeEnabled,
		m.AggregationDuration,
		m.AggregationRows,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mahrfyi",
			Name:      "submissions_total",
			Help:      "Submission attempts by outcome.",
		}, []string{"outcome"}),
		LocationResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mahrfyi",
			Name:      "location_resolutions_total",
			Help:      "Location normalizations by the method that resolved them.",
		}, []string{"method"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mahrfyi",
			Name:      "geocode_requests_total",
			Help:      "Geocoder fallback requests by outcome.",
		}, []string{"outcome"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mahrfyi",
			Name:      "geocode_enabled",
			Help:      "1 when a geocoder backend is configured, 0 otherwise.",
		}),
		AggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mahrfyi",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a grouped statistics computation.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"key"}),
		AggregationRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mahrfyi",
			Name:      "aggregation_rows",
			Help:      "Rows read per aggregation.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mahrfyi",
			Name:      "events_published_total",
			Help:      "Submission events published by outcome.",
		}, []string{"outcome"}),
	}
}
