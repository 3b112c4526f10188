package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// geocoding pipeline.
type Metrics struct {
	GeocodeRequests  *prometheus.CounterVec // labels: outcome={success,not_found,timeout,unavailable,error}
	GeocodeCache     *prometheus.CounterVec // labels: result={hit,miss}
	CacheWriteErrors prometheus.Counter

	LocationsGeolocated prometheus.Counter
	LocationsSkipped    prometheus.Counter

	MapLoadRunning  prometheus.Gauge
	MapLoadDuration prometheus.Histogram

	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.GeocodeRequests,
		m.GeocodeCache,
		m.CacheWriteErrors,
		m.LocationsGeolocated,
		m.LocationsSkipped,
		m.MapLoadRunning,
		m.MapLoadDuration,
		m.GeocodeAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caselog",
			Name:      "geocode_requests_total",
			Help:      "Geocoding service requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caselog",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		CacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "caselog",
			Name:      "geocode_cache_write_errors_total",
			Help:      "Failed geocode cache writes (non-fatal).",
		}),
		LocationsGeolocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "caselog",
			Name:      "locations_geolocated_total",
			Help:      "Locations resolved to a map marker.",
		}),
		LocationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "caselog",
			Name:      "locations_skipped_total",
			Help:      "Locations skipped during a map load.",
		}),
		MapLoadRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "caselog",
			Name:      "map_load_running",
			Help:      "1 while a geocoding batch is active.",
		}),
		MapLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "caselog",
			Name:      "map_load_duration_seconds",
			Help:      "Duration of a complete map load cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "caselog",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
