package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemsDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_items_discovered_total",
			Help: "Total number of item references emitted by discovery.",
		},
		[]string{"source"},
	)
	importOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_outcomes_total",
			Help: "Total number of import pass outcomes per item.",
		},
		[]string{"source", "outcome"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Histogram of per-item fetch and normalize durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(itemsDiscovered)
	prometheus.MustRegister(importOutcomes)
	prometheus.MustRegister(fetchDuration)
}

func RecordDiscovered(source string) {
	itemsDiscovered.WithLabelValues(source).Inc()
}

func RecordOutcome(source, outcome string) {
	importOutcomes.WithLabelValues(source, outcome).Inc()
}

func ObserveFetch(source string, duration time.Duration) {
	fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// Handler returns the HTTP handler exporting the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
