// Package metrics exposes Prometheus counters for the editor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ImportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_editor_imports_total",
		Help: "GeoJSON imports by outcome",
	}, []string{"outcome"})
	ImportedFeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_editor_imported_features_total",
		Help: "Features seen by the validator, by classification",
	}, []string{"reason"})
	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_editor_mutations_total",
		Help: "Collection mutations by operation",
	}, []string{"op"})
	SaveFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_editor_save_failures_total",
		Help: "Total persistence save failures",
	})
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poi_editor_notifications_total",
		Help: "Outbound change notifications by sink and status",
	}, []string{"sink", "status"})
	Points = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poi_editor_points",
		Help: "Number of points in the current collection",
	})
)

func init() {
	prometheus.MustRegister(ImportsTotal)
	prometheus.MustRegister(ImportedFeaturesTotal)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(SaveFailuresTotal)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(Points)
}

// Handler serves the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
