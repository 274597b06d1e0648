// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "atlas"

var (
	// Registry is the server's private registry; nothing registers globally.
	Registry = prometheus.NewRegistry()

	// ProviderSelections counts manual provider changes by requested id.
	// "auto" is recorded when an override is cleared.
	ProviderSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_selections_total",
			Help:      "Manual tile provider selections",
		},
		[]string{"provider"},
	)

	// ThemeChanges counts theme preference updates by resulting theme.
	ThemeChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "theme_changes_total",
			Help:      "Theme preference changes",
		},
		[]string{"theme"},
	)

	// CountryFetches counts REST Countries lookups by outcome
	// (ok, error, not_found, superseded).
	CountryFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "country_fetches_total",
			Help:      "Country info fetches",
		},
		[]string{"result"},
	)

	// POIsPlaced counts POIs created from the map or the API.
	POIsPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pois_placed_total",
			Help:      "Points of interest placed",
		},
	)

	// Sessions tracks live map sessions.
	Sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live map sessions",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ProviderSelections,
		ThemeChanges,
		CountryFetches,
		POIsPlaced,
		Sessions,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
