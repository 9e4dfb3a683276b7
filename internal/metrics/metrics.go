// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapharvest_probes_total",
			Help: "Protocol probes attempted, labeled by protocol and outcome.",
		},
		[]string{"protocol", "outcome"},
	)

	servicesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapharvest_services_created_total",
			Help: "Services registered in the catalog, labeled by type.",
		},
		[]string{"type"},
	)

	layersHarvestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapharvest_layers_harvested_total",
			Help: "Layers upserted by a harvest pass, labeled by protocol.",
		},
		[]string{"protocol"},
	)

	harvestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapharvest_harvest_errors_total",
			Help: "Recoverable per-item harvest failures, labeled by protocol.",
		},
		[]string{"protocol"},
	)
)

// ProbeResult records one protocol probe attempt.
func ProbeResult(protocol string, matched bool) {
	outcome := "miss"
	if matched {
		outcome = "match"
	}
	probesTotal.WithLabelValues(protocol, outcome).Inc()
}

// ServiceCreated records one new service registration.
func ServiceCreated(serviceType string) {
	servicesCreatedTotal.WithLabelValues(serviceType).Inc()
}

// LayerHarvested records one layer upsert.
func LayerHarvested(protocol string) {
	layersHarvestedTotal.WithLabelValues(protocol).Inc()
}

// HarvestError records one recoverable per-item failure.
func HarvestError(protocol string) {
	harvestErrorsTotal.WithLabelValues(protocol).Inc()
}
