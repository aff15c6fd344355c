// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the registration service.
type Metrics struct {
	// Registrations by outcome: "accepted", "rejected", "error"
	Registrations *prometheus.CounterVec

	// Rejected fields by name, one increment per failing field
	Rejections *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_registrations_total",
			Help: "Total registration submissions by outcome",
		}, []string{"outcome"}),

		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registro_rejections_total",
			Help: "Total rejected fields by field name",
		}, []string{"field"}),
	}
}

// ObserveOutcome records one submission outcome.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

// ObserveRejection records one failing field.
func (m *Metrics) ObserveRejection(field string) {
	if m != nil {
		m.Rejections.WithLabelValues(field).Inc()
	}
}
