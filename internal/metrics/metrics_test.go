// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package metrics_test

import (
	"testing"

	"codeberg.org/oliverandrich/registro/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New registers on the default registry, so it can only run once per process.
func TestMetrics(t *testing.T) {
	m := metrics.New()
	require.NotNil(t, m)

	m.ObserveOutcome("accepted")
	m.ObserveOutcome("accepted")
	m.ObserveOutcome("rejected")
	m.ObserveRejection("email")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("email")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveOutcome("accepted")
		m.ObserveRejection("email")
	})
}
