package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("adherence", reg)

	m.DoseStatusChanges.WithLabelValues("taken").Inc()
	m.MissedDosesMarked.Add(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DoseStatusChanges.WithLabelValues("taken")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.MissedDosesMarked))

	// a second set on a separate registry must not panic on duplicate registration
	assert.NotPanics(t, func() { NewNop() })
	assert.NotPanics(t, func() { NewNop() })
}
