package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveBooking("booked")
	m.ObserveBooking("booked")
	m.ObserveBooking("conflict")
	m.ObserveTransition("cancelled")
	m.ObservePurged(14)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.bookingAttempts.WithLabelValues("booked")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bookingAttempts.WithLabelValues("conflict")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("cancelled")))
	assert.Equal(t, float64(14), testutil.ToFloat64(m.purgedSlots))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *SchedulingMetrics

	// Components constructed without metrics just no-op.
	m.ObserveBooking("booked")
	m.ObserveTransition("completed")
	m.ObservePurged(3)
}
