package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	rec.IncCounter(PollOutcome, map[string]string{"outcome": "pending"})
	rec.IncCounter(PollOutcome, map[string]string{"outcome": "pending"})
	rec.IncCounter(PollOutcome, map[string]string{"outcome": "confirmed"})
	rec.ObserveLatency(BackendCall, 20*time.Millisecond, map[string]string{"outcome": "ok"})

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.counters.WithLabelValues(PollOutcome, "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.counters.WithLabelValues(PollOutcome, "confirmed")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.histogram))
}

func TestPrometheusRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err)
}
