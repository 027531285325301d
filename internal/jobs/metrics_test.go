package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, metrics.Track("docno:audit").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, metrics.Track("docno:audit").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("docno:audit", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("docno:audit", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("docno:audit")))
}

func TestSetFindingsOverwrites(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.SetFindings("booking:divergence", 4)
	metrics.SetFindings("booking:divergence", 1)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.findings.WithLabelValues("booking:divergence")))
}

func TestNilMetricsTrackerIsNoop(t *testing.T) {
	var metrics *Metrics
	metrics.SetFindings("x", 1)
	boom := errors.New("boom")
	require.ErrorIs(t, metrics.Track("x").End(boom), boom)
}
