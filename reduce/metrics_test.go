package reduce

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m io_prometheus_client.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m io_prometheus_client.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsSettersUpdateGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetQueueDepth(7)
	m.SetActiveWorkers(3)
	m.SetReducersActive(2)
	m.SetOracleScore("chunks", 0.5)

	assert.Equal(t, float64(7), gaugeValue(t, m.queueDepth))
	assert.Equal(t, float64(3), gaugeValue(t, m.activeWorkers))
	assert.Equal(t, float64(2), gaugeValue(t, m.reducersActive))
	assert.Equal(t, float64(0.5), gaugeValue(t, m.oracleScore.WithLabelValues("chunks")))
}

func TestMetricsRecordJudgedSplitsByVerdict(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordJudged(Judged)
	m.RecordJudged(Judged)
	m.RecordJudged(NotInteresting)

	assert.Equal(t, float64(2), counterValue(t, m.judged.WithLabelValues("interesting")))
	assert.Equal(t, float64(1), counterValue(t, m.judged.WithLabelValues("not_interesting")))
}

func TestMetricsRecordMergeSplitsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordMerge(true)
	m.RecordMerge(false)
	m.RecordMerge(false)

	assert.Equal(t, float64(1), counterValue(t, m.merges.WithLabelValues("worthwhile")))
	assert.Equal(t, float64(2), counterValue(t, m.merges.WithLabelValues("not_worthwhile")))
}
