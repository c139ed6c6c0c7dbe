package reduce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus-compatible metrics for a running reduction
// search, namespaced "preduce_":
//
//   - queue_depth (gauge): unjudged candidates waiting in the ReductionQueue.
//   - active_workers (gauge): workers currently testing a candidate.
//   - reducers_active (gauge): reducer actors still producing candidates.
//   - oracle_score (gauge, labeled by reducer_id): each reducer's current
//     interesting-rate, the same value the queue dispatches on.
//   - candidates_judged_total (counter, labeled by verdict): cumulative
//     judged candidates, verdict one of "interesting"/"not_interesting".
//   - merges_total (counter, labeled by outcome): outcome one of
//     "worthwhile"/"not_worthwhile".
type Metrics struct {
	queueDepth     prometheus.Gauge
	activeWorkers  prometheus.Gauge
	reducersActive prometheus.Gauge
	oracleScore    *prometheus.GaugeVec
	judged         *prometheus.CounterVec
	merges         *prometheus.CounterVec
}

// NewMetrics registers all reduction-search metrics with registry (the
// default registerer if nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	f := promauto.With(registry)

	return &Metrics{
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "preduce",
			Name:      "queue_depth",
			Help:      "Unjudged candidates currently queued for a worker",
		}),
		activeWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "preduce",
			Name:      "active_workers",
			Help:      "Workers currently testing a candidate against the predicate",
		}),
		reducersActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "preduce",
			Name:      "reducers_active",
			Help:      "Reducer actors that have not yet exhausted their sequence",
		}),
		oracleScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "preduce",
			Name:      "oracle_score",
			Help:      "Current interesting-rate for a reducer, as used for dispatch priority",
		}, []string{"reducer_id"}),
		judged: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "preduce",
			Name:      "candidates_judged_total",
			Help:      "Cumulative candidates judged by the predicate, by verdict",
		}, []string{"verdict"}),
		merges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "preduce",
			Name:      "merges_total",
			Help:      "Cumulative three-way merge attempts between independent reductions, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) SetQueueDepth(n int)     { m.queueDepth.Set(float64(n)) }
func (m *Metrics) SetActiveWorkers(n int)  { m.activeWorkers.Set(float64(n)) }
func (m *Metrics) SetReducersActive(n int) { m.reducersActive.Set(float64(n)) }

func (m *Metrics) SetOracleScore(reducerID string, score float64) {
	m.oracleScore.WithLabelValues(reducerID).Set(score)
}

func (m *Metrics) RecordJudged(verdict Verdict) {
	if verdict == Judged {
		m.judged.WithLabelValues("interesting").Inc()
		return
	}
	m.judged.WithLabelValues("not_interesting").Inc()
}

func (m *Metrics) RecordMerge(worthwhile bool) {
	if worthwhile {
		m.merges.WithLabelValues("worthwhile").Inc()
		return
	}
	m.merges.WithLabelValues("not_worthwhile").Inc()
}
