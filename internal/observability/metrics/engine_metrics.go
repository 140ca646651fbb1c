package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics instruments ingestion, window resolution and KPI rollups.
type EngineMetrics struct {
	rowsIngested    *prometheus.CounterVec
	rowsSkipped     *prometheus.CounterVec
	integrityErrors *prometheus.CounterVec

	resolveDuration prometheus.Histogram
	resolvedBills   prometheus.Counter
	rollupDuration  *prometheus.HistogramVec
}

func NewEngineMetrics(reg *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{
		rowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arrears_ingest_rows_total",
			Help: "Rows imported into the record store by table.",
		}, []string{"table"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arrears_ingest_rows_skipped_total",
			Help: "Rows excluded at import by table and reason.",
		}, []string{"table", "reason"}),
		integrityErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arrears_integrity_errors_total",
			Help: "Records referencing unknown customers, by record type.",
		}, []string{"record"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arrears_resolve_duration_seconds",
			Help:    "Full window-resolution pass duration.",
			Buckets: prometheus.DefBuckets,
		}),
		resolvedBills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arrears_resolved_bills_total",
			Help: "Bills classified by the window resolver.",
		}),
		rollupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arrears_rollup_duration_seconds",
			Help:    "KPI aggregation duration by dimension.",
			Buckets: prometheus.DefBuckets,
		}, []string{"dimension"}),
	}

	collectors := []prometheus.Collector{
		m.rowsIngested,
		m.rowsSkipped,
		m.integrityErrors,
		m.resolveDuration,
		m.resolvedBills,
		m.rollupDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *EngineMetrics) RowsIngested(table string, n int) {
	if m == nil {
		return
	}
	m.rowsIngested.WithLabelValues(table).Add(float64(n))
}

func (m *EngineMetrics) RowsSkipped(table, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsSkipped.WithLabelValues(table, reason).Add(float64(n))
}

func (m *EngineMetrics) IntegrityErrors(record string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.integrityErrors.WithLabelValues(record).Add(float64(n))
}

func (m *EngineMetrics) ObserveResolve(d time.Duration, bills int) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(d.Seconds())
	m.resolvedBills.Add(float64(bills))
}

func (m *EngineMetrics) ObserveRollup(dimension string, d time.Duration) {
	if m == nil {
		return
	}
	m.rollupDuration.WithLabelValues(dimension).Observe(d.Seconds())
}
