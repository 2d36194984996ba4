package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/disclosure-cli/internal/tracker"
)

// Metrics records run outcomes as Prometheus series.
type Metrics struct {
	runs          *prometheus.CounterVec
	records       *prometheus.CounterVec
	rows          prometheus.Counter
	summaries     *prometheus.CounterVec
	backfilled    prometheus.Counter
	runDuration   prometheus.Summary
	lastSuccessTS prometheus.Gauge
}

// NewMetrics creates the run metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disclosure",
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome",
		}, []string{"outcome"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disclosure",
			Name:      "records_total",
			Help:      "Listed records by ingest result",
		}, []string{"result"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disclosure",
			Name:      "rows_appended_total",
			Help:      "Rows written to the store",
		}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disclosure",
			Name:      "summaries_total",
			Help:      "Summaries produced during ingest by strategy",
		}, []string{"strategy"}),
		backfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disclosure",
			Name:      "summaries_backfilled_total",
			Help:      "Stored summaries replaced by backfill",
		}),
		runDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "disclosure",
			Name:      "run_duration_seconds",
			Help:      "Wall time of reconciliation runs",
		}),
		lastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disclosure",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without error",
		}),
	}
	reg.MustRegister(m.runs, m.records, m.rows, m.summaries, m.backfilled, m.runDuration, m.lastSuccessTS)
	return m
}

// Observe adds a finished run to the series.
func (m *Metrics) Observe(report *tracker.RunReport) {
	if report == nil {
		return
	}
	outcome := "success"
	if report.Error != "" {
		outcome = "failure"
	}
	m.runs.WithLabelValues(outcome).Inc()

	m.records.WithLabelValues("new").Add(float64(report.Ingest.New))
	m.records.WithLabelValues("skipped").Add(float64(report.Ingest.Skipped))
	m.records.WithLabelValues("failed").Add(float64(report.Ingest.Failed))
	m.rows.Add(float64(report.Ingest.Rows))
	for strategy, n := range report.Ingest.Strategies {
		m.summaries.WithLabelValues(strategy).Add(float64(n))
	}
	m.backfilled.Add(float64(report.Backfill.Updated))

	if !report.FinishedAt.IsZero() {
		m.runDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		if outcome == "success" {
			m.lastSuccessTS.Set(float64(report.FinishedAt.Unix()))
		}
	}
}
