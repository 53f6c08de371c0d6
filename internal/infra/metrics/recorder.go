// Package metrics exports reconciliation outcomes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/domain/entity"
)

const namespace = "reconciliation"

// Recorder implements adapter.ReconciliationMetrics.
type Recorder struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	matches     *prometheus.CounterVec
	exceptions  *prometheus.CounterVec
	rate        prometheus.Gauge
	returns     *prometheus.CounterVec
}

var _ adapter.ReconciliationMetrics = (*Recorder)(nil)

// NewRecorder registers the reconciliation collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of reconciliation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Matches produced by reconciliation runs, by type.",
		}, []string{"type"}),
		exceptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exceptions_total",
			Help:      "Exceptions reported by reconciliation runs.",
		}, []string{"type", "severity"}),
		rate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_percent",
			Help:      "Reconciliation rate of the latest successful run.",
		}),
		returns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "returns_total",
			Help:      "Returned payments processed, by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveRun records one run. Report and matches are nil unless the run succeeded.
func (r *Recorder) ObserveRun(status string, duration time.Duration, report *entity.ReconciliationReport, matches []*entity.Match) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration.Seconds())

	for _, m := range matches {
		r.matches.WithLabelValues(string(m.Type)).Inc()
	}

	if report == nil {
		return
	}
	for _, exc := range report.Exceptions {
		r.exceptions.WithLabelValues(string(exc.Type), string(exc.Severity)).Inc()
	}
	rate, _ := report.ReconciliationRate.Float64()
	r.rate.Set(rate)
}

// ObserveReturns records a processed batch of returns.
func (r *Recorder) ObserveReturns(created, failed int) {
	r.returns.WithLabelValues("posted").Add(float64(created))
	r.returns.WithLabelValues("failed").Add(float64(failed))
}
