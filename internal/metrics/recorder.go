// Package metrics exposes Prometheus metrics for runs and lanes.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docship/internal/runner"
)

// PrometheusRecorder implements runner.Observer using Prometheus metrics.
type PrometheusRecorder struct {
	runner.NopObserver
	laneDuration *prom.HistogramVec
	laneResults  *prom.CounterVec
	runDuration  prom.Histogram
	runOutcome   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics. The registry
// must not already hold a recorder; register once per process.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		laneDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docship",
			Name:      "lane_duration_seconds",
			Help:      "Duration of individual matrix lanes",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		laneResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docship",
			Name:      "lane_results_total",
			Help:      "Lane result counts by outcome",
		}, []string{"stage", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docship",
			Name:      "run_duration_seconds",
			Help:      "Total matrix run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docship",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.laneDuration, pr.laneResults, pr.runDuration, pr.runOutcome)
	return pr
}

func (pr *PrometheusRecorder) LaneFinished(_ string, result runner.Result) {
	pr.laneDuration.WithLabelValues(result.Job.Stage).Observe(result.Duration.Seconds())
	pr.laneResults.WithLabelValues(result.Job.Stage, string(result.Status)).Inc()
}

func (pr *PrometheusRecorder) RunFinished(report *runner.Report) {
	pr.runDuration.Observe(report.Duration.Seconds())
	outcome := "passed"
	if report.Failed() {
		outcome = "failed"
	}
	pr.runOutcome.WithLabelValues(outcome).Inc()
}

var _ runner.Observer = (*PrometheusRecorder)(nil)
