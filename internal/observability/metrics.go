package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finchat_http_requests_total",
			Help: "HTTP requests by method, matched route and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finchat_http_request_duration_seconds",
			Help:    "HTTP request latency by route. Buckets reach past the slowest pipeline run.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"method", "route", "status"},
	)

	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finchat_pipeline_runs_total",
			Help: "Total number of question pipeline runs by account type and outcome.",
		},
		[]string{"account_type", "status"},
	)
	pipelineStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finchat_pipeline_stage_duration_seconds",
			Help:    "Latency of each pipeline stage.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"stage", "status"},
	)
	chartSynthesisFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finchat_chart_synthesis_failures_total",
			Help: "Chart replies that degraded to no chart, by reason.",
		},
		[]string{"reason"},
	)
	warehouseRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finchat_warehouse_rows_returned",
			Help:    "Rows fetched per warehouse query.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		pipelineRunsTotal,
		pipelineStageDurationSeconds,
		chartSynthesisFailuresTotal,
		warehouseRowsReturned,
	)
}

func ObservePipelineRun(accountType string, err error) {
	pipelineRunsTotal.WithLabelValues(accountType, outcome(err)).Inc()
}

func ObservePipelineStage(stage string, elapsed time.Duration, err error) {
	pipelineStageDurationSeconds.WithLabelValues(stage, outcome(err)).Observe(elapsed.Seconds())
}

func IncrementChartSynthesisFailure(reason string) {
	chartSynthesisFailuresTotal.WithLabelValues(reason).Inc()
}

func ObserveWarehouseRows(count int) {
	if count < 0 {
		count = 0
	}
	warehouseRowsReturned.Observe(float64(count))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
