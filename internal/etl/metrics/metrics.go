package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// HTTPAttemptsTotal tracks every outbound attempt, retries included
	HTTPAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketetl_http_attempts_total",
			Help: "Total number of outbound HTTP attempts",
		},
		[]string{"host", "outcome"},
	)

	// HTTPLatency tracks outbound call latency including backoff
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketetl_http_latency_seconds",
			Help:    "Outbound call latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// ProviderAttemptsTotal tracks fallback chain decisions per provider
	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketetl_provider_attempts_total",
			Help: "Fallback chain attempts per provider and outcome",
		},
		[]string{"domain", "provider", "outcome"},
	)

	// StageRunsTotal tracks stage outcomes
	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketetl_stage_runs_total",
			Help: "Total number of stage runs by status",
		},
		[]string{"stage", "status"},
	)

	// StageDuration tracks how long each stage takes end to end
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketetl_stage_duration_seconds",
			Help:    "Stage wall time in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	// StageRowsWritten tracks rows written by the last run of each stage
	StageRowsWritten = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketetl_stage_rows_written",
			Help: "Rows written by the most recent run of the stage",
		},
		[]string{"stage"},
	)

	// LastRunTimestamp is the unix time the last orchestrator run finished
	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketetl_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)
)

// Push sends the default registry to a Pushgateway. One-shot runs exit
// before a scraper could see them.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
