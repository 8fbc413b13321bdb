package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	businessflow "github.com/steelferguson/basin-climbing-data-pipeline-sub000/business_flow"
)

var (
	// Evaluation runs partitioned by outcome
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of flag evaluation runs",
		},
		[]string{"status"},
	)

	pipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Flag evaluation run latencies in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	pipelineActiveFlags = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_active_flags",
			Help: "Number of live flags after the most recent evaluation run",
		},
	)

	pipelineFlagsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_flags_expired_total",
			Help: "Total number of flags dropped by the expiration pass",
		},
	)

	pipelineExperimentEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_experiment_entries_total",
			Help: "Total number of experiment entries recorded",
		},
	)

	pipelineRunsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_runs_skipped_total",
			Help: "Total number of runs skipped because another run held the lock",
		},
	)

	pipelineImportFiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_import_files_total",
			Help: "Total number of contact export files imported",
		},
	)

	// Resolved contacts partitioned by match tier
	pipelineContactsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_contacts_resolved_total",
			Help: "Total number of contact records resolved, by match outcome",
		},
		[]string{"outcome"},
	)
)

// observeImport records the outcome of one imported contact file.
func observeImport(summary *businessflow.ContactImportSummary) {
	pipelineImportFiles.Inc()
	if summary.Resolution == nil {
		return
	}
	pipelineContactsResolved.WithLabelValues("new_customer").Add(float64(summary.Resolution.NewCustomers))
	pipelineContactsResolved.WithLabelValues("exact").Add(float64(summary.Resolution.ExactMatches))
	pipelineContactsResolved.WithLabelValues("fuzzy").Add(float64(summary.Resolution.FuzzyMatches))
	pipelineContactsResolved.WithLabelValues("skipped").Add(float64(summary.Resolution.Skipped))
}

// observeRun records the outcome of one evaluation run.
func observeRun(summary *businessflow.FlaggingSummary, err error, elapsed time.Duration) {
	pipelineRunDuration.Observe(elapsed.Seconds())
	if err != nil {
		pipelineRunsTotal.WithLabelValues("error").Inc()
		return
	}
	pipelineRunsTotal.WithLabelValues("success").Inc()
	pipelineActiveFlags.Set(float64(summary.ActiveFlags))
	pipelineFlagsExpired.Add(float64(summary.ExpiredFlags))
	pipelineExperimentEntries.Add(float64(summary.ExperimentEntries))
}
