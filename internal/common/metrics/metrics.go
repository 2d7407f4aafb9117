package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ChartRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_chart_recommendations_total",
			Help: "Charts recommended by the matcher",
		},
		[]string{"family", "variant"},
	)

	ChartValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_chart_validations_total",
			Help: "Externally chosen charts checked against the matcher",
		},
		[]string{"valid"},
	)

	FollowupSuggestions = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insight_followup_suggestions",
			Help:    "Number of follow-up suggestions returned per answer",
			Buckets: []float64{0, 1, 2, 3, 4},
		},
	)

	FollowupSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_followup_suppressed_total",
			Help: "Catalogue candidates suppressed because the answer already covers them",
		},
		[]string{"dimension"},
	)
)

// JobStarted marks a job active and returns a func that records its duration
// and outcome. errorCode is empty on success.
// CompleteFailed labels jobs whose result was computed but never reached the
// broker.
const CompleteFailed = "COMPLETE_FAILED"

func JobStarted(taskType string) func(errorCode string) {
	start := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()

	return func(errorCode string) {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		if errorCode == "" {
			WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}

func RecordChartRecommendation(family, variant string) {
	if variant == "" {
		variant = "none"
	}
	ChartRecommendations.WithLabelValues(family, variant).Inc()
}

func RecordChartValidation(valid bool) {
	ChartValidations.WithLabelValues(strconv.FormatBool(valid)).Inc()
}
