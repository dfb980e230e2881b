package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the automation engine.
type Metrics struct {
	jobsTotal      *prometheus.CounterVec
	emailsAnalyzed prometheus.Counter
	emailsDeleted  prometheus.Counter
	emailsArchived prometheus.Counter
	storageFreed   prometheus.Counter
	batchErrors    prometheus.Counter
	jobDuration    *prometheus.HistogramVec
	stalenessScore prometheus.Histogram
	ticksSkipped   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with Prometheus collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		jobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailkeep_cleanup_jobs_total",
				Help: "Total number of cleanup jobs by type and terminal status",
			},
			[]string{"type", "status"},
		),

		emailsAnalyzed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailkeep_emails_analyzed_total",
				Help: "Total number of emails evaluated by cleanup jobs",
			},
		),

		emailsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailkeep_emails_deleted_total",
				Help: "Total number of emails deleted",
			},
		),

		emailsArchived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailkeep_emails_archived_total",
				Help: "Total number of emails archived",
			},
		),

		storageFreed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailkeep_storage_freed_bytes_total",
				Help: "Total storage reclaimed by cleanup jobs in bytes",
			},
		),

		batchErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailkeep_batch_errors_total",
				Help: "Total number of failed cleanup batches",
			},
		),

		jobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailkeep_cleanup_job_duration_seconds",
				Help:    "Duration of cleanup jobs from start to terminal state",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"type"},
		),

		stalenessScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailkeep_staleness_score",
				Help:    "Distribution of staleness scores for acted-on candidates",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		ticksSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailkeep_continuous_ticks_skipped_total",
				Help: "Continuous-cleanup ticks skipped, by reason",
			},
			[]string{"reason"},
		),
	}
}

// RecordJob records a job reaching a terminal status.
func (m *Metrics) RecordJob(jobType, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(jobType, status).Inc()
	if durationSeconds > 0 {
		m.jobDuration.WithLabelValues(jobType).Observe(durationSeconds)
	}
}

// RecordResults records the outcome counters of a finished run.
func (m *Metrics) RecordResults(analyzed, deleted, archived int, storageFreed int64, errorCount int) {
	if m == nil {
		return
	}
	m.emailsAnalyzed.Add(float64(analyzed))
	m.emailsDeleted.Add(float64(deleted))
	m.emailsArchived.Add(float64(archived))
	m.storageFreed.Add(float64(storageFreed))
	m.batchErrors.Add(float64(errorCount))
}

// ObserveStaleness records one candidate's staleness score.
func (m *Metrics) ObserveStaleness(score float64) {
	if m == nil {
		return
	}
	m.stalenessScore.Observe(score)
}

// RecordSkippedTick records a skipped continuous tick.
func (m *Metrics) RecordSkippedTick(reason string) {
	if m == nil {
		return
	}
	m.ticksSkipped.WithLabelValues(reason).Inc()
}
