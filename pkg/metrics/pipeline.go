package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records upload intake and background job outcomes.
type PipelineMetrics struct {
	uploads     *prometheus.CounterVec
	validations *prometheus.CounterVec
	dedupHits   prometheus.Counter
	duration    *prometheus.HistogramVec
	jobSuccess  *prometheus.CounterVec
	jobFailure  *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Upload attempts by intake status.",
	}, []string{"status"})
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Rejected uploads by validation reason.",
	}, []string{"reason"})
	dedupHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dedup_hits_total",
		Help: "Uploads whose content was already known.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of background jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	jobSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful background job executions.",
	}, []string{"job"})
	jobFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed background job executions.",
	}, []string{"job"})
	reg.MustRegister(uploads, validations, dedupHits, duration, jobSuccess, jobFailure)
	return &PipelineMetrics{
		uploads:     uploads,
		validations: validations,
		dedupHits:   dedupHits,
		duration:    duration,
		jobSuccess:  jobSuccess,
		jobFailure:  jobFailure,
	}
}

// IncUpload increments the upload counter for the given intake status.
func (p *PipelineMetrics) IncUpload(status string) {
	if p == nil || p.uploads == nil {
		return
	}
	p.uploads.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncValidationFailure increments the rejection counter for the given reason.
func (p *PipelineMetrics) IncValidationFailure(reason string) {
	if p == nil || p.validations == nil {
		return
	}
	p.validations.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncDedupHit increments the duplicate-content counter.
func (p *PipelineMetrics) IncDedupHit() {
	if p == nil || p.dedupHits == nil {
		return
	}
	p.dedupHits.Inc()
}

// ObserveJobDuration records the duration for the named job.
func (p *PipelineMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncJobSuccess increments the success counter for the named job.
func (p *PipelineMetrics) IncJobSuccess(job string) {
	if p == nil || p.jobSuccess == nil {
		return
	}
	p.jobSuccess.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncJobFailure increments the failure counter for the named job.
func (p *PipelineMetrics) IncJobFailure(job string) {
	if p == nil || p.jobFailure == nil {
		return
	}
	p.jobFailure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
