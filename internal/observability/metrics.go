package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec
	gradeBatchesTotal   prometheus.Counter
	gradeJobsTotal      *prometheus.CounterVec
	uploadLatency       prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		gradeBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autograde_batches_total",
			Help: "Total number of auto-grading batch runs.",
		})

		gradeJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autograde_jobs_total",
			Help: "Auto-grading jobs by terminal outcome.",
		}, []string{"outcome"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency distribution for attachment uploads.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			gradeBatchesTotal,
			gradeJobsTotal,
			uploadLatency,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// GradeBatches exposes the counter for auto-grading batch runs.
func GradeBatches() prometheus.Counter {
	RegisterMetrics()
	return gradeBatchesTotal
}

// GradeJobs exposes the per-outcome counter for auto-grading jobs.
func GradeJobs() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeJobsTotal
}

// UploadLatency exposes the histogram tracking attachment upload latency.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}
