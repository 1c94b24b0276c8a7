package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for scheduled jobs.
type Metrics struct {
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	JobRunning  *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_job_runs_total",
			Help: "Total job executions, by job, trigger and outcome",
		}, []string{"job", "trigger", "outcome"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dossier_job_duration_seconds",
			Help:    "Duration of job executions",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"job"}),
		JobRunning: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dossier_job_scheduled",
			Help: "1 when the job's timer is running, 0 otherwise",
		}, []string{"job"}),
	}
}

func (m *Metrics) ObserveRun(job, trigger, outcome string, d time.Duration) {
	m.JobRuns.WithLabelValues(job, trigger, outcome).Inc()
	m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) SetRunning(job string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	m.JobRunning.WithLabelValues(job).Set(v)
}
