package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the reminder engine.
type Metrics struct {
	RemindersSent       *prometheus.CounterVec
	RemindersThrottled  *prometheus.CounterVec
	ReminderFailures    *prometheus.CounterVec
	FlaggedForReview    *prometheus.CounterVec
	RequirementsExpired *prometheus.CounterVec
	ReminderLogsPurged  prometheus.Counter
	PipelineRunDuration prometheus.Histogram
}

// New registers the reminder engine metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RemindersSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_reminders_sent_total",
			Help: "Total reminders sent, by pass and reminder type",
		}, []string{"pass", "type"}),
		RemindersThrottled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_reminders_throttled_total",
			Help: "Total reminders held back by cooldown or a concurrent claim",
		}, []string{"pass", "type"}),
		ReminderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_reminder_failures_total",
			Help: "Total requirements whose processing failed, by pass",
		}, []string{"pass"}),
		FlaggedForReview: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_requirements_flagged_total",
			Help: "Total requirements skipped for missing or invalid policy, by pass",
		}, []string{"pass"}),
		RequirementsExpired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_requirements_expired_total",
			Help: "Total requirements transitioned to expired, by source",
		}, []string{"source"}),
		ReminderLogsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "dossier_reminder_logs_purged_total",
			Help: "Total reminder log entries removed by retention",
		}),
		PipelineRunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dossier_reminder_pipeline_duration_seconds",
			Help:    "Duration of full reminder pipeline runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

func (m *Metrics) IncSent(pass, reminderType string) {
	m.RemindersSent.WithLabelValues(pass, reminderType).Inc()
}

func (m *Metrics) IncThrottled(pass, reminderType string) {
	m.RemindersThrottled.WithLabelValues(pass, reminderType).Inc()
}

func (m *Metrics) IncFailed(pass string) {
	m.ReminderFailures.WithLabelValues(pass).Inc()
}

func (m *Metrics) IncFlagged(pass string) {
	m.FlaggedForReview.WithLabelValues(pass).Inc()
}

func (m *Metrics) AddExpired(source string, n int) {
	m.RequirementsExpired.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) AddLogsPurged(n int) {
	m.ReminderLogsPurged.Add(float64(n))
}

func (m *Metrics) ObserveRun(d time.Duration) {
	m.PipelineRunDuration.Observe(d.Seconds())
}
