package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for notification delivery.
type Metrics struct {
	Created      *prometheus.CounterVec
	Pushed       prometheus.Counter
	PushFailures prometheus.Counter
	PushSkipped  prometheus.Counter
	BreakerState prometheus.Gauge
	CleanedUp    prometheus.Counter
}

// New registers notification metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_notifications_created_total",
			Help: "Total notifications persisted, by priority",
		}, []string{"priority"}),
		Pushed: f.NewCounter(prometheus.CounterOpts{
			Name: "dossier_notifications_pushed_total",
			Help: "Total notifications pushed to the message broker",
		}),
		PushFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "dossier_notifications_push_failures_total",
			Help: "Total notification pushes that failed",
		}),
		PushSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "dossier_notifications_push_skipped_total",
			Help: "Total notification pushes skipped while the circuit breaker was open",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "dossier_notifications_push_circuit_open",
			Help: "Push circuit breaker state (0=closed, 1=open)",
		}),
		CleanedUp: f.NewCounter(prometheus.CounterOpts{
			Name: "dossier_notifications_cleaned_up_total",
			Help: "Total read notifications deleted by retention cleanup",
		}),
	}
}

func (m *Metrics) IncCreated(priority string) {
	m.Created.WithLabelValues(priority).Inc()
}

func (m *Metrics) IncPushed() {
	m.Pushed.Inc()
}

func (m *Metrics) IncPushFailures() {
	m.PushFailures.Inc()
}

func (m *Metrics) IncPushSkipped() {
	m.PushSkipped.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}

func (m *Metrics) AddCleanedUp(n int) {
	m.CleanedUp.Add(float64(n))
}
