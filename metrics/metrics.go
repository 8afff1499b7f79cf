package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Notifications    *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	ReminderRuns     *prometheus.CounterVec
	RemindersStamped prometheus.Counter
	AutoCompletions  prometheus.Counter
}

// New builds the collectors and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Appointment notifications by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messaging_provider_requests_total",
			Help:      "Requests to the messaging provider by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "messaging_provider_request_duration_seconds",
			Help:      "Latency distribution for messaging provider requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ReminderRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_runs_total",
			Help:      "Reminder scans by outcome.",
		}, []string{"outcome"}),
		RemindersStamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_stamped_total",
			Help:      "Appointments marked as reminded.",
		}),
		AutoCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_auto_completed_total",
			Help:      "Confirmed appointments completed because their time passed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Notifications,
			m.ProviderRequests,
			m.ProviderLatency,
			m.ReminderRuns,
			m.RemindersStamped,
			m.AutoCompletions,
		)
	}
	return m
}

func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ProviderRequest(endpoint, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	m.ProviderLatency.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (m *Metrics) ReminderRun(outcome string, stamped int) {
	if m == nil {
		return
	}
	m.ReminderRuns.WithLabelValues(outcome).Inc()
	m.RemindersStamped.Add(float64(stamped))
}

func (m *Metrics) AutoCompleted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.AutoCompletions.Add(float64(n))
}
