package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentSagaMetrics records outcomes for queue actions and their
// compensating entries.
type PaymentSagaMetrics struct {
	duration     *prometheus.HistogramVec
	success      *prometheus.CounterVec
	failure      *prometheus.CounterVec
	compensation *prometheus.CounterVec
}

// NewPaymentSagaMetrics registers the payment saga metrics on the provided registerer.
func NewPaymentSagaMetrics(reg prometheus.Registerer) *PaymentSagaMetrics {
	if reg == nil {
		return &PaymentSagaMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queue_action_duration_seconds",
		Help:    "Duration of order queue actions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_action_success",
		Help: "Successful order queue actions.",
	}, []string{"action"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_action_failure",
		Help: "Failed order queue actions.",
	}, []string{"action"})
	compensation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_compensation_total",
		Help: "Compensating cash entries written after a failed status command.",
	}, []string{"result"})
	reg.MustRegister(duration, success, failure, compensation)
	return &PaymentSagaMetrics{
		duration:     duration,
		success:      success,
		failure:      failure,
		compensation: compensation,
	}
}

// ObserveDuration records the duration for the named action.
func (m *PaymentSagaMetrics) ObserveDuration(action string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(action)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named action.
func (m *PaymentSagaMetrics) IncSuccess(action string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncFailure increments the failure counter for the named action.
func (m *PaymentSagaMetrics) IncFailure(action string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncCompensation counts a compensating entry attempt by result ("ok" or "failed").
func (m *PaymentSagaMetrics) IncCompensation(result string) {
	if m == nil || m.compensation == nil {
		return
	}
	m.compensation.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(action string) string {
	if action == "" {
		return "unknown"
	}
	return action
}
