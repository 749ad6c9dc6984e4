package txengine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks submission outcomes. Pass a dedicated Registry in tests to
// avoid duplicate registration.
type Metrics struct {
	sendSuccess     prometheus.Counter
	sendFailure     prometheus.Counter
	confirmations   *prometheus.CounterVec
	attempts        prometheus.Histogram
	confirmDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		sendSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "txkit_send_success_total",
			Help: "Total number of successful transaction sends",
		}),
		sendFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "txkit_send_failure_total",
			Help: "Total number of failed transaction sends",
		}),
		confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "txkit_confirmations_total",
			Help: "Confirmation results by terminal status",
		}, []string{"status"}),
		attempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txkit_submission_attempts",
			Help:    "Attempts consumed per logical submission",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		confirmDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txkit_confirmation_duration_seconds",
			Help:    "Time from send to terminal confirmation status",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
}

func (m *Metrics) SendSucceeded() { m.sendSuccess.Inc() }
func (m *Metrics) SendFailed()    { m.sendFailure.Inc() }

func (m *Metrics) ObserveConfirmation(status ConfirmationStatus, start time.Time) {
	m.confirmations.WithLabelValues(status.String()).Inc()
	m.confirmDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveAttempts(n int) {
	m.attempts.Observe(float64(n))
}
