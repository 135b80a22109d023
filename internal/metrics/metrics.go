// Package metrics holds the Prometheus collectors for submissions and validations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rejections  *prometheus.CounterVec
	inFlight    prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resume_submissions_total",
				Help: "Total number of finished résumé submissions by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resume_submission_duration_seconds",
				Help:    "Time from submission start to settlement in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resume_validation_rejections_total",
				Help: "Total number of files rejected before submission",
			},
			[]string{"reason"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "resume_submissions_in_flight",
				Help: "Number of submissions waiting for the analyzer",
			},
		),
	}
}

// Settled records a finished submission.
func (m *Metrics) Settled(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.inFlight.Add(delta)
}
