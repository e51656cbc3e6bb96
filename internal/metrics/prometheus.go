// Package metrics provides Prometheus-based metrics recording for goal dispatch.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
)

// PrometheusRecorder implements the dispatcher's Recorder on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	goalsTotal        *prometheus.CounterVec
	feedbackTotal     prometheus.Counter
	distanceRemaining prometheus.Gauge
	goalDuration      *prometheus.HistogramVec
	serverWait        *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		goalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navgoal_goals_total",
				Help: "Total number of resolved goals by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		feedbackTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "navgoal_feedback_total",
				Help: "Total number of feedback messages received",
			},
		),
		distanceRemaining: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "navgoal_distance_remaining_meters",
				Help: "Distance remaining reported by the last feedback message",
			},
		),
		goalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "navgoal_goal_duration_seconds",
				Help:    "Time from goal submission to resolved outcome",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
		serverWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "navgoal_server_wait_seconds",
				Help:    "Time spent waiting for the action server",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"available"},
		),
	}
}

// ObserveServerWait records how long the availability check took.
func (p *PrometheusRecorder) ObserveServerWait(d time.Duration, available bool) {
	label := "false"
	if available {
		label = "true"
	}
	p.serverWait.WithLabelValues(label).Observe(d.Seconds())
}

// ObserveFeedback counts a feedback message and tracks its distance.
func (p *PrometheusRecorder) ObserveFeedback(f nav.Feedback) {
	p.feedbackTotal.Inc()
	p.distanceRemaining.Set(f.DistanceRemaining)
}

// ObserveResult records a resolved goal.
func (p *PrometheusRecorder) ObserveResult(res nav.Result) {
	outcome := res.Outcome.String()
	p.goalsTotal.WithLabelValues(outcome, string(res.Reason)).Inc()
	if d := res.Duration(); d > 0 {
		p.goalDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
