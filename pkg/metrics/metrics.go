package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for registrations, votes, reports and side channels.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Registrations      *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	EmailVerifications *prometheus.CounterVec
	VoteTransitions    *prometheus.CounterVec
	ReportsFiled       prometheus.Counter
	DispatchFailures   *prometheus.CounterVec
	StoreDuration      *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry, including Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "participa_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "participa_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		EmailVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "participa_email_verifications_total",
			Help: "Verification token consumption attempts by outcome",
		}, []string{"outcome"}),
		VoteTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "participa_vote_transitions_total",
			Help: "Vote state transitions applied",
		}, []string{"transition"}),
		ReportsFiled: f.NewCounter(prometheus.CounterOpts{
			Name: "participa_reports_filed_total",
			Help: "Reports filed against proposals",
		}),
		DispatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "participa_dispatch_failures_total",
			Help: "Best-effort side channel failures (verification email, notifications, search index)",
		}, []string{"channel"}),
		StoreDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "participa_request_duration_seconds",
			Help:    "Duration of service operations including record store round trips",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncEmailVerification(outcome string) {
	if m == nil {
		return
	}
	m.EmailVerifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncVoteTransition(transition string) {
	if m == nil {
		return
	}
	m.VoteTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) IncReport() {
	if m == nil {
		return
	}
	m.ReportsFiled.Inc()
}

func (m *Metrics) IncDispatchFailure(channel string) {
	if m == nil {
		return
	}
	m.DispatchFailures.WithLabelValues(channel).Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
