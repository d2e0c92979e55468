// Package metrics exposes Prometheus counters for onboarding operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the onboarding collectors. A nil *Metrics records nothing.
type Metrics struct {
	Operations        *prometheus.CounterVec
	Replays           prometheus.Counter
	RecoveryStarted   prometheus.Counter
	RecoverySucceeded prometheus.Counter
	RecoveryLocked    prometheus.Counter
	RateLimited       prometheus.Counter
	Merges            prometheus.Counter
	Submissions       prometheus.Counter
}

// Handler serves the collectors gathered by reg in the Prometheus text
// format, for binaries that do not use the default registry.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_operations_total",
			Help: "Onboarding operations by name and outcome kind",
		}, []string{"op", "outcome"}),
		Replays: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_turn_replays_total",
			Help: "Turns answered from the replay cache instead of being executed",
		}),
		RecoveryStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_recovery_started_total",
			Help: "Account recoveries initiated",
		}),
		RecoverySucceeded: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_recovery_succeeded_total",
			Help: "Account recoveries that reached the minimum score",
		}),
		RecoveryLocked: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_recovery_locked_total",
			Help: "Account recoveries locked after too many wrong answers",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_recovery_rate_limited_total",
			Help: "Recovery initiations rejected by the attempt window",
		}),
		Merges: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_session_merges_total",
			Help: "Sessions that adopted a verified returning identity",
		}),
		Submissions: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_applications_submitted_total",
			Help: "Completed onboarding submissions",
		}),
	}
}

// ObserveOperation counts one executed operation. outcome is "ok" or the
// failure kind.
func (m *Metrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) IncReplays() {
	if m != nil {
		m.Replays.Inc()
	}
}

func (m *Metrics) IncRecoveryStarted() {
	if m != nil {
		m.RecoveryStarted.Inc()
	}
}

func (m *Metrics) IncRecoverySucceeded() {
	if m != nil {
		m.RecoverySucceeded.Inc()
	}
}

func (m *Metrics) IncRecoveryLocked() {
	if m != nil {
		m.RecoveryLocked.Inc()
	}
}

func (m *Metrics) IncRateLimited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}

func (m *Metrics) IncMerges() {
	if m != nil {
		m.Merges.Inc()
	}
}

func (m *Metrics) IncSubmissions() {
	if m != nil {
		m.Submissions.Inc()
	}
}
