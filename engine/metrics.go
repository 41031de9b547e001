package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cppla/fitquest/models"
)

// Metrics counts what the engine does. A nil *Metrics records nothing.
type Metrics struct {
	events       *prometheus.CounterVec
	writes       *prometheus.CounterVec
	completions  *prometheus.CounterVec
	skips        *prometheus.CounterVec
	conflicts    prometheus.Counter
	feedFailures prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_progress_events_total",
			Help: "Progress events received, by kind.",
		}, []string{"kind"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_progress_writes_total",
			Help: "Participation progress writes, by challenge type.",
		}, []string{"type"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_challenge_completions_total",
			Help: "Challenges completed, by type and scope.",
		}, []string{"type", "scope"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitquest_progress_skips_total",
			Help: "Participations skipped while applying progress, by reason.",
		}, []string{"reason"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitquest_progress_conflicts_total",
			Help: "Optimistic version conflicts on participation writes.",
		}),
		feedFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitquest_feed_publish_failures_total",
			Help: "Completion announcements that failed to publish.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.writes, m.completions, m.skips, m.conflicts, m.feedFailures)
	}
	return m
}

func (m *Metrics) event(kind EventKind) {
	if m != nil {
		m.events.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) write(t models.ChallengeType) {
	if m != nil {
		m.writes.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) completion(ch *models.Challenge) {
	if m == nil {
		return
	}
	scope := "global"
	if ch.IsCommunity() {
		scope = "community"
	}
	m.completions.WithLabelValues(string(ch.Type), scope).Inc()
}

func (m *Metrics) skip(reason SkipReason) {
	if m != nil {
		m.skips.WithLabelValues(string(reason)).Inc()
	}
}

func (m *Metrics) conflict() {
	if m != nil {
		m.conflicts.Inc()
	}
}

func (m *Metrics) feedFailure() {
	if m != nil {
		m.feedFailures.Inc()
	}
}
