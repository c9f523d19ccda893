package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the draft service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	rosterMutations *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	creditsSpent    prometheus.Counter
	pricingSyncs    *prometheus.CounterVec
	pricedTeams     prometheus.Counter
	activeSessions  prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rosterMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draft_roster_mutations_total",
			Help: "Accepted roster mutations by operation.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draft_rejections_total",
			Help: "Rejected roster operations by reason.",
		}, []string{"reason"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draft_submissions_total",
			Help: "Roster submission attempts by outcome.",
		}, []string{"outcome"}),
		creditsSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draft_bonus_credits_spent_total",
			Help: "Bonus credits consumed by accepted submissions.",
		}),
		pricingSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draft_pricing_syncs_total",
			Help: "Pricing updates applied per round by outcome.",
		}, []string{"outcome"}),
		pricedTeams: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draft_priced_teams_total",
			Help: "Team prices written by pricing syncs.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "draft_active_sessions",
			Help: "Draft sessions created and not yet submitted by this instance.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "draft_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rosterMutations,
		m.rejections,
		m.submissions,
		m.creditsSpent,
		m.pricingSyncs,
		m.pricedTeams,
		m.activeSessions,
		m.requestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RosterMutation(op string) {
	m.rosterMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) Rejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// Submission records a submission outcome and the credits it consumed
func (m *Metrics) Submission(outcome string, credits int) {
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome == "accepted" {
		m.creditsSpent.Add(float64(credits))
		m.activeSessions.Dec()
	}
}

func (m *Metrics) PricingSync(outcome string, teams int) {
	m.pricingSyncs.WithLabelValues(outcome).Inc()
	m.pricedTeams.Add(float64(teams))
}

func (m *Metrics) SessionCreated() {
	m.activeSessions.Inc()
}

// Instrument wraps next with a latency histogram labelled by route
func (m *Metrics) Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(m.requestDuration.WithLabelValues(route, r.Method))
		defer timer.ObserveDuration()
		next(w, r)
	}
}
