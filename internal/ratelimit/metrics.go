package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// Admission outcomes recorded by Metrics
const (
	OutcomeAdmitted = "admitted"
	OutcomeQueued   = "queued"
	OutcomeRejected = "rejected"
)

// Metrics records limiter activity. A nil *Metrics records nothing.
type Metrics struct {
	decisions  *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
}

// NewMetrics creates limiter metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dormo_ratelimit_decisions_total",
			Help: "Rate limiter admission decisions by policy and outcome",
		}, []string{"policy", "outcome"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dormo_ratelimit_queue_depth",
			Help: "Requests currently waiting for a permit",
		}, []string{"policy"}),
	}
	reg.MustRegister(m.decisions, m.queueDepth)
	return m
}

func (m *Metrics) record(policy, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(policy, outcome).Inc()
}

func (m *Metrics) setQueueDepth(policy string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(policy).Set(float64(depth))
}
