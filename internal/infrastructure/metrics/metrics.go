package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report entitlement activity.
// All methods are safe on a nil receiver so callers can pass nil when
// metrics are disabled.
type Metrics struct {
	decisions *prometheus.CounterVec
	commits   *prometheus.CounterVec
	racesLost *prometheus.CounterVec
	feeQuotes *prometheus.CounterVec
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Supply a fresh registry in tests; a nil registerer falls back to the global
// one. Registration errors panic, mirroring promauto semantics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmalink",
			Subsystem: "entitlements",
			Name:      "quota_decisions_total",
			Help:      "Quota evaluations by feature and verdict.",
		},
		[]string{"feature", "verdict"},
	)
	commits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmalink",
			Subsystem: "entitlements",
			Name:      "usage_commits_total",
			Help:      "Usage increments by feature and outcome.",
		},
		[]string{"feature", "outcome"},
	)
	racesLost := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmalink",
			Subsystem: "entitlements",
			Name:      "commit_races_lost_total",
			Help:      "Commits denied at the storage boundary after an allowing evaluation.",
		},
		[]string{"feature"},
	)
	feeQuotes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pharmalink",
			Subsystem: "entitlements",
			Name:      "fee_quotes_total",
			Help:      "Mission contact fee quotes by tier and pricing path.",
		},
		[]string{"tier", "path"},
	)

	collectors := []prometheus.Collector{decisions, commits, racesLost, feeQuotes}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector {
				case decisions:
					decisions = already.ExistingCollector.(*prometheus.CounterVec)
				case commits:
					commits = already.ExistingCollector.(*prometheus.CounterVec)
				case racesLost:
					racesLost = already.ExistingCollector.(*prometheus.CounterVec)
				case feeQuotes:
					feeQuotes = already.ExistingCollector.(*prometheus.CounterVec)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		decisions: decisions,
		commits:   commits,
		racesLost: racesLost,
		feeQuotes: feeQuotes,
	}
}

// ObserveDecision records a quota evaluation verdict for a feature
func (m *Metrics) ObserveDecision(feature string, allowed bool) {
	if m == nil || m.decisions == nil {
		return
	}
	verdict := "denied"
	if allowed {
		verdict = "allowed"
	}
	m.decisions.WithLabelValues(feature, verdict).Inc()
}

// ObserveCommit records a usage increment outcome for a feature
func (m *Metrics) ObserveCommit(feature string, committed bool) {
	if m == nil || m.commits == nil {
		return
	}
	outcome := "denied"
	if committed {
		outcome = "committed"
	}
	m.commits.WithLabelValues(feature, outcome).Inc()
}

// ObserveRaceLost records a commit denied at the storage boundary
func (m *Metrics) ObserveRaceLost(feature string) {
	if m == nil || m.racesLost == nil {
		return
	}
	m.racesLost.WithLabelValues(feature).Inc()
}

// ObserveFeeQuote records a mission contact quote by pricing path
func (m *Metrics) ObserveFeeQuote(tier string, included bool) {
	if m == nil || m.feeQuotes == nil {
		return
	}
	path := "pay_per_use"
	if included {
		path = "included"
	}
	m.feeQuotes.WithLabelValues(tier, path).Inc()
}
