package match

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the engine recommends. A nil *Metrics records nothing.
type Metrics struct {
	Recommendations *prometheus.CounterVec
	SelectedEnergy  *prometheus.CounterVec
	ClearingMisses  prometheus.Counter
	SlotErrors      prometheus.Counter
	RoundDuration   prometheus.Histogram
}

// NewMetrics creates the engine metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matching_recommendations_total",
			Help: "Bid/offer matches recommended.",
		}, []string{"algorithm"}),
		SelectedEnergy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matching_selected_energy_total",
			Help: "Energy selected by recommended matches, in kWh.",
		}, []string{"algorithm"}),
		ClearingMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matching_clearing_misses_total",
			Help: "Pay-as-clear market slots without a clearing point.",
		}),
		SlotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matching_slot_errors_total",
			Help: "Market slots skipped because of malformed input.",
		}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matching_round_duration_seconds",
			Help:    "Duration of one recommendation round.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Recommendations, m.SelectedEnergy, m.ClearingMisses, m.SlotErrors, m.RoundDuration)
	}
	return m
}

func (m *Metrics) observeMatches(algorithm string, matches []*BidOfferMatch) {
	if m == nil || len(matches) == 0 {
		return
	}
	m.Recommendations.WithLabelValues(algorithm).Add(float64(len(matches)))
	for _, match := range matches {
		energy, _ := match.SelectedEnergy.Float64()
		m.SelectedEnergy.WithLabelValues(algorithm).Add(energy)
	}
}

func (m *Metrics) observeClearingMiss() {
	if m == nil {
		return
	}
	m.ClearingMisses.Inc()
}

func (m *Metrics) observeSlotError() {
	if m == nil {
		return
	}
	m.SlotErrors.Inc()
}

func (m *Metrics) observeRound(start time.Time) {
	if m == nil {
		return
	}
	m.RoundDuration.Observe(time.Since(start).Seconds())
}
