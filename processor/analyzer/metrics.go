package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes worker counters. Failures are labeled by the pipeline
// stage reached when the terminal failure occurred.
type Metrics struct {
	Received prometheus.Counter
	Analyzed prometheus.Counter
	Skipped  prometheus.Counter
	Failed   *prometheus.CounterVec
}

// NewMetrics creates worker metrics registered on reg. A nil registerer
// yields unregistered collectors, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Received: factory.NewCounter(prometheus.CounterOpts{
			Name: "contratai_analysis_messages_received_total",
			Help: "Analysis messages fetched from the broker.",
		}),
		Analyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "contratai_analysis_contracts_analyzed_total",
			Help: "Contracts that reached the ANALYZED state.",
		}),
		Skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "contratai_analysis_duplicates_skipped_total",
			Help: "Messages skipped because an identical payload was in flight.",
		}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contratai_analysis_failures_total",
			Help: "Terminal analysis failures by pipeline stage.",
		}, []string{"stage"}),
	}
}
