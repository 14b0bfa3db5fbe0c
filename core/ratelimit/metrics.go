package ratelimit

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	decisions *prometheus.CounterVec
	tokens    *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmbridge",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Admission decisions by provider and outcome.",
		}, []string{"provider", "decision"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llmbridge",
			Subsystem: "ratelimit",
			Name:      "tokens_total",
			Help:      "Tokens recorded by provider.",
		}, []string{"provider"}),
	}
}

// register adds the collectors to reg, reusing collectors that an earlier
// limiter already registered under the same names.
func (m *metrics) register(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	m.decisions = registerCounterVec(reg, m.decisions)
	m.tokens = registerCounterVec(reg, m.tokens)
}

func registerCounterVec(reg prometheus.Registerer, collector *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return collector
}

func (m *metrics) decision(provider string, allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues(provider, outcome).Inc()
}
