package handlers

import "github.com/prometheus/client_golang/prometheus"

type ContentMetrics struct {
	Generations    *prometheus.CounterVec // operation, outcome
	CreditsCharged *prometheus.CounterVec // operation
}

func (m *ContentMetrics) IncGeneration(operation, outcome string) {
	if m == nil || m.Generations == nil {
		return
	}
	m.Generations.WithLabelValues(operation, outcome).Inc()
}

func (m *ContentMetrics) AddCredits(operation string, credits int) {
	if m == nil || m.CreditsCharged == nil || credits <= 0 {
		return
	}
	m.CreditsCharged.WithLabelValues(operation).Add(float64(credits))
}
