// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Event outcomes recorded by the account service.
const (
	outcomeSuccess  = "success"
	outcomeConflict = "conflict"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Metrics holds the account service counters.
type Metrics struct {
	Events *prometheus.CounterVec
}

// NewMetrics creates the account metrics and registers them with reg.
// A nil registerer leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runcoach_auth_events_total",
				Help: "Registration and login attempts by outcome",
			},
			[]string{"event", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Events)
	}
	return m
}

func (m *Metrics) record(event, outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(event, outcome).Inc()
}
