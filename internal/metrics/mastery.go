package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initMasteryMetrics() {
	m.masteryUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mastery",
		Name:      "updates_total",
		Help:      "Mastery updates by answer outcome",
	}, []string{"outcome"})

	m.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mastery",
		Name:      "state_transitions_total",
		Help:      "Topic lifecycle transitions",
	}, []string{"from", "to"})

	m.misconceptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mastery",
		Name:      "misconceptions_detected_total",
		Help:      "Misconceptions detected by detector",
	}, []string{"detector"})

	m.registry.MustRegister(m.masteryUpdates, m.stateTransitions, m.misconceptions)
}

// RecordMasteryUpdate counts one update and, when the topic changed state,
// the transition.
func (m *Manager) RecordMasteryUpdate(correct bool, fromState, toState string) {
	if m == nil {
		return
	}
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	m.masteryUpdates.WithLabelValues(outcome).Inc()
	if fromState != toState {
		m.stateTransitions.WithLabelValues(fromState, toState).Inc()
	}
}

// RecordMisconception counts a detected misconception.
func (m *Manager) RecordMisconception(detector string) {
	if m == nil {
		return
	}
	m.misconceptions.WithLabelValues(detector).Inc()
}
