// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package stream

import "github.com/prometheus/client_golang/prometheus"

// Metrics records the activity of stream sessions. A single Metrics may be
// shared by any number of sessions, and is safe for concurrent use. A nil
// *Metrics records nothing.
type Metrics struct {
	bytes    prometheus.Counter
	items    prometheus.Counter
	sessions *prometheus.CounterVec
}

// NewMetrics constructs a Metrics and registers its collectors with reg.
// The component name is attached to each metric as a constant label, so
// that several session pools may share a registry.
func NewMetrics(reg prometheus.Registerer, component string) (*Metrics, error) {
	labels := prometheus.Labels{"component": component}
	m := &Metrics{
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "jsonish",
			Subsystem:   "stream",
			Name:        "bytes_total",
			ConstLabels: labels,
			Help:        "Total bytes of input accepted by stream sessions",
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "jsonish",
			Subsystem:   "stream",
			Name:        "items_total",
			ConstLabels: labels,
			Help:        "Total number of values parsed by stream sessions",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "jsonish",
			Subsystem:   "stream",
			Name:        "sessions_total",
			ConstLabels: labels,
			Help:        "Total number of stream sessions completed, by result",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.bytes, m.items, m.sessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) addBytes(n int) {
	if m != nil {
		m.bytes.Add(float64(n))
	}
}

func (m *Metrics) addItems(n int) {
	if m != nil {
		m.items.Add(float64(n))
	}
}

// finish records a terminal outcome. The result is "ok" or the kind of the
// error that ended the session.
func (m *Metrics) finish(result string) {
	if m != nil {
		m.sessions.WithLabelValues(result).Inc()
	}
}
