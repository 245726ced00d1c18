// Package metrics holds process-wide serving counters. Counters are plain
// atomics with relaxed ordering semantics: values are eventually consistent
// across goroutines and carry no ordering relative to other memory effects.
package metrics

import "sync/atomic"

// Metrics counts queries received and queries dropped for parse failure.
// A single instance is constructed at startup and shared by injection; it is
// safe for concurrent use.
type Metrics struct {
	queries       atomic.Uint64
	parseFailures atomic.Uint64
}

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	Queries       uint64
	ParseFailures uint64
}

// New returns a Metrics instance with all counters at zero.
func New() *Metrics {
	return &Metrics{}
}

// RecordQuery increments the total query counter.
func (m *Metrics) RecordQuery() {
	m.queries.Add(1)
}

// RecordParseFailure increments the dropped-for-parse-failure counter.
func (m *Metrics) RecordParseFailure() {
	m.parseFailures.Add(1)
}

// Read returns a snapshot of the current counter values.
func (m *Metrics) Read() Snapshot {
	return Snapshot{
		Queries:       m.queries.Load(),
		ParseFailures: m.parseFailures.Load(),
	}
}
