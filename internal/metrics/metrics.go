// Package metrics provides the MetricsRecorder interface and a noop implementation.
package metrics

import "time"

// MetricsRecorder is the interface for recording operational metrics:
// per-tier cache hit/miss counts and per-schema serialization latency and
// error counts.
type MetricsRecorder interface {
	RecordHit(tier, schema string)
	RecordMiss(tier, schema string)
	RecordLatency(schema, op string, d time.Duration)
	RecordError(schema, op string)
}

// Noop is a MetricsRecorder that discards all data.
type Noop struct{}

func (Noop) RecordHit(tier, schema string)                   {}
func (Noop) RecordMiss(tier, schema string)                  {}
func (Noop) RecordLatency(schema, op string, d time.Duration) {}
func (Noop) RecordError(schema, op string)                   {}
