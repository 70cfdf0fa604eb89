// File: metrics/metrics.go
// Package metrics provides lightweight, allocation-free counters a
// link can optionally report into. Purely observational: nothing in
// this package ever influences engine control flow, keeping the core
// link state machine free of side effects per its own contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package metrics

import "sync/atomic"

// LinkStats accumulates per-link counters. The zero value is ready to
// use. All methods are safe to call from the single goroutine that
// owns the link; atomics are used so a concurrent reader (e.g. a
// metrics exporter on another goroutine) can sample them without
// locking.
type LinkStats struct {
	framesIn  int64
	framesOut int64
	bytesIn   int64
	bytesOut  int64
	errors    int64
}

// AddFrameIn records one received frame of n bytes.
func (s *LinkStats) AddFrameIn(n int) {
	atomic.AddInt64(&s.framesIn, 1)
	atomic.AddInt64(&s.bytesIn, int64(n))
}

// AddFrameOut records one sent frame of n bytes.
func (s *LinkStats) AddFrameOut(n int) {
	atomic.AddInt64(&s.framesOut, 1)
	atomic.AddInt64(&s.bytesOut, int64(n))
}

// AddError records one ERROR event surfaced by Poll.
func (s *LinkStats) AddError() {
	atomic.AddInt64(&s.errors, 1)
}

// Snapshot is a point-in-time copy of a LinkStats' counters.
type Snapshot struct {
	FramesIn  int64
	FramesOut int64
	BytesIn   int64
	BytesOut  int64
	Errors    int64
}

// Snapshot returns the current counter values.
func (s *LinkStats) Snapshot() Snapshot {
	return Snapshot{
		FramesIn:  atomic.LoadInt64(&s.framesIn),
		FramesOut: atomic.LoadInt64(&s.framesOut),
		BytesIn:   atomic.LoadInt64(&s.bytesIn),
		BytesOut:  atomic.LoadInt64(&s.bytesOut),
		Errors:    atomic.LoadInt64(&s.errors),
	}
}
