// Package perf provides multi-stage performance accounting for pipeline runs.
// A Tracker collects named stage samples from any number of concurrently
// executing pipelines; aggregates are computed over the full sample set.
//
// Instrumentation must never alter the outcome of the work it wraps: a nil
// Tracker is a safe no-op, Span.End is idempotent, and Track re-panics after
// recording its sample.
package perf

import (
	"sync"
	"time"

	"graphrag/internal/logging"
)

// Sample is a single recorded stage execution. Samples are append-only for
// the lifetime of a Tracker and only removed in bulk by Reset.
type Sample struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// StageStats aggregates all samples of one stage.
type StageStats struct {
	Count   int           `json:"count"`
	Mean    time.Duration `json:"mean_ns"`
	Min     time.Duration `json:"min_ns"`
	Max     time.Duration `json:"max_ns"`
	Total   time.Duration `json:"total_ns"`
	Percent float64       `json:"percent"`
}

// Tracker records elapsed time of named pipeline stages.
type Tracker struct {
	mu      sync.Mutex
	samples []Sample
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Span is an in-flight stage measurement. Obtain one from StartStage and
// finish it with a deferred End so the sample is recorded on every exit path.
type Span struct {
	tracker *Tracker
	stage   string
	start   time.Time
	done    bool
	mu      sync.Mutex
}

// StartStage begins timing the named stage. Safe on a nil tracker.
func (t *Tracker) StartStage(name string) *Span {
	return &Span{tracker: t, stage: name, start: time.Now()}
}

// End records the sample. Exactly one sample is recorded per span no matter
// how many times End runs; calling End on a span from a nil tracker is a
// no-op.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.mu.Unlock()
	s.tracker.record(s.stage, time.Since(s.start))
}

// Track runs fn inside a span for the named stage. The sample is recorded
// whether fn returns normally, returns an error, or panics (the panic is
// re-raised after recording).
func (t *Tracker) Track(name string, fn func() error) error {
	span := t.StartStage(name)
	defer span.End()
	return fn()
}

func (t *Tracker) record(stage string, d time.Duration) {
	if t == nil {
		return
	}
	if d < 0 {
		// Clock went backwards; clamp rather than poison the aggregates.
		d = 0
	}
	t.mu.Lock()
	t.samples = append(t.samples, Sample{Stage: stage, Duration: d, At: time.Now()})
	t.mu.Unlock()
	logging.Get(logging.CategoryPerf).Debug("stage %s took %v", stage, d)
}

// Samples returns a copy of all recorded samples in recording order.
func (t *Tracker) Samples() []Sample {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Breakdown aggregates every recorded sample per stage. Percent is each
// stage's share of the summed totals; when the window has zero total time all
// percentages are 0 rather than NaN.
func (t *Tracker) Breakdown() map[string]StageStats {
	return breakdownOf(t.Samples())
}

// Reset discards all recorded samples.
func (t *Tracker) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.samples = nil
	t.mu.Unlock()
}
