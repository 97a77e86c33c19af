// Package metrics aggregates per-operation latency and failure statistics
// over a rolling window.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/teei/docgate/internal/observability/statsd"
)

const (
	defaultMaxSamples = 1024
	defaultMaxAge     = 5 * time.Minute
)

// QueueIntrospector exposes the live lock queue depth. The gauge is read at
// snapshot time, never sampled into the window.
type QueueIntrospector interface {
	QueueDepth() int
}

// Observation is one finished request as seen by the aggregator.
type Observation struct {
	Operation string
	Duration  time.Duration
	// Outcome labels the terminal state, e.g. "pass", "dedup" or a failure
	// kind. Used for the statsd counter tag only.
	Outcome string
	Failed  bool
}

// Snapshot summarizes one operation kind over the current window.
type Snapshot struct {
	Operation         string  `json:"operation"`
	SampleCount       int     `json:"sample_count"`
	P50MS             float64 `json:"p50_ms"`
	P95MS             float64 `json:"p95_ms"`
	P99MS             float64 `json:"p99_ms"`
	ErrorRate         float64 `json:"error_rate"`
	CurrentQueueDepth int     `json:"current_queue_depth"`
}

type sample struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// RecorderOptions configure a Recorder.
type RecorderOptions struct {
	// MaxSamples caps the per-operation ring buffer. Zero means 1024.
	MaxSamples int
	// MaxAge drops samples older than this at read time. Zero means 5 minutes.
	MaxAge time.Duration
	// Queue provides the live queue depth gauge. Optional.
	Queue QueueIntrospector
	// Sink receives a counter and a timing per observation. Optional.
	Sink statsd.Sink
	Now  func() time.Time
}

// Recorder keeps rolling latency/failure windows per operation kind and
// renders percentile snapshots on demand. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	windows map[string][]sample

	maxSamples int
	maxAge     time.Duration
	queue      QueueIntrospector
	sink       statsd.Sink
	now        func() time.Time
}

// NewRecorder builds a Recorder from the supplied options.
func NewRecorder(opts RecorderOptions) *Recorder {
	maxSamples := opts.MaxSamples
	if maxSamples <= 0 {
		maxSamples = defaultMaxSamples
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Recorder{
		windows:    make(map[string][]sample),
		maxSamples: maxSamples,
		maxAge:     maxAge,
		queue:      opts.Queue,
		sink:       opts.Sink,
		now:        nowFn,
	}
}

// Observe records one finished request and forwards it to the statsd sink.
func (r *Recorder) Observe(obs Observation) {
	if obs.Operation == "" {
		obs.Operation = "default"
	}
	now := r.now()

	r.mu.Lock()
	win := append(r.windows[obs.Operation], sample{
		at:       now,
		duration: obs.Duration,
		failed:   obs.Failed,
	})
	if len(win) > r.maxSamples {
		win = win[len(win)-r.maxSamples:]
	}
	r.windows[obs.Operation] = win
	r.mu.Unlock()

	if r.sink != nil {
		tags := map[string]string{"operation": obs.Operation}
		if obs.Outcome != "" {
			tags["outcome"] = obs.Outcome
		}
		r.sink.Count("gate.requests", 1, tags)
		r.sink.Timing("gate.request_duration", obs.Duration, tags)
	}
}

// Snapshot renders the rolling statistics for one operation kind.
func (r *Recorder) Snapshot(operation string) Snapshot {
	cutoff := r.now().Add(-r.maxAge)

	r.mu.Lock()
	win := r.trimLocked(operation, cutoff)
	durations := make([]time.Duration, 0, len(win))
	failures := 0
	for _, s := range win {
		durations = append(durations, s.duration)
		if s.failed {
			failures++
		}
	}
	r.mu.Unlock()

	snap := Snapshot{Operation: operation, SampleCount: len(durations)}
	if r.queue != nil {
		snap.CurrentQueueDepth = r.queue.QueueDepth()
	}
	if len(durations) == 0 {
		return snap
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	snap.P50MS = toMS(percentile(durations, 0.50))
	snap.P95MS = toMS(percentile(durations, 0.95))
	snap.P99MS = toMS(percentile(durations, 0.99))
	snap.ErrorRate = float64(failures) / float64(len(durations))
	return snap
}

// SnapshotAll renders snapshots for every operation seen in the window,
// sorted by operation name.
func (r *Recorder) SnapshotAll() []Snapshot {
	r.mu.Lock()
	ops := make([]string, 0, len(r.windows))
	for op := range r.windows {
		ops = append(ops, op)
	}
	r.mu.Unlock()
	sort.Strings(ops)

	snaps := make([]Snapshot, 0, len(ops))
	for _, op := range ops {
		snaps = append(snaps, r.Snapshot(op))
	}
	return snaps
}

// PublishQueueDepth pushes the live gauge to the statsd sink.
func (r *Recorder) PublishQueueDepth() {
	if r.sink == nil || r.queue == nil {
		return
	}
	r.sink.Gauge("gate.lock_queue_depth", float64(r.queue.QueueDepth()), nil)
}

// trimLocked drops aged-out samples in place. Caller holds r.mu.
func (r *Recorder) trimLocked(operation string, cutoff time.Time) []sample {
	win := r.windows[operation]
	i := 0
	for i < len(win) && win[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		win = win[i:]
		if len(win) == 0 {
			delete(r.windows, operation)
		} else {
			r.windows[operation] = win
		}
	}
	return win
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func toMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
