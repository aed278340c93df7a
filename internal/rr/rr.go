// Package rr accumulates validated inter-beat (RR) intervals. It is pure
// business logic: time is injected as beat timestamps and nothing here
// blocks or allocates beyond the fixed window.
package rr

import "time"

// Config holds the accumulator tunables.
type Config struct {
	// MinIntervalMs and MaxIntervalMs bound physiologically valid
	// intervals (300-2000ms covers 30-200 BPM). Intervals outside the
	// range are discarded as detection noise.
	MinIntervalMs float64
	MaxIntervalMs float64

	// Capacity is the sliding-window size; roughly one minute of beats at
	// resting heart rate. The oldest interval is evicted once full.
	Capacity int
}

// DefaultConfig returns the standard accumulator tuning.
func DefaultConfig() Config {
	return Config{
		MinIntervalMs: 300,
		MaxIntervalMs: 2000,
		Capacity:      60,
	}
}

// Window is a fixed-capacity FIFO of RR intervals in milliseconds.
// Not safe for concurrent use; the owning session synchronizes access.
type Window struct {
	buf      []float64
	capacity int
	head     int // next write position
	count    int
}

// NewWindow creates a window holding at most capacity intervals.
// A non-positive capacity falls back to the default window size.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultConfig().Capacity
	}
	return &Window{
		buf:      make([]float64, capacity),
		capacity: capacity,
	}
}

// Push appends an interval, evicting the oldest once full.
func (w *Window) Push(ms float64) {
	w.buf[w.head] = ms
	w.head = (w.head + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

// Values returns the intervals oldest-first as a fresh slice.
func (w *Window) Values() []float64 {
	if w.count == 0 {
		return nil
	}
	out := make([]float64, w.count)
	start := (w.head - w.count + w.capacity) % w.capacity
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(start+i)%w.capacity]
	}
	return out
}

// Len returns the number of intervals currently held.
func (w *Window) Len() int {
	return w.count
}

// Reset empties the window.
func (w *Window) Reset() {
	w.head = 0
	w.count = 0
}

// Accumulator converts consecutive beat timestamps into validated RR
// intervals held in a sliding window.
type Accumulator struct {
	cfg      Config
	win      *Window
	lastBeat time.Time
	haveBeat bool
	accepted int
	rejected int
}

// NewAccumulator creates an accumulator with the given tuning. A
// non-positive capacity falls back to the default window size.
func NewAccumulator(cfg Config) *Accumulator {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	return &Accumulator{
		cfg: cfg,
		win: NewWindow(cfg.Capacity),
	}
}

// Observe records a beat timestamp. If a previous beat exists, the delta is
// validated against the configured bounds and retained when valid. The last
// beat always advances to t, even when the interval is rejected, so one
// missed detection does not poison the next interval as well.
func (a *Accumulator) Observe(t time.Time) (intervalMs float64, accepted bool) {
	if !a.haveBeat {
		a.haveBeat = true
		a.lastBeat = t
		return 0, false
	}

	intervalMs = float64(t.Sub(a.lastBeat)) / float64(time.Millisecond)
	a.lastBeat = t

	if intervalMs < a.cfg.MinIntervalMs || intervalMs > a.cfg.MaxIntervalMs {
		a.rejected++
		return intervalMs, false
	}

	a.win.Push(intervalMs)
	a.accepted++
	return intervalMs, true
}

// Intervals returns the current window contents oldest-first.
func (a *Accumulator) Intervals() []float64 {
	return a.win.Values()
}

// Len returns the number of intervals in the window.
func (a *Accumulator) Len() int {
	return a.win.Len()
}

// Counts returns how many intervals were accepted and rejected since the
// last reset.
func (a *Accumulator) Counts() (accepted, rejected int) {
	return a.accepted, a.rejected
}

// LastBeat returns the most recent beat timestamp.
func (a *Accumulator) LastBeat() (time.Time, bool) {
	return a.lastBeat, a.haveBeat
}

// Reset clears the window and all beat state.
func (a *Accumulator) Reset() {
	a.win.Reset()
	a.lastBeat = time.Time{}
	a.haveBeat = false
	a.accepted = 0
	a.rejected = 0
}
