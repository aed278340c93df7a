package pulse

import (
	"errors"
	"sync"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/frame"
)

// BeatSource is the consumer-facing contract of a running beat detector.
// The session controller drains Beats and Errors; fakes implement this for
// tests.
type BeatSource interface {
	// Start begins continuous sampling. Calling Start while running is a
	// no-op; two sampling loops never run concurrently.
	Start() error

	// Beats returns the channel carrying detected heartbeats. It is
	// created by Start and closed by Stop.
	Beats() <-chan BeatEvent

	// Errors returns the channel carrying signal-loss reports and source
	// read failures.
	Errors() <-chan error

	// Stop halts sampling and releases buffers. It is idempotent and safe
	// to call before Start.
	Stop()
}

// Monitor runs a Detector against a sample source at a fixed cadence and
// delivers beats and signal-loss reports on channels.
//
// Now and Tick may be set before Start to drive the loop from a test clock,
// mirroring how the daemon's run loop is tested; left nil they default to
// time.Now and an internal ticker at Config.SampleInterval.
type Monitor struct {
	cfg Config
	src frame.Source
	det *Detector

	Now  func() time.Time
	Tick <-chan time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	beats   chan BeatEvent
	errs    chan error
}

// NewMonitor creates a monitor reading from src with the given tuning.
func NewMonitor(src frame.Source, cfg Config) *Monitor {
	return &Monitor{
		cfg: cfg,
		src: src,
		det: NewDetector(cfg),
	}
}

// Start begins the sampling loop. It is a no-op if already running.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	m.det.Reset()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.beats = make(chan BeatEvent, 64)
	m.errs = make(chan error, 8)
	m.running = true

	now := m.Now
	if now == nil {
		now = time.Now
	}

	tick := m.Tick
	var ticker *time.Ticker
	if tick == nil {
		ticker = time.NewTicker(m.cfg.SampleInterval)
		tick = ticker.C
	}

	go m.loop(run{
		tick:   tick,
		ticker: ticker,
		now:    now,
		stop:   m.stop,
		done:   m.done,
		beats:  m.beats,
		errs:   m.errs,
	})
	return nil
}

// run captures one sampling loop's channels so a later Start can never feed
// a stale loop.
type run struct {
	tick   <-chan time.Time
	ticker *time.Ticker
	now    func() time.Time
	stop   chan struct{}
	done   chan struct{}
	beats  chan BeatEvent
	errs   chan error
}

// Beats returns the beat channel for the current run. Nil before Start.
func (m *Monitor) Beats() <-chan BeatEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beats
}

// Errors returns the error channel for the current run. Nil before Start.
func (m *Monitor) Errors() <-chan error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs
}

// Stop halts the sampling loop and closes the channels. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done
}

// BPM returns the detector's running heart-rate estimate.
func (m *Monitor) BPM() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.det.BPM()
}

func (m *Monitor) loop(r run) {
	defer close(r.done)
	defer close(r.beats)
	defer close(r.errs)
	if r.ticker != nil {
		defer r.ticker.Stop()
	}

	lastActivity := r.now()

	for {
		select {
		case <-r.stop:
			return

		case _, ok := <-r.tick:
			if !ok {
				return
			}
			t := r.now()

			v, err := m.src.Read()
			switch {
			case err == nil:
				// fall through to detection
			case errors.Is(err, frame.ErrEmptyRegion), errors.Is(err, frame.ErrNoSample):
				continue
			case errors.Is(err, frame.ErrSourceClosed):
				r.report(err)
				return
			default:
				r.report(err)
				continue
			}

			m.mu.Lock()
			beat, detected := m.det.Process(v, t)
			m.mu.Unlock()

			if detected {
				lastActivity = t
				select {
				case r.beats <- beat:
				case <-r.stop:
					return
				}
			}

			if quiet := t.Sub(lastActivity); quiet > m.cfg.GracePeriod {
				r.report(&SignalLossError{Quiet: quiet})
				// Restart the grace window so the report fires once per
				// quiet period instead of every tick.
				lastActivity = t
			}
		}
	}
}

// report delivers an error without blocking forever if the consumer is gone.
func (r run) report(err error) {
	select {
	case r.errs <- err:
	case <-r.stop:
	}
}
