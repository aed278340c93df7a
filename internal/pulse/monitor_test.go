package pulse

import (
	"errors"
	"testing"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/frame"
)

// fakeClock drives a monitor deterministically: each Advance pushes one
// tick and moves the clock forward.
type fakeClock struct {
	now  time.Time
	tick chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:  time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		tick: make(chan time.Time),
	}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	c.tick <- c.now
}

func TestMonitorStopBeforeStart(t *testing.T) {
	m := NewMonitor(frame.NewFakeSource([]float64{1}), testConfig())
	// Must not panic or block.
	m.Stop()
	m.Stop()
}

func TestMonitorStartIdempotent(t *testing.T) {
	m := NewMonitor(frame.NewSynthetic(25, 60, 0), testConfig())

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	beats := m.Beats()

	if err := m.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if m.Beats() != beats {
		t.Error("second start must be a no-op, not a new sampling loop")
	}

	m.Stop()
	m.Stop() // idempotent
}

func TestMonitorEmitsBeats(t *testing.T) {
	cfg := testConfig()
	clock := newFakeClock()

	m := NewMonitor(frame.NewSynthetic(25, 60, 0), cfg)
	m.Now = clock.Now
	m.Tick = clock.tick

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	beats := m.Beats()
	var events []BeatEvent

	// 20 seconds of virtual time at the sampling cadence.
	for i := 0; i < 500; i++ {
		clock.Advance(cfg.SampleInterval)
		select {
		case b := <-beats:
			events = append(events, b)
		default:
		}
	}

	if len(events) < 12 {
		t.Fatalf("expected at least 12 beats over 20s of clean signal, got %d", len(events))
	}
	for i, e := range events {
		if e.Confidence <= 0 || e.Confidence > 1 {
			t.Errorf("event %d: confidence %v outside (0,1]", i, e.Confidence)
		}
	}
}

func TestMonitorGracePeriod(t *testing.T) {
	cfg := testConfig()
	cfg.GracePeriod = 2 * time.Second
	clock := newFakeClock()

	m := NewMonitor(frame.NewFakeSource([]float64{128}), cfg) // flat: no beats
	m.Now = clock.Now
	m.Tick = clock.tick

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()

	errs := m.Errors()
	var got error
	for i := 0; i < 100 && got == nil; i++ {
		clock.Advance(100 * time.Millisecond)
		select {
		case err := <-errs:
			got = err
		default:
		}
	}

	if got == nil {
		t.Fatal("expected a signal-loss report within the grace period")
	}
	if !errors.Is(got, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal, got %v", got)
	}
	var sl *SignalLossError
	if !errors.As(got, &sl) {
		t.Fatalf("expected *SignalLossError, got %T", got)
	}
	if sl.Quiet < cfg.GracePeriod {
		t.Errorf("reported quiet time %v shorter than grace period %v", sl.Quiet, cfg.GracePeriod)
	}
}

func TestMonitorSourceClosed(t *testing.T) {
	cfg := testConfig()
	clock := newFakeClock()

	src := frame.NewFakeSource([]float64{128})
	src.ReadError = frame.ErrSourceClosed

	m := NewMonitor(src, cfg)
	m.Now = clock.Now
	m.Tick = clock.tick

	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	errs := m.Errors()

	clock.Advance(cfg.SampleInterval)

	select {
	case err := <-errs:
		if !errors.Is(err, frame.ErrSourceClosed) {
			t.Fatalf("expected ErrSourceClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for source-closed report")
	}

	// The loop exits on its own; beats channel closes.
	select {
	case _, ok := <-m.Beats():
		if ok {
			t.Fatal("expected closed beats channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for beats channel close")
	}

	m.Stop()
}

func TestMonitorStopClosesChannels(t *testing.T) {
	m := NewMonitor(frame.NewSynthetic(25, 60, 0), testConfig())
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	beats := m.Beats()
	errs := m.Errors()

	m.Stop()

	for range beats {
	}
	for range errs {
	}
}
