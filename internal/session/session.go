// Package session orchestrates one measurement session: it owns the
// TestSession working state, drains the pulse detector's beat channel,
// enforces the recording time cap, and runs the analysis chain that
// produces the immutable Result record.
//
// State machine: idle → camera_ready → recording → analyzing →
// complete, with error reachable from camera_ready, recording, and
// analyzing. Complete and error are terminal for a session; a new Start
// always begins a fresh session and never reuses stale buffers.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitalsense/cardio-sensor/internal/bp"
	"github.com/vitalsense/cardio-sensor/internal/hrv"
	"github.com/vitalsense/cardio-sensor/internal/pulse"
	"github.com/vitalsense/cardio-sensor/internal/risk"
	"github.com/vitalsense/cardio-sensor/internal/rr"
)

// State is the session controller's current phase.
type State string

const (
	StateIdle        State = "idle"
	StateCameraReady State = "camera_ready"
	StateRecording   State = "recording"
	StateAnalyzing   State = "analyzing"
	StateComplete    State = "complete"
	StateError       State = "error"
)

// Control-flow errors returned by Attach/Start/Stop.
var (
	ErrNoSource         = errors.New("session: no input source attached")
	ErrAlreadyRecording = errors.New("session: a recording is already in progress")
	ErrBusy             = errors.New("session: controller is busy analyzing")
)

// Config holds the session tunables plus the tuning of every analysis
// stage, so a whole pipeline is configured in one place.
type Config struct {
	// MaxDuration is the hard recording cap; reaching it behaves like an
	// explicit stop.
	MaxDuration time.Duration

	// MinIntervals is the smallest RR window that produces a result;
	// fewer ends the session in the error state instead.
	MinIntervals int

	// DefaultAge is used when a start request carries no age.
	DefaultAge int

	RR   rr.Config
	HRV  hrv.Config
	BP   bp.Config
	Risk risk.Config
}

// DefaultConfig returns the standard session tuning.
func DefaultConfig() Config {
	return Config{
		MaxDuration:  60 * time.Second,
		MinIntervals: 5,
		DefaultAge:   35,
		RR:           rr.DefaultConfig(),
		HRV:          hrv.DefaultConfig(),
		BP:           bp.DefaultConfig(),
		Risk:         risk.DefaultConfig(),
	}
}

// Result is the immutable record produced by a completed session.
type Result struct {
	ID                  string          `json:"id"`
	Timestamp           time.Time       `json:"timestamp"`
	HeartRate           float64         `json:"heart_rate"`
	HRV                 hrv.Metrics     `json:"hrv"`
	BP                  bp.Estimate     `json:"estimated_bp"`
	Risk                risk.Assessment `json:"risk"`
	TestDurationSeconds float64         `json:"test_duration_seconds"`
	Confidence          float64         `json:"confidence"`
}

// testSession is the working state of one recording. It is owned
// exclusively by the controller and discarded when the next recording
// starts.
type testSession struct {
	age       int
	startTime time.Time
	acc       *rr.Accumulator
	beats     int
	confSum   float64
	lastBPM   float64
}

// Controller drives the session state machine. All methods are safe for
// concurrent use; the hooks are invoked outside the internal lock.
type Controller struct {
	cfg Config

	// OnBeat, OnSignal, OnStateChange, and OnResult are optional hooks for
	// publishing and metrics. Set them before the first Start; they must
	// not call back into the controller synchronously from OnStateChange.
	OnBeat        func(beat pulse.BeatEvent, intervalAccepted bool)
	OnSignal      func(err error)
	OnStateChange func(state State, reason string)
	OnResult      func(res Result)

	// now is injectable for tests.
	now func() time.Time

	mu       sync.Mutex
	state    State
	reason   string
	source   pulse.BeatSource
	sess     *testSession
	result   *Result
	stopLoop chan struct{}
	loopDone chan struct{}
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	return &Controller{
		cfg:   cfg,
		now:   time.Now,
		state: StateIdle,
	}
}

// Attach binds the controller to a beat source. It transitions idle (or a
// finished session) to camera_ready. Attaching while recording or
// analyzing fails.
func (c *Controller) Attach(src pulse.BeatSource) error {
	if src == nil {
		return ErrNoSource
	}

	c.mu.Lock()
	switch c.state {
	case StateRecording, StateAnalyzing:
		c.mu.Unlock()
		return ErrBusy
	}
	c.source = src
	c.setStateLocked(StateCameraReady, "")
	notify := c.OnStateChange
	c.mu.Unlock()

	if notify != nil {
		notify(StateCameraReady, "")
	}
	return nil
}

// Start begins a fresh recording for a subject of the given age (the
// configured default is used when age is zero or negative). Starting while
// already recording returns ErrAlreadyRecording rather than queueing.
func (c *Controller) Start(age int) error {
	if age <= 0 {
		age = c.cfg.DefaultAge
	}

	c.mu.Lock()
	switch c.state {
	case StateRecording:
		c.mu.Unlock()
		return ErrAlreadyRecording
	case StateAnalyzing:
		c.mu.Unlock()
		return ErrBusy
	}
	if c.source == nil {
		c.mu.Unlock()
		return ErrNoSource
	}

	src := c.source
	sess := &testSession{
		age:       age,
		startTime: c.now(),
		acc:       rr.NewAccumulator(c.cfg.RR),
	}
	c.sess = sess
	c.result = nil
	c.reason = ""
	c.stopLoop = make(chan struct{})
	c.loopDone = make(chan struct{})
	stop := c.stopLoop
	done := c.loopDone
	c.setStateLocked(StateRecording, "")
	notify := c.OnStateChange
	c.mu.Unlock()

	if err := src.Start(); err != nil {
		c.mu.Lock()
		c.setStateLocked(StateError, fmt.Sprintf("input source failed to start: %v", err))
		c.mu.Unlock()
		if notify != nil {
			notify(StateError, c.LastError())
		}
		return fmt.Errorf("start source: %w", err)
	}

	if notify != nil {
		notify(StateRecording, "")
	}

	go c.run(sess, src, stop, done)
	return nil
}

// Stop ends the current recording, if any, and runs the analysis chain. It
// is idempotent and safe to call in any state, including before Start.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateRecording || c.stopLoop == nil {
		c.mu.Unlock()
		return
	}
	stop := c.stopLoop
	done := c.loopDone
	c.stopLoop = nil
	c.mu.Unlock()

	close(stop)
	<-done
}

// run is the single consumption loop draining the beat source until an
// explicit stop, the time cap, or loss of the source.
func (c *Controller) run(sess *testSession, src pulse.BeatSource, stop, done chan struct{}) {
	defer close(done)

	deadline := time.NewTimer(c.cfg.MaxDuration)
	defer deadline.Stop()

	beats := src.Beats()
	errs := src.Errors()

	for {
		select {
		case b, ok := <-beats:
			if !ok {
				c.finalize(sess, src)
				return
			}
			c.observeBeat(sess, b)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil && c.OnSignal != nil {
				c.OnSignal(err)
			}

		case <-deadline.C:
			c.finalize(sess, src)
			return

		case <-stop:
			c.finalize(sess, src)
			return
		}
	}
}

func (c *Controller) observeBeat(sess *testSession, b pulse.BeatEvent) {
	c.mu.Lock()
	if c.state != StateRecording || c.sess != sess {
		c.mu.Unlock()
		return
	}
	sess.beats++
	sess.confSum += b.Confidence
	if b.BPM > 0 {
		sess.lastBPM = b.BPM
	}
	_, accepted := sess.acc.Observe(b.Time)
	hook := c.OnBeat
	c.mu.Unlock()

	if hook != nil {
		hook(b, accepted)
	}
}

// finalize stops the source and runs analysis on the finalized RR window,
// transitioning to complete or error.
func (c *Controller) finalize(sess *testSession, src pulse.BeatSource) {
	src.Stop()

	c.mu.Lock()
	if c.sess != sess || (c.state != StateRecording && c.state != StateAnalyzing) {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateAnalyzing, "")
	notify := c.OnStateChange
	onResult := c.OnResult

	intervals := sess.acc.Intervals()
	elapsed := c.now().Sub(sess.startTime)

	if len(intervals) < c.cfg.MinIntervals || sess.lastBPM <= 0 {
		reason := fmt.Sprintf("insufficient data: %d valid intervals (need %d); retry with better lighting and less movement",
			len(intervals), c.cfg.MinIntervals)
		c.setStateLocked(StateError, reason)
		c.mu.Unlock()
		if notify != nil {
			notify(StateAnalyzing, "")
			notify(StateError, reason)
		}
		return
	}

	metrics, err := hrv.Compute(intervals, c.cfg.HRV)
	if err != nil {
		reason := fmt.Sprintf("analysis failed: %v", err)
		c.setStateLocked(StateError, reason)
		c.mu.Unlock()
		if notify != nil {
			notify(StateAnalyzing, "")
			notify(StateError, reason)
		}
		return
	}

	avgConf := 0.0
	if sess.beats > 0 {
		avgConf = sess.confSum / float64(sess.beats)
	}
	heartRate := 60000.0 / metrics.MeanRR

	bpEst := bp.EstimateBP(metrics.MeanRR, avgConf, len(intervals), sess.age, c.cfg.BP)
	assessment := risk.Assess(heartRate, metrics, bpEst, sess.age, c.cfg.Risk)

	res := Result{
		ID:                  uuid.NewString(),
		Timestamp:           c.now(),
		HeartRate:           heartRate,
		HRV:                 metrics,
		BP:                  bpEst,
		Risk:                assessment,
		TestDurationSeconds: elapsed.Seconds(),
		Confidence:          avgConf,
	}
	c.result = &res
	c.setStateLocked(StateComplete, "")
	c.mu.Unlock()

	if notify != nil {
		notify(StateAnalyzing, "")
		notify(StateComplete, "")
	}
	if onResult != nil {
		onResult(res)
	}
}

func (c *Controller) setStateLocked(s State, reason string) {
	c.state = s
	c.reason = reason
}

// State returns the controller's current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the reason for the most recent error state, or "".
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Result returns the latest completed result, if any.
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// Elapsed returns how long the current or finished session has been
// running; zero when no session has started.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return 0
	}
	return c.now().Sub(c.sess.startTime)
}

// Beats returns the beat and accepted-interval counts of the current or
// finished session.
func (c *Controller) Beats() (beats, intervals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return 0, 0
	}
	return c.sess.beats, c.sess.acc.Len()
}
