// Package status provides a thread-safe status tracker for the
// cardio-sensor daemon. It is read by HTTP handlers and embedded into MQTT
// system events.
package status

import (
	"sync"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/session"
)

// Config contains daemon configuration for display.
type Config struct {
	SampleMs     int64
	MaxSessionMs int64
	Broker       string
	HTTPAddr     string
	NATSURL      string
	Source       string
}

// SessionCounts tracks session outcomes since startup.
type SessionCounts struct {
	Started   int
	Completed int
	Failed    int
}

// Snapshot is a point-in-time view of daemon state. It is a value type,
// safe to use after the lock is released.
type Snapshot struct {
	SessionState   session.State
	SessionError   string
	BeatsTotal     int
	IntervalsKept  int
	LastBPM        float64
	LastConfidence float64
	LastResultID   string
	Counts         SessionCounts
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			SessionState: session.StateIdle,
			StartTime:    startTime,
			Config:       cfg,
		},
	}
}

// SetSessionState records a state transition and its reason. Entering the
// recording state resets the per-session beat counters.
func (t *Tracker) SetSessionState(s session.State, reason string) {
	t.mu.Lock()
	t.snap.SessionState = s
	t.snap.SessionError = reason
	switch s {
	case session.StateRecording:
		t.snap.Counts.Started++
		t.snap.BeatsTotal = 0
		t.snap.IntervalsKept = 0
		t.snap.LastBPM = 0
		t.snap.LastConfidence = 0
	case session.StateComplete:
		t.snap.Counts.Completed++
	case session.StateError:
		t.snap.Counts.Failed++
	}
	t.mu.Unlock()
}

// ObserveBeat records one detected beat and whether its interval was kept.
func (t *Tracker) ObserveBeat(bpm, confidence float64, intervalKept bool) {
	t.mu.Lock()
	t.snap.BeatsTotal++
	if bpm > 0 {
		t.snap.LastBPM = bpm
	}
	t.snap.LastConfidence = confidence
	if intervalKept {
		t.snap.IntervalsKept++
	}
	t.mu.Unlock()
}

// SetLastResult records the ID of the most recent completed result.
func (t *Tracker) SetLastResult(id string) {
	t.mu.Lock()
	t.snap.LastResultID = id
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
