package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/session"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{SampleMs: 33, MaxSessionMs: 60000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Source: "synthetic"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.SampleMs != 33 {
		t.Errorf("Config.SampleMs: got %d, want 33", snap.Config.SampleMs)
	}
	if snap.SessionState != session.StateIdle {
		t.Errorf("SessionState: got %q, want idle", snap.SessionState)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSetSessionStateCounts(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetSessionState(session.StateRecording, "")
	tr.SetSessionState(session.StateComplete, "")
	tr.SetSessionState(session.StateRecording, "")
	tr.SetSessionState(session.StateError, "signal lost")

	snap := tr.Snapshot()
	if snap.Counts.Started != 2 {
		t.Errorf("Started: got %d, want 2", snap.Counts.Started)
	}
	if snap.Counts.Completed != 1 {
		t.Errorf("Completed: got %d, want 1", snap.Counts.Completed)
	}
	if snap.Counts.Failed != 1 {
		t.Errorf("Failed: got %d, want 1", snap.Counts.Failed)
	}
	if snap.SessionError != "signal lost" {
		t.Errorf("SessionError: got %q, want %q", snap.SessionError, "signal lost")
	}
}

func TestRecordingResetsBeatCounters(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetSessionState(session.StateRecording, "")
	tr.ObserveBeat(72, 0.8, true)
	tr.ObserveBeat(71, 0.7, false)
	tr.SetSessionState(session.StateComplete, "")

	snap := tr.Snapshot()
	if snap.BeatsTotal != 2 {
		t.Errorf("BeatsTotal: got %d, want 2", snap.BeatsTotal)
	}
	if snap.IntervalsKept != 1 {
		t.Errorf("IntervalsKept: got %d, want 1", snap.IntervalsKept)
	}

	tr.SetSessionState(session.StateRecording, "")
	snap = tr.Snapshot()
	if snap.BeatsTotal != 0 || snap.IntervalsKept != 0 {
		t.Errorf("counters not reset: beats=%d kept=%d", snap.BeatsTotal, snap.IntervalsKept)
	}
	if snap.LastBPM != 0 {
		t.Errorf("LastBPM not reset: got %v", snap.LastBPM)
	}
}

func TestObserveBeatKeepsLastBPM(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.ObserveBeat(68, 0.9, true)
	tr.ObserveBeat(0, 0.4, false)

	snap := tr.Snapshot()
	if snap.LastBPM != 68 {
		t.Errorf("LastBPM: got %v, want 68", snap.LastBPM)
	}
	if snap.LastConfidence != 0.4 {
		t.Errorf("LastConfidence: got %v, want 0.4", snap.LastConfidence)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetSessionState(session.StateRecording, "")

	snap1 := tr.Snapshot()
	tr.SetSessionState(session.StateAnalyzing, "")

	if snap1.SessionState != session.StateRecording {
		t.Error("snapshot should be a copy; SessionState was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		SessionState:   session.StateComplete,
		BeatsTotal:     42,
		IntervalsKept:  40,
		LastBPM:        66.5,
		LastConfidence: 0.81,
		LastResultID:   "7d2f",
		Counts:         SessionCounts{Started: 3, Completed: 2, Failed: 1},
		StartTime:      start,
		Now:            start.Add(15 * time.Minute),
		MQTTConnected:  true,
		Config:         Config{SampleMs: 33, MaxSessionMs: 60000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Source: "synthetic"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.SessionState != "complete" {
		t.Errorf("SessionState: got %q, want complete", parsed.Status.SessionState)
	}
	if parsed.Status.BeatsTotal != 42 {
		t.Errorf("BeatsTotal: got %d, want 42", parsed.Status.BeatsTotal)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Sessions.Completed != 2 {
		t.Errorf("Sessions.Completed: got %d, want 2", parsed.Status.Sessions.Completed)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONZeroState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.SessionState != "idle" {
		t.Errorf("SessionState: got %q, want idle", parsed.Status.SessionState)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		SessionState:  session.StateIdle,
		Counts:        SessionCounts{Started: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{SampleMs: 33, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "STARTUP", "daemon started")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "STARTUP" {
		t.Errorf("Event: got %q, want STARTUP", parsed.Status.Event)
	}
	if parsed.Status.Reason != "daemon started" {
		t.Errorf("Reason: got %q, want %q", parsed.Status.Reason, "daemon started")
	}
	if parsed.Status.Sessions.Started != 1 {
		t.Errorf("Sessions.Started: got %d, want 1", parsed.Status.Sessions.Started)
	}
}
