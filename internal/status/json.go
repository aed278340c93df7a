package status

import (
	"encoding/json"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/session"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string     `json:"event,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	SessionState   string     `json:"session_state"`
	SessionError   string     `json:"session_error,omitempty"`
	BeatsTotal     int        `json:"beats_total"`
	IntervalsKept  int        `json:"intervals_kept"`
	LastBPM        float64    `json:"last_bpm"`
	LastConfidence float64    `json:"last_confidence"`
	LastResultID   string     `json:"last_result_id,omitempty"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	StartTime      string     `json:"start_time"`
	Timestamp      string     `json:"timestamp"`
	MQTT           MQTTStatus `json:"mqtt"`
	Sessions       CountsJSON `json:"session_counts"`
	Config         ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of session counts.
type CountsJSON struct {
	Started   int `json:"started"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs     int64  `json:"sample_ms"`
	MaxSessionMs int64  `json:"max_session_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	NATSURL      string `json:"nats_url,omitempty"`
	Source       string `json:"source"`
}

func stateString(s session.State) string {
	if s == "" {
		return string(session.StateIdle)
	}
	return string(s)
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		SessionState:   stateString(snap.SessionState),
		SessionError:   snap.SessionError,
		BeatsTotal:     snap.BeatsTotal,
		IntervalsKept:  snap.IntervalsKept,
		LastBPM:        snap.LastBPM,
		LastConfidence: snap.LastConfidence,
		LastResultID:   snap.LastResultID,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Sessions: CountsJSON{
			Started:   snap.Counts.Started,
			Completed: snap.Counts.Completed,
			Failed:    snap.Counts.Failed,
		},
		Config: ConfigJSON{
			SampleMs:     snap.Config.SampleMs,
			MaxSessionMs: snap.Config.MaxSessionMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			NATSURL:      snap.Config.NATSURL,
			Source:       snap.Config.Source,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON payload for a system event carrying a
// full status snapshot.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
