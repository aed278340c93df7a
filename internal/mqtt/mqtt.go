// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/session"
)

// TopicResults is the MQTT topic for completed session results.
const TopicResults = "vitals/cardio/sensor/results"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "vitals/cardio/sensor/system"

// Publisher publishes session results and system events to MQTT.
type Publisher interface {
	// PublishResult sends a completed session result to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishResult(res session.Result) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, session transitions).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "SESSION_COMPLETE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ResultPayload wraps a session result for publication.
type ResultPayload struct {
	Result session.Result `json:"result"`
}

// FormatResultPayload creates the JSON payload for a session result.
func FormatResultPayload(res session.Result) ([]byte, error) {
	return json.Marshal(ResultPayload{Result: res})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
