package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vitalsense/cardio-sensor/internal/bp"
	"github.com/vitalsense/cardio-sensor/internal/hrv"
	"github.com/vitalsense/cardio-sensor/internal/risk"
	"github.com/vitalsense/cardio-sensor/internal/session"
)

func sampleResult() session.Result {
	return session.Result{
		ID:        "3f2c9a10",
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		HeartRate: 66.4,
		HRV: hrv.Metrics{
			MeanRR: 903.6,
			SDNN:   48.2,
			RMSSD:  42.1,
			PNN50:  22.5,
			Score:  60.3,
			Stress: hrv.StressLow,
		},
		BP: bp.Estimate{Systolic: 115, Diastolic: 74, Confidence: 0.78},
		Risk: risk.Assessment{
			Score: 5,
			Level: risk.LevelLow,
		},
		TestDurationSeconds: 60,
		Confidence:          0.81,
	}
}

func TestFormatResultPayload(t *testing.T) {
	payload, err := FormatResultPayload(sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed ResultPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Result.ID != "3f2c9a10" {
		t.Errorf("unexpected id: %s", parsed.Result.ID)
	}
	if parsed.Result.HeartRate != 66.4 {
		t.Errorf("unexpected heart rate: %v", parsed.Result.HeartRate)
	}
	if parsed.Result.HRV.Stress != hrv.StressLow {
		t.Errorf("unexpected stress level: %s", parsed.Result.HRV.Stress)
	}
	if parsed.Result.BP.Systolic != 115 {
		t.Errorf("unexpected systolic: %d", parsed.Result.BP.Systolic)
	}

	// field names on the wire
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(raw["result"], &inner); err != nil {
		t.Fatalf("missing result envelope: %v", err)
	}
	for _, key := range []string{"heart_rate", "hrv", "estimated_bp", "risk", "test_duration_seconds", "confidence"} {
		if _, ok := inner[key]; !ok {
			t.Errorf("payload missing key %q", key)
		}
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.System.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("unexpected reason: %s", parsed.System.Reason)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("expected reason to be omitted when empty")
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"session_state":"idle"}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "HEARTBEAT",
		RawPayload: raw,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	res := sampleResult()
	if err := f.PublishResult(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(f.Results))
	}
	if f.Results[0].ID != res.ID {
		t.Errorf("unexpected id: %s", f.Results[0].ID)
	}
	if len(f.ResultPayloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.ResultPayloads))
	}

	var parsed ResultPayload
	if err := json.Unmarshal(f.ResultPayloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker unreachable")

	if err := f.PublishResult(sampleResult()); err == nil {
		t.Error("expected error from PublishResult")
	}
	if len(f.Results) != 0 {
		t.Errorf("expected no recorded results, got %d", len(f.Results))
	}
}

func TestFakePublisherSystemEvents(t *testing.T) {
	f := NewFakePublisher()

	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.SystemEvents))
	}
	if f.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("unexpected event: %s", f.SystemEvents[0].Event)
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("expected Closed=true")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishResult(sampleResult())
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Connected = true

	f.Reset()

	if len(f.Results) != 0 || len(f.SystemEvents) != 0 {
		t.Error("expected recorded messages to be cleared")
	}
	if f.Connected {
		t.Error("expected Connected=false after reset")
	}
}
