package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the cardio sensor.
type Metrics struct {
	registry               *prometheus.Registry
	sessionsStartedTotal   prometheus.Counter
	sessionsCompletedTotal prometheus.Counter
	sessionsFailedTotal    prometheus.Counter
	beatsDetectedTotal     prometheus.Counter
	intervalsRejectedTotal prometheus.Counter
	sessionActive          prometheus.Gauge
	lastBPM                prometheus.Gauge
	lastConfidence         prometheus.Gauge
}

// New creates and registers Prometheus metrics for the sensor daemon.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	sessionsStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardio_sessions_started_total",
		Help: "Total number of measurement sessions started",
	})
	sessionsCompletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardio_sessions_completed_total",
		Help: "Total number of measurement sessions completed with a result",
	})
	sessionsFailedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardio_sessions_failed_total",
		Help: "Total number of measurement sessions ended in error",
	})
	beatsDetectedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardio_beats_detected_total",
		Help: "Total number of heartbeats detected across all sessions",
	})
	intervalsRejectedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cardio_intervals_rejected_total",
		Help: "Total number of RR intervals rejected as out of physiological range",
	})
	sessionActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cardio_session_active",
		Help: "1 while a measurement session is recording, 0 otherwise",
	})
	lastBPM := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cardio_last_bpm",
		Help: "Most recent smoothed heart rate estimate in beats per minute",
	})
	lastConfidence := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cardio_last_confidence",
		Help: "Confidence of the most recent detected beat, 0 to 1",
	})

	registry.MustRegister(
		sessionsStartedTotal,
		sessionsCompletedTotal,
		sessionsFailedTotal,
		beatsDetectedTotal,
		intervalsRejectedTotal,
		sessionActive,
		lastBPM,
		lastConfidence,
	)

	return &Metrics{
		registry:               registry,
		sessionsStartedTotal:   sessionsStartedTotal,
		sessionsCompletedTotal: sessionsCompletedTotal,
		sessionsFailedTotal:    sessionsFailedTotal,
		beatsDetectedTotal:     beatsDetectedTotal,
		intervalsRejectedTotal: intervalsRejectedTotal,
		sessionActive:          sessionActive,
		lastBPM:                lastBPM,
		lastConfidence:         lastConfidence,
	}
}

// IncSessionsStarted increments the sessions started counter.
func (m *Metrics) IncSessionsStarted() {
	m.sessionsStartedTotal.Inc()
}

// IncSessionsCompleted increments the sessions completed counter.
func (m *Metrics) IncSessionsCompleted() {
	m.sessionsCompletedTotal.Inc()
}

// IncSessionsFailed increments the sessions failed counter.
func (m *Metrics) IncSessionsFailed() {
	m.sessionsFailedTotal.Inc()
}

// IncBeatsDetected increments the beats detected counter.
func (m *Metrics) IncBeatsDetected() {
	m.beatsDetectedTotal.Inc()
}

// IncIntervalsRejected increments the rejected intervals counter.
func (m *Metrics) IncIntervalsRejected() {
	m.intervalsRejectedTotal.Inc()
}

// SetSessionActive sets the recording gauge.
func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.sessionActive.Set(1)
	} else {
		m.sessionActive.Set(0)
	}
}

// ObserveBeat updates the per-beat gauges.
func (m *Metrics) ObserveBeat(bpm, confidence float64) {
	if bpm > 0 {
		m.lastBPM.Set(bpm)
	}
	m.lastConfidence.Set(confidence)
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
