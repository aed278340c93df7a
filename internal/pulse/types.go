// Package pulse turns a stream of intensity samples into heartbeat events.
// The Detector is pure business logic with no timers or goroutines: time is
// always injected via time.Time parameters. The Monitor wraps a Detector
// and a sample source with a sampling loop and delivers beats on a channel.
package pulse

import (
	"errors"
	"fmt"
	"time"
)

// BeatEvent is emitted once per detected heartbeat.
type BeatEvent struct {
	// Time is the timestamp of the detected peak.
	Time time.Time
	// BPM is the instantaneous rate derived from the interval to the
	// previous peak.
	BPM float64
	// Confidence is a signal-quality indicator in [0,1] derived from peak
	// prominence relative to local variance. Low-confidence beats are still
	// emitted; callers should weight or discard them below
	// Config.MinConfidence.
	Confidence float64
}

// Config holds the detector tunables. All thresholds live here so the
// algorithm stays auditable without code changes.
type Config struct {
	// SampleInterval is the cadence at which the source is read.
	SampleInterval time.Duration

	// BufferSpan is how much signal history the detector keeps. It must
	// cover at least two expected beat periods.
	BufferSpan time.Duration

	// Warmup is how much history must accumulate before peaks are trusted.
	Warmup time.Duration

	// MinBeatGap is the refractory period: a new peak within this gap of
	// the previous one is rejected as noise.
	MinBeatGap time.Duration

	// LowHz and HighHz bound the passband used for detrending and
	// smoothing (0.7-3.0 Hz covers 42-180 BPM).
	LowHz  float64
	HighHz float64

	// GracePeriod is how long the monitor tolerates no detected beat
	// before reporting signal loss.
	GracePeriod time.Duration

	// MinConfidence is the advisory threshold below which callers should
	// discard beats.
	MinConfidence float64

	// PeakThresholdSigma scales the adaptive peak-height threshold: a
	// local maximum must exceed this many standard deviations of the
	// detrended signal to count as a beat.
	PeakThresholdSigma float64

	// ConfidenceSigma is the prominence, in standard deviations, at which
	// a peak earns full confidence.
	ConfidenceSigma float64

	// BPMSmoothing is the EWMA coefficient for the running
	// confidence-weighted BPM.
	BPMSmoothing float64
}

// DefaultConfig returns the standard detector tuning.
func DefaultConfig() Config {
	return Config{
		SampleInterval:     33 * time.Millisecond, // ~30 fps
		BufferSpan:         5 * time.Second,
		Warmup:             2 * time.Second,
		MinBeatGap:         300 * time.Millisecond,
		LowHz:              0.7,
		HighHz:             3.0,
		GracePeriod:        10 * time.Second,
		MinConfidence:      0.3,
		PeakThresholdSigma: 0.5,
		ConfidenceSigma:    3.0,
		BPMSmoothing:       0.25,
	}
}

// ErrNoSignal marks signal-loss reports. Use errors.Is to test for it.
var ErrNoSignal = errors.New("pulse: no signal")

// SignalLossError reports that no beat was detected within the grace
// period. The message is meant to be shown to the subject.
type SignalLossError struct {
	// Quiet is how long the signal has been silent.
	Quiet time.Duration
}

func (e *SignalLossError) Error() string {
	return fmt.Sprintf("no heartbeat detected for %v: check lighting, keep still, and keep the measurement region in view", e.Quiet.Truncate(time.Second))
}

func (e *SignalLossError) Unwrap() error { return ErrNoSignal }
