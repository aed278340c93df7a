package pulse

import (
	"math"
	"time"
)

type sample struct {
	t        time.Time
	raw      float64
	smoothed float64
}

// Detector finds heartbeat peaks in an intensity time series. It keeps a
// rolling buffer of recent samples, removes slow drift with a trailing-mean
// detrend, suppresses high-frequency noise with a short moving average, and
// applies a local-maximum rule with a refractory period.
//
// Detector is pure: Process never blocks and time is injected by the caller.
// It is not safe for concurrent use.
type Detector struct {
	cfg Config

	// detrendN and smoothN are the trailing window lengths in samples,
	// derived from the passband and the sampling cadence.
	detrendN int
	smoothN  int

	samples []sample

	lastPeak  time.Time
	havePeak  bool
	beatCount int

	smoothedBPM float64
}

// NewDetector creates a detector with the given tuning.
func NewDetector(cfg Config) *Detector {
	detrendN := windowSamples(cfg.SampleInterval, 1.0/cfg.LowHz)
	smoothN := windowSamples(cfg.SampleInterval, 1.0/(2.0*cfg.HighHz))

	return &Detector{
		cfg:      cfg,
		detrendN: detrendN,
		smoothN:  smoothN,
	}
}

// windowSamples converts a window length in seconds to a sample count.
func windowSamples(interval time.Duration, seconds float64) int {
	if interval <= 0 {
		return 1
	}
	n := int(seconds / interval.Seconds())
	if n < 1 {
		n = 1
	}
	return n
}

// Process ingests one intensity sample stamped at now and returns a
// BeatEvent if a new heartbeat was detected. The first peak after a reset
// establishes timing and does not emit an event; every subsequent peak
// carries an instantaneous BPM derived from the inter-peak interval.
func (d *Detector) Process(value float64, now time.Time) (BeatEvent, bool) {
	d.push(value, now)

	n := len(d.samples)
	if n < 3 {
		return BeatEvent{}, false
	}
	if now.Sub(d.samples[0].t) < d.cfg.Warmup {
		return BeatEvent{}, false
	}

	// Local-maximum rule on the smoothed, detrended series: the previous
	// sample must exceed both neighbours and the adaptive threshold.
	prev2 := d.samples[n-3].smoothed
	prev1 := d.samples[n-2].smoothed
	curr := d.samples[n-1].smoothed

	if !(prev1 > prev2 && prev1 > curr) {
		return BeatEvent{}, false
	}

	sigma := d.stddev()
	if sigma <= 0 {
		return BeatEvent{}, false
	}
	if prev1 < d.cfg.PeakThresholdSigma*sigma {
		return BeatEvent{}, false
	}

	peakTime := d.samples[n-2].t
	if d.havePeak && peakTime.Sub(d.lastPeak) < d.cfg.MinBeatGap {
		return BeatEvent{}, false
	}

	confidence := prev1 / (d.cfg.ConfidenceSigma * sigma)
	if confidence > 1 {
		confidence = 1
	}

	if !d.havePeak {
		d.havePeak = true
		d.lastPeak = peakTime
		return BeatEvent{}, false
	}

	rrMs := float64(peakTime.Sub(d.lastPeak)) / float64(time.Millisecond)
	d.lastPeak = peakTime
	d.beatCount++

	bpm := 60000.0 / rrMs
	if d.smoothedBPM == 0 {
		d.smoothedBPM = bpm
	} else {
		// EWMA weighted by confidence so noisy beats move the running
		// estimate less.
		d.smoothedBPM += confidence * d.cfg.BPMSmoothing * (bpm - d.smoothedBPM)
	}

	return BeatEvent{Time: peakTime, BPM: bpm, Confidence: confidence}, true
}

// push appends a sample, evicts history older than the buffer span, and
// computes the new sample's smoothed value.
func (d *Detector) push(value float64, now time.Time) {
	d.samples = append(d.samples, sample{t: now, raw: value})

	// Evict samples outside the rolling buffer.
	cutoff := now.Add(-d.cfg.BufferSpan)
	firstKeep := 0
	for firstKeep < len(d.samples) && d.samples[firstKeep].t.Before(cutoff) {
		firstKeep++
	}
	if firstKeep > 0 {
		d.samples = append(d.samples[:0], d.samples[firstKeep:]...)
	}

	// Short moving average over the detrended series suppresses noise
	// above the passband; the detrend itself (a trailing-mean subtraction)
	// removes lighting and motion drift below it.
	i := len(d.samples) - 1
	start := i + 1 - d.smoothN
	if start < 0 {
		start = 0
	}
	var sum float64
	for j := start; j <= i; j++ {
		sum += d.detrendedAt(j)
	}
	d.samples[i].smoothed = sum / float64(i+1-start)
}

// detrendedAt computes the detrended value for sample i: the raw value
// minus the trailing mean over the detrend window.
func (d *Detector) detrendedAt(i int) float64 {
	start := i + 1 - d.detrendN
	if start < 0 {
		start = 0
	}
	var sum float64
	for j := start; j <= i; j++ {
		sum += d.samples[j].raw
	}
	return d.samples[i].raw - sum/float64(i+1-start)
}

// stddev returns the population standard deviation of the smoothed series.
func (d *Detector) stddev() float64 {
	n := len(d.samples)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, s := range d.samples {
		mean += s.smoothed
	}
	mean /= float64(n)

	var ss float64
	for _, s := range d.samples {
		diff := s.smoothed - mean
		ss += diff * diff
	}
	return math.Sqrt(ss / float64(n))
}

// BPM returns the running confidence-weighted heart-rate estimate, or 0 if
// no beats have been measured yet.
func (d *Detector) BPM() float64 {
	return d.smoothedBPM
}

// LastBeat returns the timestamp of the most recent peak.
func (d *Detector) LastBeat() (time.Time, bool) {
	return d.lastPeak, d.havePeak
}

// BeatCount returns how many beats have been emitted since the last reset.
func (d *Detector) BeatCount() int {
	return d.beatCount
}

// Reset discards all buffered samples and beat state.
func (d *Detector) Reset() {
	d.samples = d.samples[:0]
	d.lastPeak = time.Time{}
	d.havePeak = false
	d.beatCount = 0
	d.smoothedBPM = 0
}
