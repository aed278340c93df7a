package frame

import "math"

// Synthetic generates a PPG-like intensity waveform at a fixed sample rate.
// It is deliberately simple: a systolic pulse as a gaussian per cycle, slow
// baseline wander, and cheap deterministic noise. Useful for demos and for
// exercising the detector without a camera.
type Synthetic struct {
	sampleHz float64
	bpm      float64
	noise    float64
	phase    float64
	closed   bool
}

// NewSynthetic creates a generator. sampleHz is the rate Read is expected
// to be called at, bpm the simulated heart rate (typically 50-120), noise
// the noise amplitude relative to the pulse (0.0-0.3).
func NewSynthetic(sampleHz, bpm, noise float64) *Synthetic {
	return &Synthetic{sampleHz: sampleHz, bpm: bpm, noise: noise}
}

// Read returns the next waveform value and advances one sample period.
// The output is scaled to look like an 8-bit channel mean around 128.
func (s *Synthetic) Read() (float64, error) {
	if s.closed {
		return 0, ErrSourceClosed
	}

	cycleHz := s.bpm / 60.0
	s.phase += cycleHz / s.sampleHz
	if s.phase >= 1.0 {
		s.phase -= 1.0
	}

	t := s.phase // 0..1 within the beat cycle

	// slow baseline wander (respiration, lighting drift)
	baseline := 2.0 * math.Sin(2*math.Pi*0.3*t)

	// systolic peak plus a smaller dicrotic bump
	pulse := 8.0*gauss(t, 0.25, 0.05) + 2.0*gauss(t, 0.55, 0.08)

	// cheap deterministic noise
	n := s.noise * 8.0 * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	return 128.0 + baseline + pulse + n, nil
}

// Close stops the generator; further reads return ErrSourceClosed.
func (s *Synthetic) Close() error {
	s.closed = true
	return nil
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
