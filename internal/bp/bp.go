// Package bp estimates blood pressure from pulse timing features. The
// output is explicitly an approximation, not a calibrated measurement, and
// always carries a confidence so downstream consumers can flag uncertainty.
package bp

import "math"

// Config holds the estimation coefficients and clamps. The model is a
// linear offset from a reference subject (heart rate 60, age 30), clamped
// to a physiological band.
type Config struct {
	// SystolicBase and DiastolicBase are the estimates for the reference
	// subject.
	SystolicBase  float64
	DiastolicBase float64

	// SystolicPerBPM and DiastolicPerBPM bias the estimate upward as heart
	// rate rises above the reference of 60 BPM.
	SystolicPerBPM  float64
	DiastolicPerBPM float64

	// SystolicPerYear and DiastolicPerYear add a modest offset per year of
	// age above ReferenceAge, per standard epidemiological trends.
	SystolicPerYear  float64
	DiastolicPerYear float64
	ReferenceAge     int

	// Clamping bounds. Estimates never leave these bands; clamping is
	// documented behavior, not an error.
	SystolicMin, SystolicMax   float64
	DiastolicMin, DiastolicMax float64

	// FullConfidenceSamples is the RR-window size at which the
	// data-sufficiency factor reaches 1.
	FullConfidenceSamples int
}

// DefaultConfig returns the standard estimation tuning.
func DefaultConfig() Config {
	return Config{
		SystolicBase:          112,
		DiastolicBase:         72,
		SystolicPerBPM:        0.45,
		DiastolicPerBPM:       0.25,
		SystolicPerYear:       0.5,
		DiastolicPerYear:      0.2,
		ReferenceAge:          30,
		SystolicMin:           80,
		SystolicMax:           200,
		DiastolicMin:          50,
		DiastolicMax:          130,
		FullConfidenceSamples: 30,
	}
}

// Estimate is an approximate systolic/diastolic pair in mmHg with a
// confidence in [0,1].
type Estimate struct {
	Systolic   int     `json:"systolic"`
	Diastolic  int     `json:"diastolic"`
	Confidence float64 `json:"confidence"`
}

// EstimateBP maps mean RR, detector confidence, window size, and age to a
// blood-pressure estimate. Shorter mean RR (faster heart rate) never lowers
// the estimate; the output is clamped to the configured band. Confidence is
// the detector confidence scaled by a data-sufficiency factor and never
// exceeds 1.
func EstimateBP(meanRRMs, detectorConfidence float64, sampleCount, age int, cfg Config) Estimate {
	hr := 0.0
	if meanRRMs > 0 {
		hr = 60000.0 / meanRRMs
	}

	hrDelta := hr - 60
	ageDelta := float64(age - cfg.ReferenceAge)
	if ageDelta < 0 {
		ageDelta = 0
	}

	sys := cfg.SystolicBase + cfg.SystolicPerBPM*hrDelta + cfg.SystolicPerYear*ageDelta
	dia := cfg.DiastolicBase + cfg.DiastolicPerBPM*hrDelta + cfg.DiastolicPerYear*ageDelta

	sys = clamp(sys, cfg.SystolicMin, cfg.SystolicMax)
	dia = clamp(dia, cfg.DiastolicMin, cfg.DiastolicMax)

	sufficiency := 1.0
	if cfg.FullConfidenceSamples > 0 {
		sufficiency = float64(sampleCount) / float64(cfg.FullConfidenceSamples)
		if sufficiency > 1 {
			sufficiency = 1
		}
	}

	conf := clamp(detectorConfidence, 0, 1) * sufficiency

	return Estimate{
		Systolic:   int(math.Round(sys)),
		Diastolic:  int(math.Round(dia)),
		Confidence: conf,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
