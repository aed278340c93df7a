// Package hrv computes time-domain heart-rate-variability statistics from
// a window of RR intervals. Compute is a pure function of the window
// snapshot: it never mutates state and returns ErrInsufficientData instead
// of a low-confidence number when the window is too small.
package hrv

import (
	"errors"
	"math"
)

// StressLevel is the wellness classification derived from the composite
// HRV score.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
)

// ErrInsufficientData is returned when the window holds fewer intervals
// than Config.MinIntervals. Callers must check for it before using a score.
var ErrInsufficientData = errors.New("hrv: insufficient data")

// Config holds the analyzer tunables: the minimum window, the pNN50
// threshold, the score weighting, and the stress bands.
type Config struct {
	// MinIntervals is the smallest window that produces a result.
	MinIntervals int

	// PNN50ThresholdMs is the successive-difference threshold for pNN50.
	PNN50ThresholdMs float64

	// RMSSDHalfPointMs and SDNNHalfPointMs are the values at which each
	// statistic contributes half of its weight to the score. The score is
	// strictly increasing in both statistics and saturates toward 100.
	RMSSDHalfPointMs float64
	SDNNHalfPointMs  float64

	// RMSSDWeight and SDNNWeight split the score between the two
	// statistics; they should sum to 1.
	RMSSDWeight float64
	SDNNWeight  float64

	// LowStressMin and ModerateStressMin are the score bands: scores at or
	// above LowStressMin classify as low stress, at or above
	// ModerateStressMin as moderate, anything below as high.
	LowStressMin      float64
	ModerateStressMin float64
}

// DefaultConfig returns the standard analyzer tuning.
func DefaultConfig() Config {
	return Config{
		MinIntervals:      5,
		PNN50ThresholdMs:  50,
		RMSSDHalfPointMs:  40,
		SDNNHalfPointMs:   50,
		RMSSDWeight:       0.6,
		SDNNWeight:        0.4,
		LowStressMin:      60,
		ModerateStressMin: 35,
	}
}

// Metrics is the immutable result of one HRV computation.
type Metrics struct {
	MeanRR          float64     `json:"mean_rr_ms"`
	SDNN            float64     `json:"sdnn_ms"`
	RMSSD           float64     `json:"rmssd_ms"`
	PNN50           float64     `json:"pnn50_pct"`
	Score           float64     `json:"score"`
	Stress          StressLevel `json:"stress_level"`
	Interpretation  string      `json:"interpretation"`
	Recommendations []string    `json:"recommendations"`
}

// Compute derives HRV metrics from a window of RR intervals in
// milliseconds. It returns ErrInsufficientData when the window holds fewer
// than cfg.MinIntervals values.
func Compute(intervals []float64, cfg Config) (Metrics, error) {
	if len(intervals) < cfg.MinIntervals {
		return Metrics{}, ErrInsufficientData
	}

	m := Metrics{
		MeanRR: Mean(intervals),
		SDNN:   SDNN(intervals),
		RMSSD:  RMSSD(intervals),
		PNN50:  PNN50(intervals, cfg.PNN50ThresholdMs),
	}

	m.Score = score(m.RMSSD, m.SDNN, cfg)
	m.Stress = classify(m.Score, cfg)
	m.Interpretation = interpret(m)
	m.Recommendations = recommend(m)

	return m, nil
}

// Mean returns the arithmetic mean of the intervals, or 0 for an empty
// window.
func Mean(intervals []float64) float64 {
	if len(intervals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range intervals {
		sum += v
	}
	return sum / float64(len(intervals))
}

// SDNN returns the sample standard deviation of the intervals. It is 0 for
// windows with fewer than two values.
func SDNN(intervals []float64) float64 {
	n := len(intervals)
	if n < 2 {
		return 0
	}
	mean := Mean(intervals)
	var ss float64
	for _, v := range intervals {
		diff := v - mean
		ss += diff * diff
	}
	return math.Sqrt(ss / float64(n-1))
}

// RMSSD returns the root mean square of successive differences between
// adjacent intervals. It is 0 for windows with fewer than two values.
func RMSSD(intervals []float64) float64 {
	n := len(intervals)
	if n < 2 {
		return 0
	}
	var ss float64
	for i := 1; i < n; i++ {
		diff := intervals[i] - intervals[i-1]
		ss += diff * diff
	}
	return math.Sqrt(ss / float64(n-1))
}

// PNN50 returns the percentage of successive differences whose magnitude
// exceeds thresholdMs. It is 0 for windows with fewer than two values.
func PNN50(intervals []float64, thresholdMs float64) float64 {
	n := len(intervals)
	if n < 2 {
		return 0
	}
	var over int
	for i := 1; i < n; i++ {
		if math.Abs(intervals[i]-intervals[i-1]) > thresholdMs {
			over++
		}
	}
	return 100 * float64(over) / float64(n-1)
}

// score maps RMSSD and SDNN to [0,100]. Each statistic contributes a
// saturating term v/(v+halfPoint), so the score is strictly increasing in
// both and bounded without clamping.
func score(rmssd, sdnn float64, cfg Config) float64 {
	rTerm := rmssd / (rmssd + cfg.RMSSDHalfPointMs)
	sTerm := sdnn / (sdnn + cfg.SDNNHalfPointMs)
	s := 100 * (cfg.RMSSDWeight*rTerm + cfg.SDNNWeight*sTerm)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func classify(score float64, cfg Config) StressLevel {
	switch {
	case score >= cfg.LowStressMin:
		return StressLow
	case score >= cfg.ModerateStressMin:
		return StressModerate
	default:
		return StressHigh
	}
}

// interpret selects deterministic explanatory text keyed off the stress
// band and the absolute statistics.
func interpret(m Metrics) string {
	switch m.Stress {
	case StressLow:
		return "Heart-rate variability is healthy, indicating good autonomic balance and recovery capacity."
	case StressModerate:
		if m.RMSSD < 20 {
			return "Heart-rate variability is somewhat reduced with low short-term variation, which can reflect fatigue or mild stress."
		}
		return "Heart-rate variability is in a moderate range; autonomic balance is acceptable but has room to improve."
	default:
		if m.RMSSD < 10 {
			return "Heart-rate variability is very low, which is commonly associated with elevated stress or insufficient recovery."
		}
		return "Heart-rate variability is low, suggesting the nervous system is under strain."
	}
}

// recommend selects deterministic suggestions keyed off the stress band and
// the absolute statistics. The list is never empty.
func recommend(m Metrics) []string {
	var recs []string

	switch m.Stress {
	case StressLow:
		recs = append(recs, "Maintain your current sleep, activity, and recovery habits.")
	case StressModerate:
		recs = append(recs, "Consider regular moderate exercise and consistent sleep timing.")
	default:
		recs = append(recs,
			"Prioritize rest and stress reduction over the coming days.",
			"Slow diaphragmatic breathing (around 6 breaths per minute) can raise short-term variability.")
	}

	if m.RMSSD < 20 && m.Stress != StressHigh {
		recs = append(recs, "Short relaxation or breathing exercises may improve short-term variability.")
	}
	if m.PNN50 == 0 && m.Stress == StressLow {
		recs = append(recs, "Variability is steady; brief walks during long sedentary periods help keep it that way.")
	}

	return recs
}
