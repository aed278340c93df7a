// Package risk combines heart rate, HRV metrics, the blood-pressure
// estimate, and age into a bounded cardiovascular risk score.
//
// Each input is evaluated against banded, weighted factors that contribute
// additively; the total is clamped to [0,100] and mapped to an ordered risk
// level. The triggered factors are reported most significant first so every
// score stays auditable.
package risk

import (
	"fmt"
	"sort"

	"github.com/vitalsense/cardio-sensor/internal/bp"
	"github.com/vitalsense/cardio-sensor/internal/hrv"
)

// Level is the overall risk classification.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very-high"
)

// Severity grades an individual factor's contribution.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Config holds the level cut points and per-factor point values.
type Config struct {
	// Level thresholds; must be consistently ordered and non-overlapping:
	// scores below ModerateMin are low, below HighMin moderate, below
	// VeryHighMin high, and very-high from there up.
	ModerateMin float64
	HighMin     float64
	VeryHighMin float64

	// Heart-rate bands (BPM) and their points.
	HRHighBPM, HRHighPoints         float64
	HRElevatedBPM, HRElevatedPoints float64
	HRRaisedBPM, HRRaisedPoints     float64
	HRLowBPM, HRLowPoints           float64

	// HRV-score bands and their points.
	HRVVeryLowScore, HRVVeryLowPoints float64
	HRVLowScore, HRVLowPoints         float64

	// Blood-pressure bands (mmHg) and their points.
	SysSevere, SysSeverePoints     float64
	SysHigh, SysHighPoints         float64
	SysElevated, SysElevatedPoints float64
	DiaElevated, DiaElevatedPoints float64

	// Age bands (years) and their points.
	AgeSenior, AgeSeniorPoints float64
	AgeMiddle, AgeMiddlePoints float64
	AgeMature, AgeMaturePoints float64
}

// DefaultConfig returns the standard risk tuning.
func DefaultConfig() Config {
	return Config{
		ModerateMin: 30,
		HighMin:     50,
		VeryHighMin: 70,

		HRHighBPM: 100, HRHighPoints: 15,
		HRElevatedBPM: 90, HRElevatedPoints: 10,
		HRRaisedBPM: 80, HRRaisedPoints: 5,
		HRLowBPM: 50, HRLowPoints: 8,

		HRVVeryLowScore: 20, HRVVeryLowPoints: 20,
		HRVLowScore: 35, HRVLowPoints: 14,

		SysSevere: 160, SysSeverePoints: 25,
		SysHigh: 140, SysHighPoints: 18,
		SysElevated: 130, SysElevatedPoints: 10,
		DiaElevated: 90, DiaElevatedPoints: 8,

		AgeSenior: 65, AgeSeniorPoints: 15,
		AgeMiddle: 50, AgeMiddlePoints: 10,
		AgeMature: 40, AgeMaturePoints: 5,
	}
}

// Factor is one triggered contribution to the score.
type Factor struct {
	Name     string   `json:"name"`
	Points   float64  `json:"points"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Assessment is the result of one risk evaluation.
type Assessment struct {
	Score           float64  `json:"score"`
	Level           Level    `json:"level"`
	Factors         []Factor `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

// Assess evaluates the session's cardiovascular indicators. The score is
// the clamped sum of the triggered factor points; factors are ordered by
// descending contribution.
func Assess(heartRate float64, h hrv.Metrics, b bp.Estimate, age int, cfg Config) Assessment {
	var factors []Factor

	factors = append(factors, heartRateFactors(heartRate, cfg)...)
	factors = append(factors, hrvFactors(h, cfg)...)
	factors = append(factors, bpFactors(b, cfg)...)
	factors = append(factors, ageFactors(age, cfg)...)

	var score float64
	for _, f := range factors {
		score += f.Points
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Points > factors[j].Points
	})

	level := classify(score, cfg)

	return Assessment{
		Score:           score,
		Level:           level,
		Factors:         factors,
		Recommendations: recommend(level, factors),
	}
}

func classify(score float64, cfg Config) Level {
	switch {
	case score >= cfg.VeryHighMin:
		return LevelVeryHigh
	case score >= cfg.HighMin:
		return LevelHigh
	case score >= cfg.ModerateMin:
		return LevelModerate
	default:
		return LevelLow
	}
}

func heartRateFactors(heartRate float64, cfg Config) []Factor {
	switch {
	case heartRate >= cfg.HRHighBPM:
		return []Factor{{
			Name:     "elevated resting heart rate",
			Points:   cfg.HRHighPoints,
			Severity: SeverityHigh,
			Detail:   fmt.Sprintf("resting heart rate of %.0f BPM is above %g BPM", heartRate, cfg.HRHighBPM),
		}}
	case heartRate >= cfg.HRElevatedBPM:
		return []Factor{{
			Name:     "elevated resting heart rate",
			Points:   cfg.HRElevatedPoints,
			Severity: SeverityModerate,
			Detail:   fmt.Sprintf("resting heart rate of %.0f BPM is above %g BPM", heartRate, cfg.HRElevatedBPM),
		}}
	case heartRate >= cfg.HRRaisedBPM:
		return []Factor{{
			Name:     "raised resting heart rate",
			Points:   cfg.HRRaisedPoints,
			Severity: SeverityLow,
			Detail:   fmt.Sprintf("resting heart rate of %.0f BPM is slightly above the typical resting range", heartRate),
		}}
	case heartRate > 0 && heartRate < cfg.HRLowBPM:
		return []Factor{{
			Name:     "low resting heart rate",
			Points:   cfg.HRLowPoints,
			Severity: SeverityModerate,
			Detail:   fmt.Sprintf("resting heart rate of %.0f BPM is below %g BPM", heartRate, cfg.HRLowBPM),
		}}
	}
	return nil
}

func hrvFactors(h hrv.Metrics, cfg Config) []Factor {
	switch {
	case h.Score < cfg.HRVVeryLowScore:
		return []Factor{{
			Name:     "very low heart-rate variability",
			Points:   cfg.HRVVeryLowPoints,
			Severity: SeverityHigh,
			Detail:   fmt.Sprintf("HRV score of %.0f indicates markedly reduced autonomic variability", h.Score),
		}}
	case h.Score < cfg.HRVLowScore:
		return []Factor{{
			Name:     "low heart-rate variability",
			Points:   cfg.HRVLowPoints,
			Severity: SeverityModerate,
			Detail:   fmt.Sprintf("HRV score of %.0f with %s stress classification", h.Score, h.Stress),
		}}
	}
	return nil
}

func bpFactors(b bp.Estimate, cfg Config) []Factor {
	var factors []Factor

	sys := float64(b.Systolic)
	switch {
	case sys >= cfg.SysSevere:
		factors = append(factors, Factor{
			Name:     "severely elevated estimated blood pressure",
			Points:   cfg.SysSeverePoints,
			Severity: SeverityHigh,
			Detail:   fmt.Sprintf("estimated systolic of %d mmHg is at or above %g mmHg", b.Systolic, cfg.SysSevere),
		})
	case sys >= cfg.SysHigh:
		factors = append(factors, Factor{
			Name:     "elevated estimated blood pressure",
			Points:   cfg.SysHighPoints,
			Severity: SeverityHigh,
			Detail:   fmt.Sprintf("estimated systolic of %d mmHg is in the hypertensive range", b.Systolic),
		})
	case sys >= cfg.SysElevated:
		factors = append(factors, Factor{
			Name:     "mildly elevated estimated blood pressure",
			Points:   cfg.SysElevatedPoints,
			Severity: SeverityModerate,
			Detail:   fmt.Sprintf("estimated systolic of %d mmHg is above the normal range", b.Systolic),
		})
	}

	if float64(b.Diastolic) >= cfg.DiaElevated {
		factors = append(factors, Factor{
			Name:     "elevated estimated diastolic pressure",
			Points:   cfg.DiaElevatedPoints,
			Severity: SeverityModerate,
			Detail:   fmt.Sprintf("estimated diastolic of %d mmHg is at or above %g mmHg", b.Diastolic, cfg.DiaElevated),
		})
	}

	return factors
}

func ageFactors(age int, cfg Config) []Factor {
	a := float64(age)
	switch {
	case a >= cfg.AgeSenior:
		return []Factor{{
			Name:     "age",
			Points:   cfg.AgeSeniorPoints,
			Severity: SeverityModerate,
			Detail:   fmt.Sprintf("age %d is in the highest risk bracket", age),
		}}
	case a >= cfg.AgeMiddle:
		return []Factor{{
			Name:     "age",
			Points:   cfg.AgeMiddlePoints,
			Severity: SeverityLow,
			Detail:   fmt.Sprintf("age %d carries moderately increased baseline risk", age),
		}}
	case a >= cfg.AgeMature:
		return []Factor{{
			Name:     "age",
			Points:   cfg.AgeMaturePoints,
			Severity: SeverityLow,
			Detail:   fmt.Sprintf("age %d carries slightly increased baseline risk", age),
		}}
	}
	return nil
}

// recommend derives suggestions from the triggered factors and the overall
// level. It always returns at least one entry when the level is high or
// very-high.
func recommend(level Level, factors []Factor) []string {
	var recs []string

	for _, f := range factors {
		switch f.Name {
		case "elevated resting heart rate", "raised resting heart rate":
			recs = append(recs, "Regular aerobic exercise helps lower resting heart rate over time.")
		case "very low heart-rate variability", "low heart-rate variability":
			recs = append(recs, "Prioritize sleep, recovery, and stress management to improve heart-rate variability.")
		case "severely elevated estimated blood pressure", "elevated estimated blood pressure":
			recs = append(recs, "Have your blood pressure measured with a calibrated cuff and discuss the reading with a clinician.")
		case "mildly elevated estimated blood pressure", "elevated estimated diastolic pressure":
			recs = append(recs, "Reducing sodium intake and maintaining regular activity help keep blood pressure in range.")
		case "low resting heart rate":
			recs = append(recs, "A low resting heart rate is common in trained individuals; mention it at your next checkup if you feel faint or fatigued.")
		}
	}

	switch level {
	case LevelVeryHigh:
		recs = append(recs, "Multiple indicators are elevated; a medical consultation is strongly advised.")
	case LevelHigh:
		recs = append(recs, "Several indicators are elevated; consider a professional cardiovascular checkup.")
	case LevelModerate:
		recs = append(recs, "Keep an eye on these readings and retest under calm, well-lit conditions.")
	default:
		if len(recs) == 0 {
			recs = append(recs, "Indicators look good; maintain your current lifestyle.")
		}
	}

	return dedupe(recs)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
