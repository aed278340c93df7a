package bp

import "testing"

func TestEstimateReferenceSubject(t *testing.T) {
	cfg := DefaultConfig()
	// 30-year-old at 60 BPM (meanRR 1000ms) with full data.
	e := EstimateBP(1000, 1.0, cfg.FullConfidenceSamples, 30, cfg)

	if e.Systolic != int(cfg.SystolicBase) {
		t.Errorf("expected systolic %v, got %d", cfg.SystolicBase, e.Systolic)
	}
	if e.Diastolic != int(cfg.DiastolicBase) {
		t.Errorf("expected diastolic %v, got %d", cfg.DiastolicBase, e.Diastolic)
	}
	if e.Confidence != 1.0 {
		t.Errorf("expected full confidence, got %v", e.Confidence)
	}
}

func TestEstimateMonotoneInHeartRate(t *testing.T) {
	cfg := DefaultConfig()

	// Decreasing meanRR (faster heart rate) must never decrease systolic.
	prevSys := -1
	prevDia := -1
	for rr := 2000.0; rr >= 300; rr -= 25 {
		e := EstimateBP(rr, 0.9, 40, 45, cfg)
		if e.Systolic < prevSys {
			t.Fatalf("systolic decreased from %d to %d as meanRR fell to %v", prevSys, e.Systolic, rr)
		}
		if e.Diastolic < prevDia {
			t.Fatalf("diastolic decreased from %d to %d as meanRR fell to %v", prevDia, e.Diastolic, rr)
		}
		prevSys = e.Systolic
		prevDia = e.Diastolic
	}
}

func TestEstimateClamped(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		meanRR float64
		age    int
	}{
		{"extremely fast heart rate", 200, 90},
		{"extremely slow heart rate", 5000, 20},
		{"zero meanRR", 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EstimateBP(tt.meanRR, 1.0, 60, tt.age, cfg)
			if float64(e.Systolic) < cfg.SystolicMin || float64(e.Systolic) > cfg.SystolicMax {
				t.Errorf("systolic %d outside [%v,%v]", e.Systolic, cfg.SystolicMin, cfg.SystolicMax)
			}
			if float64(e.Diastolic) < cfg.DiastolicMin || float64(e.Diastolic) > cfg.DiastolicMax {
				t.Errorf("diastolic %d outside [%v,%v]", e.Diastolic, cfg.DiastolicMin, cfg.DiastolicMax)
			}
		})
	}
}

func TestEstimateAgeOffset(t *testing.T) {
	cfg := DefaultConfig()

	young := EstimateBP(1000, 1.0, 40, 25, cfg)
	old := EstimateBP(1000, 1.0, 40, 70, cfg)

	if old.Systolic <= young.Systolic {
		t.Errorf("expected higher systolic for older subject: %d vs %d", old.Systolic, young.Systolic)
	}
	if old.Diastolic < young.Diastolic {
		t.Errorf("expected diastolic at least as high for older subject: %d vs %d", old.Diastolic, young.Diastolic)
	}

	// Below the reference age the offset stays at zero rather than going
	// negative.
	younger := EstimateBP(1000, 1.0, 40, 18, cfg)
	if younger.Systolic != young.Systolic {
		t.Errorf("expected no age penalty below reference age: %d vs %d", younger.Systolic, young.Systolic)
	}
}

func TestEstimateConfidence(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		detConf float64
		samples int
		want    float64
	}{
		{"full data full confidence", 1.0, 30, 1.0},
		{"half data", 0.8, 15, 0.4},
		{"no samples", 1.0, 0, 0},
		{"excess samples capped", 1.0, 300, 1.0},
		{"confidence above one clamped", 1.5, 30, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EstimateBP(900, tt.detConf, tt.samples, 40, cfg)
			if e.Confidence != tt.want {
				t.Errorf("expected confidence %v, got %v", tt.want, e.Confidence)
			}
			if e.Confidence > 1.0 {
				t.Errorf("confidence %v exceeds 1.0", e.Confidence)
			}
		})
	}
}
