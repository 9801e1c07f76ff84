package strategy

import (
	"testing"
)

func TestToleranceScheduleDefaults(t *testing.T) {
	cfg := DefaultToleranceConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name     string
		progress float64
		expected float64
	}{
		{"at_zero", 0, 0.20},
		{"before_strictness_start", 0.05, 0.20},
		{"at_strictness_start", 0.10, 0.20},
		{"midway", 0.55, 0.11},
		{"near_end", 0.94, 0.032},
		{"at_095", 0.95, 0},
		{"past_095", 0.99, 0},
		{"at_one", 1.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.At(tt.progress)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("At(%v) = %v, expected %v", tt.progress, got, tt.expected)
			}
		})
	}
}

func TestToleranceScheduleMonotone(t *testing.T) {
	configs := []ToleranceConfig{
		DefaultToleranceConfig(),
		{InitialTolerance: 0.5, FinalTolerance: 0.0, StrictnessStart: 0.0},
		{InitialTolerance: 0.3, FinalTolerance: 0.3, StrictnessStart: 0.5},
		{InitialTolerance: 1.0, FinalTolerance: 0.01, StrictnessStart: 0.9},
	}

	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("config %+v invalid: %v", cfg, err)
		}
		prev := cfg.At(0)
		for i := 1; i <= 1000; i++ {
			p := float64(i) / 1000
			cur := cfg.At(p)
			if cur > prev {
				t.Fatalf("config %+v: tolerance increased from %v to %v at progress %v",
					cfg, prev, cur, p)
			}
			if p >= 0.95 && cur != 0 {
				t.Fatalf("config %+v: tolerance %v at progress %v, expected 0", cfg, cur, p)
			}
			prev = cur
		}
	}
}

func TestToleranceScheduleConstant(t *testing.T) {
	// initial == final with strictness from the start means a flat
	// schedule until the zero-slack endgame.
	cfg := ToleranceConfig{InitialTolerance: 0.07, FinalTolerance: 0.07, StrictnessStart: 0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}

	for i := 0; i < 95; i++ {
		p := float64(i) / 100
		if got := cfg.At(p); got != 0.07 {
			t.Fatalf("At(%v) = %v, expected constant 0.07", p, got)
		}
	}
	if got := cfg.At(0.95); got != 0 {
		t.Fatalf("At(0.95) = %v, expected 0", got)
	}
}

func TestToleranceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ToleranceConfig
		wantErr bool
	}{
		{"defaults", DefaultToleranceConfig(), false},
		{"initial_negative", ToleranceConfig{InitialTolerance: -0.1}, true},
		{"initial_above_one", ToleranceConfig{InitialTolerance: 1.1}, true},
		{"final_negative", ToleranceConfig{InitialTolerance: 0.2, FinalTolerance: -0.01}, true},
		{"final_above_initial", ToleranceConfig{InitialTolerance: 0.1, FinalTolerance: 0.2}, true},
		{"strictness_at_one", ToleranceConfig{InitialTolerance: 0.2, FinalTolerance: 0.1, StrictnessStart: 1.0}, true},
		{"strictness_negative", ToleranceConfig{InitialTolerance: 0.2, FinalTolerance: 0.1, StrictnessStart: -0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
