package strategy

import "fmt"

// ToleranceConfig controls how much overshoot above a quota's target
// fraction is allowed before an attribute counts as over-represented.
// The schedule tightens as capacity fills.
type ToleranceConfig struct {
	// InitialTolerance applies while progress is at or below
	// StrictnessStart.
	InitialTolerance float64
	// FinalTolerance is the interpolation endpoint at full capacity.
	FinalTolerance float64
	// StrictnessStart is the progress fraction where tolerance starts
	// decreasing.
	StrictnessStart float64
}

// DefaultToleranceConfig returns the documented defaults: 20% initial
// tolerance, 2% final, tightening from 10% progress.
func DefaultToleranceConfig() ToleranceConfig {
	return ToleranceConfig{
		InitialTolerance: 0.20,
		FinalTolerance:   0.02,
		StrictnessStart:  0.10,
	}
}

// Validate rejects configurations the schedule cannot make monotone.
func (c ToleranceConfig) Validate() error {
	if c.InitialTolerance < 0 || c.InitialTolerance > 1 {
		return fmt.Errorf("initial tolerance %v outside [0,1]", c.InitialTolerance)
	}
	if c.FinalTolerance < 0 || c.FinalTolerance > 1 {
		return fmt.Errorf("final tolerance %v outside [0,1]", c.FinalTolerance)
	}
	if c.FinalTolerance > c.InitialTolerance {
		return fmt.Errorf("final tolerance %v exceeds initial tolerance %v",
			c.FinalTolerance, c.InitialTolerance)
	}
	if c.StrictnessStart < 0 || c.StrictnessStart >= 1 {
		return fmt.Errorf("strictness start %v outside [0,1)", c.StrictnessStart)
	}
	return nil
}

// At evaluates the schedule for a progress fraction. It is monotone
// non-increasing and exactly zero from 95% progress on.
func (c ToleranceConfig) At(progress float64) float64 {
	if progress >= 0.95 {
		return 0
	}
	if progress <= c.StrictnessStart {
		return c.InitialTolerance
	}

	p := (progress - c.StrictnessStart) / (1.0 - c.StrictnessStart)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return c.InitialTolerance - (c.InitialTolerance-c.FinalTolerance)*p
}
