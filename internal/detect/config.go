// Package detect implements the driver-behavior violation detection core:
// gravity calibration, signal conditioning, adaptive thresholding, and the
// stateful harsh-acceleration/harsh-braking classifier. The package performs
// no I/O; loaders, stores, and transports live in sibling packages.
package detect

import "fmt"

// Config holds all detection parameters for one run. It is built once
// (defaults merged by the profile loader) and never mutated afterwards;
// every pipeline stage receives it by value.
type Config struct {
	// Fixed firing thresholds (m/s²). BrakingThreshold is negative.
	AccelerationThreshold float64
	BrakingThreshold      float64

	// QualityThreshold gates detection: samples scoring below it are
	// counted as skipped and never fire.
	QualityThreshold float64

	// Calibration window.
	CalibrationPeriodMs    int64
	MinCalibrationSamples  int
	CalibrationSampleFloor int

	// Cooldown between emitted violations.
	AlertCooldownMs int64

	// Adaptive thresholding.
	EnableAdaptiveThresholds bool
	ThresholdMultiplier      float64
	BaselineSampleCap        int

	// Jerk annotation.
	EnableJerkDetection bool
	JerkThreshold       float64

	// Moving-average smoothing.
	EnableSmoothing     bool
	SmoothingWindowSize int

	// Event scoring. When disabled the detector fires on any breach
	// (the legacy behavior).
	EnableEventScoring      bool
	ViolationScoreThreshold float64

	// Axis selection: horizontal wins when horizontalMag exceeds
	// verticalMag × AxisSelectionRatio. The historical variants disagree
	// on this value (0.5 vs 1.0), so it stays configurable.
	AxisSelectionRatio float64

	// Quality scoring.
	DeviationPenalty   float64
	GyroNoiseThreshold float64
	GyroPenaltyFactor  float64
	CalibratedBoost    float64
}

// DefaultConfig returns the scored/adaptive configuration: event scoring,
// adaptive thresholds, smoothing, and jerk annotation all on.
func DefaultConfig() Config {
	cfg := LegacyConfig()
	cfg.EnableAdaptiveThresholds = true
	cfg.EnableJerkDetection = true
	cfg.EnableSmoothing = true
	cfg.EnableEventScoring = true
	return cfg
}

// LegacyConfig returns the original any-breach configuration: fixed
// thresholds, no scoring, no smoothing, axis ratio 1.0.
func LegacyConfig() Config {
	return Config{
		AccelerationThreshold:    6.5,
		BrakingThreshold:         -6.5,
		QualityThreshold:         0.4,
		CalibrationPeriodMs:      10000,
		MinCalibrationSamples:    150,
		CalibrationSampleFloor:   50,
		AlertCooldownMs:          5000,
		ThresholdMultiplier:      2.0,
		BaselineSampleCap:        1500,
		JerkThreshold:            4.0,
		SmoothingWindowSize:      3,
		ViolationScoreThreshold:  1.0,
		AxisSelectionRatio:       1.0,
		DeviationPenalty:         1.0,
		GyroNoiseThreshold:       2.5,
		GyroPenaltyFactor:        0.75,
		CalibratedBoost:          1.15,
	}
}

// Validate checks that the configuration values are consistent.
func (c Config) Validate() error {
	if c.AccelerationThreshold <= 0 {
		return fmt.Errorf("acceleration threshold must be positive, got %f", c.AccelerationThreshold)
	}
	if c.BrakingThreshold >= 0 {
		return fmt.Errorf("braking threshold must be negative, got %f", c.BrakingThreshold)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("quality threshold must be in [0,1], got %f", c.QualityThreshold)
	}
	if c.CalibrationPeriodMs < 0 {
		return fmt.Errorf("calibration period must be non-negative, got %d", c.CalibrationPeriodMs)
	}
	if c.CalibrationSampleFloor > c.MinCalibrationSamples {
		return fmt.Errorf("calibration floor %d exceeds minimum sample count %d",
			c.CalibrationSampleFloor, c.MinCalibrationSamples)
	}
	if c.AlertCooldownMs < 0 {
		return fmt.Errorf("alert cooldown must be non-negative, got %d", c.AlertCooldownMs)
	}
	if c.EnableAdaptiveThresholds && c.ThresholdMultiplier <= 0 {
		return fmt.Errorf("threshold multiplier must be positive, got %f", c.ThresholdMultiplier)
	}
	if c.EnableSmoothing && c.SmoothingWindowSize < 1 {
		return fmt.Errorf("smoothing window must be at least 1, got %d", c.SmoothingWindowSize)
	}
	if c.EnableEventScoring && c.ViolationScoreThreshold <= 0 {
		return fmt.Errorf("violation score threshold must be positive, got %f", c.ViolationScoreThreshold)
	}
	if c.AxisSelectionRatio <= 0 {
		return fmt.Errorf("axis selection ratio must be positive, got %f", c.AxisSelectionRatio)
	}
	return nil
}
