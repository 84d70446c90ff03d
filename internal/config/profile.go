// Package config loads detection profiles: JSON files with optional fields
// merged over shipped defaults. A profile converts to an immutable
// detect.Config exactly once per run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrel-data/driving.report/internal/detect"
)

// Shipped profile names accepted wherever a profile path is expected.
const (
	ProfileDefault = "default"
	ProfileLegacy  = "legacy"
)

// Profile is the JSON schema for a detection profile. All fields are
// optional; the Get* accessors provide defaults for anything omitted, so
// partial profiles are safe.
type Profile struct {
	AccelerationThreshold    *float64 `json:"acceleration_threshold,omitempty"`
	BrakingThreshold         *float64 `json:"braking_threshold,omitempty"`
	QualityThreshold         *float64 `json:"quality_threshold,omitempty"`
	CalibrationPeriodMs      *int64   `json:"calibration_period_ms,omitempty"`
	MinCalibrationSamples    *int     `json:"min_calibration_samples,omitempty"`
	CalibrationSampleFloor   *int     `json:"calibration_sample_floor,omitempty"`
	AlertCooldownMs          *int64   `json:"alert_cooldown_ms,omitempty"`
	EnableAdaptiveThresholds *bool    `json:"enable_adaptive_thresholds,omitempty"`
	ThresholdMultiplier      *float64 `json:"threshold_multiplier,omitempty"`
	BaselineSampleCap        *int     `json:"baseline_sample_cap,omitempty"`
	EnableJerkDetection      *bool    `json:"enable_jerk_detection,omitempty"`
	JerkThreshold            *float64 `json:"jerk_threshold,omitempty"`
	EnableSmoothing          *bool    `json:"enable_smoothing,omitempty"`
	SmoothingWindowSize      *int     `json:"smoothing_window_size,omitempty"`
	EnableEventScoring       *bool    `json:"enable_event_scoring,omitempty"`
	ViolationScoreThreshold  *float64 `json:"violation_score_threshold,omitempty"`
	AxisSelectionRatio       *float64 `json:"axis_selection_ratio,omitempty"`
	GyroNoiseThreshold       *float64 `json:"gyro_noise_threshold,omitempty"`
	GyroPenaltyFactor        *float64 `json:"gyro_penalty_factor,omitempty"`
	DeviationPenalty         *float64 `json:"deviation_penalty,omitempty"`
	CalibratedBoost          *float64 `json:"calibrated_boost,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultProfile returns the scored/adaptive profile (axis ratio 0.5).
func DefaultProfile() *Profile {
	return &Profile{
		EnableAdaptiveThresholds: ptrBool(true),
		EnableJerkDetection:      ptrBool(true),
		EnableSmoothing:          ptrBool(true),
		EnableEventScoring:       ptrBool(true),
		AxisSelectionRatio:       ptrFloat64(0.5),
	}
}

// LegacyProfile returns the original any-breach profile (axis ratio 1.0).
// All capability flags stay off.
func LegacyProfile() *Profile {
	return &Profile{
		AxisSelectionRatio: ptrFloat64(1.0),
	}
}

// LoadProfile resolves a shipped profile name or loads a JSON profile file.
// Fields omitted from the file keep their defaults.
func LoadProfile(nameOrPath string) (*Profile, error) {
	switch nameOrPath {
	case ProfileDefault:
		return DefaultProfile(), nil
	case ProfileLegacy:
		return LegacyProfile(), nil
	}

	cleanPath := filepath.Clean(nameOrPath)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("profile file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// Validate checks the fields that are set. The converted detect.Config is
// validated again as a whole.
func (p *Profile) Validate() error {
	if p.QualityThreshold != nil {
		if *p.QualityThreshold < 0 || *p.QualityThreshold > 1 {
			return fmt.Errorf("quality_threshold must be between 0 and 1, got %f", *p.QualityThreshold)
		}
	}
	if p.AccelerationThreshold != nil && *p.AccelerationThreshold <= 0 {
		return fmt.Errorf("acceleration_threshold must be positive, got %f", *p.AccelerationThreshold)
	}
	if p.BrakingThreshold != nil && *p.BrakingThreshold >= 0 {
		return fmt.Errorf("braking_threshold must be negative, got %f", *p.BrakingThreshold)
	}
	if p.SmoothingWindowSize != nil && *p.SmoothingWindowSize < 1 {
		return fmt.Errorf("smoothing_window_size must be at least 1, got %d", *p.SmoothingWindowSize)
	}
	if p.AxisSelectionRatio != nil && *p.AxisSelectionRatio <= 0 {
		return fmt.Errorf("axis_selection_ratio must be positive, got %f", *p.AxisSelectionRatio)
	}
	return nil
}

// DetectConfig converts the profile into the immutable detection
// configuration, merging defaults for unset fields.
func (p *Profile) DetectConfig() (detect.Config, error) {
	cfg := detect.LegacyConfig()
	cfg.AxisSelectionRatio = 0.5 // profile default; the legacy profile overrides

	if p.AccelerationThreshold != nil {
		cfg.AccelerationThreshold = *p.AccelerationThreshold
	}
	if p.BrakingThreshold != nil {
		cfg.BrakingThreshold = *p.BrakingThreshold
	}
	if p.QualityThreshold != nil {
		cfg.QualityThreshold = *p.QualityThreshold
	}
	if p.CalibrationPeriodMs != nil {
		cfg.CalibrationPeriodMs = *p.CalibrationPeriodMs
	}
	if p.MinCalibrationSamples != nil {
		cfg.MinCalibrationSamples = *p.MinCalibrationSamples
	}
	if p.CalibrationSampleFloor != nil {
		cfg.CalibrationSampleFloor = *p.CalibrationSampleFloor
	}
	if p.AlertCooldownMs != nil {
		cfg.AlertCooldownMs = *p.AlertCooldownMs
	}
	if p.EnableAdaptiveThresholds != nil {
		cfg.EnableAdaptiveThresholds = *p.EnableAdaptiveThresholds
	}
	if p.ThresholdMultiplier != nil {
		cfg.ThresholdMultiplier = *p.ThresholdMultiplier
	}
	if p.BaselineSampleCap != nil {
		cfg.BaselineSampleCap = *p.BaselineSampleCap
	}
	if p.EnableJerkDetection != nil {
		cfg.EnableJerkDetection = *p.EnableJerkDetection
	}
	if p.JerkThreshold != nil {
		cfg.JerkThreshold = *p.JerkThreshold
	}
	if p.EnableSmoothing != nil {
		cfg.EnableSmoothing = *p.EnableSmoothing
	}
	if p.SmoothingWindowSize != nil {
		cfg.SmoothingWindowSize = *p.SmoothingWindowSize
	}
	if p.EnableEventScoring != nil {
		cfg.EnableEventScoring = *p.EnableEventScoring
	}
	if p.ViolationScoreThreshold != nil {
		cfg.ViolationScoreThreshold = *p.ViolationScoreThreshold
	}
	if p.AxisSelectionRatio != nil {
		cfg.AxisSelectionRatio = *p.AxisSelectionRatio
	}
	if p.GyroNoiseThreshold != nil {
		cfg.GyroNoiseThreshold = *p.GyroNoiseThreshold
	}
	if p.GyroPenaltyFactor != nil {
		cfg.GyroPenaltyFactor = *p.GyroPenaltyFactor
	}
	if p.DeviationPenalty != nil {
		cfg.DeviationPenalty = *p.DeviationPenalty
	}
	if p.CalibratedBoost != nil {
		cfg.CalibratedBoost = *p.CalibratedBoost
	}

	if err := cfg.Validate(); err != nil {
		return detect.Config{}, err
	}
	return cfg, nil
}
