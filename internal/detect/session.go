package detect

import (
	"github.com/kestrel-data/driving.report/internal/monitoring"
	"github.com/kestrel-data/driving.report/internal/telemetry"
)

// SessionTester runs one full detection pass of a recorded dataset under a
// fixed configuration and produces the per-session summary. Instances are
// cheap; the batch tools create one per (dataset, configuration) pair.
type SessionTester struct {
	cfg Config
}

// NewSessionTester creates a tester for the given configuration.
func NewSessionTester(cfg Config) *SessionTester {
	return &SessionTester{cfg: cfg}
}

// Run traverses the dataset and returns its session result. Empty datasets
// produce a zero-rate result, never an error.
//
// Adaptive configurations take two phases: phase 1 calibrates and collects
// baseline statistics up to the sample cap, phase 2 re-traverses from the
// start with the frozen thresholds, skipping the calibration window.
func (t *SessionTester) Run(ds *telemetry.Dataset) SessionResult {
	result := SessionResult{
		Dataset:            ds.Name,
		Label:              ds.Label,
		AdaptiveThresholds: t.cfg.EnableAdaptiveThresholds,
	}

	if len(ds.Samples) == 0 {
		result.Baseline = NewBaselineCollector(t.cfg).Estimate()
		return result
	}

	var det *Detector
	if t.cfg.EnableAdaptiveThresholds {
		det = t.runAdaptive(ds)
	} else {
		det = NewDetector(t.cfg)
		for _, s := range ds.Samples {
			det.ProcessSample(s)
		}
		det.End()
	}

	result.Violations = det.Violations()
	result.ViolationCount = len(result.Violations)
	result.CalibrationSuccess = det.IsCalibrated()
	result.CalibrationTimeMs = det.cal.CalibrationTimeMs()
	result.Baseline = det.Baseline()

	processed, skipped, qualitySum := det.Counters()
	result.SamplesProcessed = processed
	result.SamplesSkipped = skipped
	if processed > 0 {
		result.AverageQuality = qualitySum / float64(processed)
		result.LowQualityPercentage = float64(skipped) / float64(processed) * 100
	}

	if minutes := ds.DurationMinutes(); minutes > 0 {
		result.ViolationRate = float64(result.ViolationCount) / minutes
	}

	monitoring.Debugf("[session] %s: %d violations, %d processed, %d skipped, calibrated=%v",
		ds.Name, result.ViolationCount, processed, skipped, result.CalibrationSuccess)
	return result
}

// runAdaptive performs the two-phase traversal and returns the detector
// that executed the detection phase.
func (t *SessionTester) runAdaptive(ds *telemetry.Dataset) *Detector {
	// Phase 1: calibrate and collect the baseline window.
	cal := NewCalibrator(t.cfg)
	sig := NewSignalProcessor(t.cfg, cal)
	collector := NewBaselineCollector(t.cfg)
	for _, s := range ds.Samples {
		if cal.Observe(s) {
			continue
		}
		if !collector.Add(sig.Process(s).DrivingAccel) {
			break
		}
	}
	baseline := collector.Estimate()

	// Phase 2: re-traverse with frozen thresholds, skipping the samples the
	// calibration window consumed.
	det := NewDetector(t.cfg)
	var calEndTs int64 = -1
	if cal.IsCalibrated() {
		det.seedCalibration(cal.Gravity(), cal.CalibrationTimeMs())
		calEndTs = ds.Samples[0].TimestampMs + cal.CalibrationTimeMs()
	}
	det.freezeBaseline(baseline)

	for _, s := range ds.Samples {
		if s.TimestampMs <= calEndTs {
			continue
		}
		det.ProcessSample(s)
	}
	det.End()
	return det
}
