package detect

import (
	"math"

	"github.com/kestrel-data/driving.report/internal/telemetry"
)

// DetectorState identifies the detector's position in its session lifecycle.
type DetectorState int

// Detector states, in order of progression.
const (
	StateCalibrating DetectorState = iota
	StateBaselineCollection
	StateDetecting
	StateEndOfStream
)

// String returns a readable state name for logging.
func (s DetectorState) String() string {
	switch s {
	case StateCalibrating:
		return "calibrating"
	case StateBaselineCollection:
		return "baseline_collection"
	case StateDetecting:
		return "detecting"
	case StateEndOfStream:
		return "end_of_stream"
	default:
		return "unknown"
	}
}

// Detector is the stateful violation classifier. One instance owns one
// sample stream; samples must arrive in timestamp order through a single
// caller. Concurrent sessions each take their own instance.
//
// Driven sample-at-a-time it walks Calibrating → BaselineCollection
// (adaptive mode only) → Detecting. The SessionTester alternatively seeds
// calibration and baseline from a pre-pass and feeds only the detection
// phase.
type Detector struct {
	cfg Config

	cal      *Calibrator
	sig      *SignalProcessor
	smoother *Smoother
	jerk     *JerkTracker
	baseline *BaselineCollector

	state       DetectorState
	frozen      SessionBaseline
	frozenSet   bool
	lastViolTs  int64
	hasEmitted  bool
	processed   int
	skipped     int
	qualitySum  float64
	violations  []Violation
}

// NewDetector creates a detector for one session.
func NewDetector(cfg Config) *Detector {
	d := &Detector{cfg: cfg}
	d.Reset()
	return d
}

// Reset clears all session state. Idempotent; safe to call between runs or
// from an external session controller's stop path.
func (d *Detector) Reset() {
	d.cal = NewCalibrator(d.cfg)
	d.sig = NewSignalProcessor(d.cfg, d.cal)
	d.smoother = NewSmoother(d.cfg.SmoothingWindowSize)
	d.jerk = &JerkTracker{}
	d.baseline = NewBaselineCollector(d.cfg)
	d.state = StateCalibrating
	d.frozen = SessionBaseline{}
	d.frozenSet = false
	d.lastViolTs = 0
	d.hasEmitted = false
	d.processed = 0
	d.skipped = 0
	d.qualitySum = 0
	d.violations = nil
}

// StartCalibration puts the detector back at the start of a session.
// Idempotent alias of Reset for the live boundary.
func (d *Detector) StartCalibration() {
	d.Reset()
}

// IsCalibrated reports whether the gravity vector has been established.
func (d *Detector) IsCalibrated() bool {
	return d.cal.IsCalibrated()
}

// State returns the current lifecycle state.
func (d *Detector) State() DetectorState {
	return d.state
}

// Baseline returns the thresholds in force: the frozen adaptive baseline if
// one was computed, otherwise the fixed configured values.
func (d *Detector) Baseline() SessionBaseline {
	if d.frozenSet {
		return d.frozen
	}
	return SessionBaseline{
		AccelerationThreshold: d.cfg.AccelerationThreshold,
		BrakingThreshold:      d.cfg.BrakingThreshold,
		JerkThreshold:         d.cfg.JerkThreshold,
	}
}

// Violations returns all violations emitted so far.
func (d *Detector) Violations() []Violation {
	return d.violations
}

// Counters returns (processed, skipped, qualitySum) for the detection phase.
func (d *Detector) Counters() (processed, skipped int, qualitySum float64) {
	return d.processed, d.skipped, d.qualitySum
}

// seedCalibration installs a pre-computed gravity vector and jumps straight
// past the calibration state.
func (d *Detector) seedCalibration(gravity telemetry.Vec3, timeMs int64) {
	d.cal.seed(gravity, timeMs)
	if d.state == StateCalibrating {
		d.advancePastCalibration()
	}
}

// freezeBaseline installs a pre-computed session baseline and moves the
// detector into the detecting state.
func (d *Detector) freezeBaseline(b SessionBaseline) {
	d.frozen = b
	d.frozenSet = true
	d.state = StateDetecting
}

func (d *Detector) advancePastCalibration() {
	if d.cfg.EnableAdaptiveThresholds {
		d.state = StateBaselineCollection
	} else {
		d.state = StateDetecting
	}
}

// End marks the stream as finished.
func (d *Detector) End() {
	d.state = StateEndOfStream
}

// ProcessSample consumes one sample and returns a violation if this sample
// fired one. This is the live boundary: an external subscription loop calls
// it per sample and forwards any violation to its delivery collaborator.
func (d *Detector) ProcessSample(s telemetry.SensorSample) *Violation {
	switch d.state {
	case StateEndOfStream:
		return nil

	case StateCalibrating:
		if d.cal.Observe(s) {
			return nil
		}
		// Calibration window is over (completed or abandoned); this sample
		// belongs to the next phase.
		d.advancePastCalibration()
		return d.ProcessSample(s)

	case StateBaselineCollection:
		ps := d.condition(s)
		if !d.baseline.Add(ps.DrivingAccel) || d.baseline.Full() {
			d.freezeBaseline(d.baseline.Estimate())
		}
		return nil

	default: // StateDetecting
		if !d.frozenSet {
			d.freezeBaseline(d.baseline.Estimate())
		}
		return d.detect(d.condition(s))
	}
}

// condition runs signal processing, smoothing, and jerk annotation.
func (d *Detector) condition(s telemetry.SensorSample) ProcessedSample {
	ps := d.sig.Process(s)
	if d.cfg.EnableSmoothing {
		ps.DrivingAccel = d.smoother.Push(ps.DrivingAccel)
	}
	if d.cfg.EnableJerkDetection {
		ps.Jerk, ps.HasJerk = d.jerk.Update(ps.DrivingAccel)
	}
	return ps
}

// detect applies the quality gate, cooldown, and threshold rules.
func (d *Detector) detect(ps ProcessedSample) *Violation {
	d.processed++
	d.qualitySum += ps.Quality

	if ps.Quality < d.cfg.QualityThreshold {
		// Gated samples never touch cooldown state.
		d.skipped++
		return nil
	}

	if d.hasEmitted && ps.TimestampMs-d.lastViolTs < d.cfg.AlertCooldownMs {
		return nil
	}

	b := d.Baseline()
	var vtype, cause string
	var threshold float64
	switch {
	case ps.DrivingAccel > b.AccelerationThreshold:
		vtype = ViolationAcceleration
		cause = "acceleration_threshold_exceeded"
		threshold = b.AccelerationThreshold
	case ps.DrivingAccel < b.BrakingThreshold:
		vtype = ViolationBraking
		cause = "braking_threshold_exceeded"
		threshold = b.BrakingThreshold
	default:
		return nil
	}

	v := Violation{
		TimestampMs: ps.TimestampMs,
		Type:        vtype,
		Value:       ps.DrivingAccel,
		Threshold:   threshold,
		Quality:     ps.Quality,
		Cause:       cause,
	}
	if ps.HasJerk {
		jerk := ps.Jerk
		v.Jerk = &jerk
	}

	if d.cfg.EnableEventScoring {
		score := math.Abs(ps.DrivingAccel) / math.Abs(threshold)
		if score < d.cfg.ViolationScoreThreshold {
			return nil
		}
		v.Score = &score
	}

	d.lastViolTs = ps.TimestampMs
	d.hasEmitted = true
	d.violations = append(d.violations, v)
	return &v
}
