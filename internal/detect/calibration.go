package detect

import "github.com/kestrel-data/driving.report/internal/telemetry"

// Calibrator derives the gravity-baseline vector from an initial stationary
// window of the sample stream. The gravity vector is frozen once calibration
// completes and only Reset clears it. State is per-session, never shared.
type Calibrator struct {
	cfg Config

	sum      telemetry.Vec3
	count    int
	firstTs  int64
	haveTs   bool
	windowUp bool

	calibrated        bool
	gravity           telemetry.Vec3
	calibrationTimeMs int64
}

// NewCalibrator creates a calibrator for one session.
func NewCalibrator(cfg Config) *Calibrator {
	return &Calibrator{cfg: cfg}
}

// Observe feeds one sample. It returns true while the sample was consumed by
// the calibration window; once calibration has completed (or been abandoned)
// it returns false and the sample belongs to the downstream pipeline.
func (c *Calibrator) Observe(s telemetry.SensorSample) bool {
	if c.calibrated || c.windowUp {
		return false
	}
	if !c.haveTs {
		c.firstTs = s.TimestampMs
		c.haveTs = true
	}

	elapsed := s.TimestampMs - c.firstTs
	if elapsed <= c.cfg.CalibrationPeriodMs {
		c.sum.X += s.Accel.X
		c.sum.Y += s.Accel.Y
		c.sum.Z += s.Accel.Z
		c.count++
		if c.count >= c.cfg.MinCalibrationSamples {
			c.finish(elapsed)
		}
		return true
	}

	// Window elapsed before the minimum count was reached. Accept what is
	// buffered if it clears the hard floor, otherwise stay uncalibrated and
	// let downstream fall back to the magnitude estimate.
	c.windowUp = true
	if c.count >= c.cfg.CalibrationSampleFloor {
		c.finish(elapsed)
	}
	return false
}

func (c *Calibrator) finish(elapsedMs int64) {
	n := float64(c.count)
	c.gravity = telemetry.Vec3{X: c.sum.X / n, Y: c.sum.Y / n, Z: c.sum.Z / n}
	c.calibrated = true
	c.calibrationTimeMs = elapsedMs
}

// IsCalibrated reports whether a gravity vector has been established.
func (c *Calibrator) IsCalibrated() bool {
	return c.calibrated
}

// Gravity returns the frozen gravity vector. Zero until calibrated.
func (c *Calibrator) Gravity() telemetry.Vec3 {
	return c.gravity
}

// CalibrationTimeMs returns how long calibration took, 0 if uncalibrated.
func (c *Calibrator) CalibrationTimeMs() int64 {
	return c.calibrationTimeMs
}

// SampleCount returns how many samples were consumed by the window.
func (c *Calibrator) SampleCount() int {
	return c.count
}

// seed installs a previously computed calibration, used when a session is
// re-traversed after a baseline pre-pass.
func (c *Calibrator) seed(gravity telemetry.Vec3, timeMs int64) {
	c.gravity = gravity
	c.calibrationTimeMs = timeMs
	c.calibrated = true
}

// Reset clears all state for a new dataset pass.
func (c *Calibrator) Reset() {
	*c = Calibrator{cfg: c.cfg}
}
