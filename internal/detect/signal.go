package detect

import (
	"math"

	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/kestrel-data/driving.report/internal/units"
)

// SignalProcessor turns a raw sensor sample into a signed driving
// acceleration plus a 0–1 quality score. It reads the calibrator's gravity
// vector but never mutates it.
type SignalProcessor struct {
	cfg Config
	cal *Calibrator
}

// NewSignalProcessor creates a signal processor bound to a calibrator.
func NewSignalProcessor(cfg Config, cal *Calibrator) *SignalProcessor {
	return &SignalProcessor{cfg: cfg, cal: cal}
}

// Process conditions one sample. Jerk and smoothing are applied downstream.
func (p *SignalProcessor) Process(s telemetry.SensorSample) ProcessedSample {
	rawMag := s.Accel.Magnitude()

	var driving float64
	if p.cal.IsCalibrated() {
		driving = p.selectAxis(s.Accel.Sub(p.cal.Gravity()))
	} else {
		// Degraded mode: no orientation information, use the deviation of
		// the total magnitude from gravity.
		driving = rawMag - units.StandardGravity
	}

	return ProcessedSample{
		TimestampMs:  s.TimestampMs,
		DrivingAccel: driving,
		RawMagnitude: rawMag,
		Quality:      p.quality(s, rawMag),
	}
}

// selectAxis picks the signed driving-acceleration component from the
// gravity-free linear acceleration. Horizontal motion wins when its
// magnitude exceeds the vertical component scaled by the configured ratio.
func (p *SignalProcessor) selectAxis(linear telemetry.Vec3) float64 {
	horizontalMag := math.Hypot(linear.X, linear.Y)
	verticalMag := math.Abs(linear.Z)

	if horizontalMag > verticalMag*p.cfg.AxisSelectionRatio {
		if math.Abs(linear.X) >= math.Abs(linear.Y) {
			return linear.X
		}
		return linear.Y
	}
	return linear.Z
}

// quality scores how trustworthy the sample is: deviation from gravity
// magnitude penalises, gyroscope noise penalises, calibration boosts.
func (p *SignalProcessor) quality(s telemetry.SensorSample, rawMag float64) float64 {
	deviation := math.Abs(rawMag-units.StandardGravity) / units.StandardGravity
	q := 1.0 - deviation*p.cfg.DeviationPenalty
	if q < 0 {
		q = 0
	}

	if s.Gyro.Magnitude() > p.cfg.GyroNoiseThreshold {
		q *= p.cfg.GyroPenaltyFactor
	}

	if p.cal.IsCalibrated() {
		q *= p.cfg.CalibratedBoost
		if q > 1.0 {
			q = 1.0
		}
	}
	return q
}
