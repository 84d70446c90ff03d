// Package telemetry defines the wire-level domain types for recorded and
// live driving sessions: sensor samples, 3-axis vectors, and datasets with
// ground-truth labels.
package telemetry

import "math"

// Session ground-truth labels. A dataset is labelled by how the drive was
// actually rated, independent of what the detector reports.
const (
	LabelSafe  = "safe"
	LabelRisky = "risky"
)

// ValidLabel reports whether s is a recognised ground-truth label.
func ValidLabel(s string) bool {
	return s == LabelSafe || s == LabelRisky
}

// Vec3 is a 3-axis reading. Accelerometer values are m/s², gyroscope values
// are rad/s.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the Euclidean norm of the vector.
func (v Vec3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// SensorSample is one time-synchronized accelerometer/gyroscope reading.
// Samples are immutable and must be consumed in arrival order.
type SensorSample struct {
	TimestampMs int64 `json:"timestamp_ms"`
	Accel       Vec3  `json:"accel"`
	Gyro        Vec3  `json:"gyro"`
}

// Dataset is one recorded driving session: an ordered sample stream plus
// metadata. Read-only once loaded.
type Dataset struct {
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	DurationMs int64          `json:"duration_ms"`
	Samples    []SensorSample `json:"samples,omitempty"`
}

// DurationMinutes returns the session duration in fractional minutes.
func (d *Dataset) DurationMinutes() float64 {
	return float64(d.DurationMs) / 60000.0
}
