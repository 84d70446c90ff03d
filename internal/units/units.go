// Package units provides shared constants and conversions for acceleration
// and rate values used across the detection pipeline.
package units

// StandardGravity is the gravitational acceleration constant (m/s²) used by
// calibration and the uncalibrated magnitude fallback. The whole pipeline
// stores acceleration in m/s².
const StandardGravity = 9.81

// Unit constants
const (
	MPS2 = "mps2"
	G    = "g"
)

// ValidUnits contains all valid acceleration unit values
var ValidUnits = []string{MPS2, G}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertAcceleration converts an acceleration from m/s² to the target units.
// Internally everything is stored in m/s².
func ConvertAcceleration(accelMPS2 float64, targetUnits string) float64 {
	switch targetUnits {
	case G:
		return accelMPS2 / StandardGravity
	case MPS2:
		return accelMPS2
	default:
		return accelMPS2 // default to m/s² if unknown unit
	}
}

// MillisToMinutes converts a millisecond duration to fractional minutes.
// Violation rates are reported per minute.
func MillisToMinutes(ms int64) float64 {
	return float64(ms) / 60000.0
}
