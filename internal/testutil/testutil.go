// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"github.com/kestrel-data/driving.report/internal/telemetry"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta checks that got is within delta of want.
func AssertInDelta(t *testing.T, got, want, delta float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > delta {
		t.Errorf("value = %f, want %f ± %f", got, want, delta)
	}
}

// StationarySamples produces n samples of a phone lying flat: accelerometer
// reading pure gravity on Z, gyroscope at rest. Used to drive calibration.
func StationarySamples(n int, startMs, intervalMs int64) []telemetry.SensorSample {
	samples := make([]telemetry.SensorSample, n)
	for i := range samples {
		samples[i] = telemetry.SensorSample{
			TimestampMs: startMs + int64(i)*intervalMs,
			Accel:       telemetry.Vec3{Z: 9.81},
		}
	}
	return samples
}

// DrivingSample produces one sample with a horizontal (X-axis) driving
// acceleration on top of gravity.
func DrivingSample(tsMs int64, accelX float64) telemetry.SensorSample {
	return telemetry.SensorSample{
		TimestampMs: tsMs,
		Accel:       telemetry.Vec3{X: accelX, Z: 9.81},
	}
}

// SessionDataset wraps samples into a labelled dataset. Duration is taken
// from the sample span when durationMs is zero.
func SessionDataset(name, label string, durationMs int64, samples []telemetry.SensorSample) telemetry.Dataset {
	if durationMs == 0 && len(samples) > 1 {
		durationMs = samples[len(samples)-1].TimestampMs - samples[0].TimestampMs
	}
	return telemetry.Dataset{
		Name:       name,
		Label:      label,
		DurationMs: durationMs,
		Samples:    samples,
	}
}
