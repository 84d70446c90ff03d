package detect

import (
	"testing"

	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/kestrel-data/driving.report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedDetectorConfig is the scenario configuration used through most of
// these tests: fixed thresholds, no scoring, no smoothing.
func fixedDetectorConfig() Config {
	cfg := LegacyConfig()
	cfg.AxisSelectionRatio = 0.5
	return cfg
}

// calibrateDetector drives a detector through a complete stationary
// calibration window and returns the timestamp after the window.
func calibrateDetector(t *testing.T, d *Detector) int64 {
	t.Helper()
	samples := testutil.StationarySamples(150, 0, 50)
	for _, s := range samples {
		require.Nil(t, d.ProcessSample(s))
	}
	require.True(t, d.IsCalibrated())
	return samples[len(samples)-1].TimestampMs + 50
}

func TestDetectorScenarioTenSpacedAccelerations(t *testing.T) {
	cfg := fixedDetectorConfig()
	d := NewDetector(cfg)
	ts := calibrateDetector(t, d)

	// 10 samples at 8.0 m/s² driving acceleration, spaced a full cooldown apart.
	fired := 0
	for i := 0; i < 10; i++ {
		v := d.ProcessSample(testutil.DrivingSample(ts, 8.0))
		require.NotNil(t, v, "sample %d should fire", i)
		assert.Equal(t, ViolationAcceleration, v.Type)
		assert.InDelta(t, 8.0, v.Value, 1e-9)
		assert.InDelta(t, 6.5, v.Threshold, 1e-9)
		fired++
		ts += cfg.AlertCooldownMs
	}
	assert.Equal(t, 10, fired)
	assert.Len(t, d.Violations(), 10)
}

func TestDetectorBrakingViolation(t *testing.T) {
	d := NewDetector(fixedDetectorConfig())
	ts := calibrateDetector(t, d)

	v := d.ProcessSample(testutil.DrivingSample(ts, -8.0))
	require.NotNil(t, v)
	assert.Equal(t, ViolationBraking, v.Type)
	assert.InDelta(t, -8.0, v.Value, 1e-9)
	assert.InDelta(t, -6.5, v.Threshold, 1e-9)
	assert.Equal(t, "braking_threshold_exceeded", v.Cause)
}

func TestDetectorCooldownInvariant(t *testing.T) {
	cfg := fixedDetectorConfig()
	d := NewDetector(cfg)
	ts := calibrateDetector(t, d)

	// A burst of breaching samples every 500ms for 30s.
	for i := 0; i < 60; i++ {
		d.ProcessSample(testutil.DrivingSample(ts+int64(i)*500, 9.0))
	}

	violations := d.Violations()
	require.NotEmpty(t, violations)
	for i := 1; i < len(violations); i++ {
		gap := violations[i].TimestampMs - violations[i-1].TimestampMs
		assert.GreaterOrEqual(t, gap, cfg.AlertCooldownMs,
			"consecutive violations must be at least a cooldown apart")
	}
}

func TestDetectorCooldownResetsOnEmissionOnly(t *testing.T) {
	cfg := fixedDetectorConfig()
	d := NewDetector(cfg)
	ts := calibrateDetector(t, d)

	require.NotNil(t, d.ProcessSample(testutil.DrivingSample(ts, 8.0)))
	// Suppressed breaches during cooldown must not push the window forward.
	assert.Nil(t, d.ProcessSample(testutil.DrivingSample(ts+1000, 8.0)))
	assert.Nil(t, d.ProcessSample(testutil.DrivingSample(ts+4000, 8.0)))
	// Exactly one cooldown after the *emitted* violation fires again.
	assert.NotNil(t, d.ProcessSample(testutil.DrivingSample(ts+cfg.AlertCooldownMs, 8.0)))
}

func TestDetectorQualityGate(t *testing.T) {
	cfg := fixedDetectorConfig()
	cfg.QualityThreshold = 0.9
	d := NewDetector(cfg)
	ts := calibrateDetector(t, d)

	// Violent shaking: huge magnitude deviation tanks quality below 0.9.
	noisy := telemetry.SensorSample{
		TimestampMs: ts,
		Accel:       telemetry.Vec3{X: 15.0, Z: 9.81},
	}
	assert.Nil(t, d.ProcessSample(noisy))

	_, skipped, _ := d.Counters()
	assert.Equal(t, 1, skipped)

	for _, v := range d.Violations() {
		assert.GreaterOrEqual(t, v.Quality, cfg.QualityThreshold)
	}
}

func TestDetectorSkippedSamplesDoNotTouchCooldown(t *testing.T) {
	cfg := fixedDetectorConfig()
	cfg.QualityThreshold = 0.9
	d := NewDetector(cfg)
	ts := calibrateDetector(t, d)

	require.NotNil(t, d.ProcessSample(testutil.DrivingSample(ts, 8.0)))
	// Low-quality sample mid-cooldown.
	d.ProcessSample(telemetry.SensorSample{TimestampMs: ts + 2000, Accel: telemetry.Vec3{X: 25, Z: 9.81}})
	// Clean breach exactly one cooldown after the first emission still fires.
	assert.NotNil(t, d.ProcessSample(testutil.DrivingSample(ts+cfg.AlertCooldownMs, 8.0)))
}

func TestDetectorScoredMode(t *testing.T) {
	cfg := fixedDetectorConfig()
	cfg.EnableEventScoring = true
	cfg.ViolationScoreThreshold = 1.2
	d := NewDetector(cfg)
	ts := calibrateDetector(t, d)

	// Breach below the score threshold: 7.0/6.5 ≈ 1.08 < 1.2.
	assert.Nil(t, d.ProcessSample(testutil.DrivingSample(ts, 7.0)))

	// 9.0/6.5 ≈ 1.38 ≥ 1.2: fires with score and cause attached.
	v := d.ProcessSample(testutil.DrivingSample(ts+10000, 9.0))
	require.NotNil(t, v)
	require.NotNil(t, v.Score)
	assert.InDelta(t, 9.0/6.5, *v.Score, 1e-9)
	assert.Equal(t, "acceleration_threshold_exceeded", v.Cause)
}

func TestDetectorJerkAnnotation(t *testing.T) {
	cfg := fixedDetectorConfig()
	cfg.EnableJerkDetection = true
	d := NewDetector(cfg)
	ts := calibrateDetector(t, d)

	d.ProcessSample(testutil.DrivingSample(ts, 1.0))
	v := d.ProcessSample(testutil.DrivingSample(ts+6000, 8.0))
	require.NotNil(t, v)
	require.NotNil(t, v.Jerk)
	assert.InDelta(t, 7.0, *v.Jerk, 1e-9)
}

func TestDetectorUncalibratedFallbackStillDetects(t *testing.T) {
	cfg := fixedDetectorConfig()
	// Fallback samples carry large magnitude deviations, so quality runs low
	// in degraded mode. Gate accordingly.
	cfg.QualityThreshold = 0.1
	d := NewDetector(cfg)

	// Only 10 stationary samples, then a long gap: calibration fails at the
	// window boundary and the detector degrades to the magnitude fallback.
	for _, s := range testutil.StationarySamples(10, 0, 100) {
		d.ProcessSample(s)
	}
	ts := cfg.CalibrationPeriodMs + 1000

	// |accel| − 9.81 = 8.0 via a 17.81 magnitude reading.
	v := d.ProcessSample(telemetry.SensorSample{
		TimestampMs: ts,
		Accel:       telemetry.Vec3{Z: 17.81},
	})
	assert.False(t, d.IsCalibrated())
	require.NotNil(t, v)
	assert.Equal(t, ViolationAcceleration, v.Type)
}

func TestDetectorAdaptiveLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSmoothing = false
	cfg.EnableEventScoring = false
	cfg.BaselineSampleCap = 20
	d := NewDetector(cfg)

	assert.Equal(t, StateCalibrating, d.State())
	ts := calibrateDetector(t, d)
	assert.Equal(t, StateBaselineCollection, d.State())

	// Feed the baseline window with quiet driving.
	for i := 0; i < 20; i++ {
		d.ProcessSample(testutil.DrivingSample(ts+int64(i)*100, 0.2))
	}
	assert.Equal(t, StateDetecting, d.State())
	assert.True(t, d.Baseline().AccelerationThreshold >= cfg.AccelerationThreshold)

	d.End()
	assert.Equal(t, StateEndOfStream, d.State())
	assert.Nil(t, d.ProcessSample(testutil.DrivingSample(ts+99999, 20.0)))
}

func TestDetectorResetDeterminism(t *testing.T) {
	cfg := fixedDetectorConfig()
	d := NewDetector(cfg)

	run := func() []Violation {
		d.Reset()
		ts := calibrateDetector(t, d)
		for i := 0; i < 20; i++ {
			d.ProcessSample(testutil.DrivingSample(ts+int64(i)*3000, 7.5))
		}
		d.End()
		return d.Violations()
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "reset then identical replay must be bit-identical")
}

func TestDetectorStartCalibrationIdempotent(t *testing.T) {
	d := NewDetector(fixedDetectorConfig())
	d.StartCalibration()
	d.StartCalibration()
	assert.Equal(t, StateCalibrating, d.State())
	assert.False(t, d.IsCalibrated())
}
