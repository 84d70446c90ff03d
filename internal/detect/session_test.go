package detect

import (
	"testing"

	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/kestrel-data/driving.report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDataset builds the canonical acceptance fixture: a full stationary
// calibration window followed by n hard accelerations spaced a cooldown apart.
func scenarioDataset(cfg Config, n int, accel float64) telemetry.Dataset {
	samples := testutil.StationarySamples(150, 0, 50)
	ts := samples[len(samples)-1].TimestampMs + cfg.AlertCooldownMs
	for i := 0; i < n; i++ {
		samples = append(samples, testutil.DrivingSample(ts, accel))
		ts += cfg.AlertCooldownMs
	}
	return testutil.SessionDataset("scenario", telemetry.LabelRisky, 0, samples)
}

func TestSessionTesterScenarioA(t *testing.T) {
	cfg := LegacyConfig()
	cfg.AxisSelectionRatio = 0.5
	ds := scenarioDataset(cfg, 10, 8.0)

	result := NewSessionTester(cfg).Run(&ds)

	require.True(t, result.CalibrationSuccess)
	assert.Equal(t, 10, result.ViolationCount)
	for _, v := range result.Violations {
		assert.Equal(t, ViolationAcceleration, v.Type)
	}
}

func TestSessionTesterScenarioBEmptyDataset(t *testing.T) {
	ds := telemetry.Dataset{Name: "empty", Label: telemetry.LabelSafe}
	result := NewSessionTester(DefaultConfig()).Run(&ds)

	assert.Zero(t, result.ViolationRate)
	assert.Zero(t, result.ViolationCount)
	assert.False(t, result.CalibrationSuccess)
	assert.Zero(t, result.SamplesProcessed)
}

func TestSessionTesterZeroDuration(t *testing.T) {
	cfg := LegacyConfig()
	cfg.AxisSelectionRatio = 0.5
	ds := scenarioDataset(cfg, 3, 8.0)
	ds.DurationMs = 0

	result := NewSessionTester(cfg).Run(&ds)
	assert.Equal(t, 3, result.ViolationCount)
	assert.Zero(t, result.ViolationRate, "zero duration is guarded, not divided")
}

func TestSessionTesterViolationRate(t *testing.T) {
	cfg := LegacyConfig()
	cfg.AxisSelectionRatio = 0.5
	ds := scenarioDataset(cfg, 4, 8.0)
	ds.DurationMs = 120000 // 2 minutes

	result := NewSessionTester(cfg).Run(&ds)
	assert.InDelta(t, 2.0, result.ViolationRate, 1e-9)
}

func TestSessionTesterDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	ds := scenarioDataset(cfg, 6, 9.0)
	tester := NewSessionTester(cfg)

	first := tester.Run(&ds)
	second := tester.Run(&ds)
	assert.Equal(t, first, second, "re-running a dataset must be bit-identical")
}

func TestSessionTesterAdaptiveTwoPhase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSmoothing = false
	cfg.EnableEventScoring = false

	// Calibration window, then a noisy cruising segment (baseline), then a
	// burst well above even the adapted threshold.
	samples := testutil.StationarySamples(150, 0, 50)
	ts := samples[len(samples)-1].TimestampMs + 50
	for i := 0; i < 600; i++ {
		accel := 1.5
		if i%2 == 1 {
			accel = -1.5
		}
		samples = append(samples, testutil.DrivingSample(ts, accel))
		ts += 50
	}
	ts += cfg.AlertCooldownMs
	for i := 0; i < 3; i++ {
		samples = append(samples, testutil.DrivingSample(ts, 12.0))
		ts += cfg.AlertCooldownMs
	}
	ds := testutil.SessionDataset("adaptive", telemetry.LabelRisky, 0, samples)

	result := NewSessionTester(cfg).Run(&ds)

	require.True(t, result.CalibrationSuccess)
	assert.True(t, result.AdaptiveThresholds)
	assert.Greater(t, result.Baseline.AccelerationStd, 0.0)
	assert.GreaterOrEqual(t, result.Baseline.AccelerationThreshold, cfg.AccelerationThreshold)
	assert.Equal(t, 3, result.ViolationCount)
	assert.InDelta(t, -result.Baseline.AccelerationThreshold, result.Baseline.BrakingThreshold, 1e-9)
}

func TestSessionTesterQualityAccounting(t *testing.T) {
	cfg := LegacyConfig()
	cfg.AxisSelectionRatio = 0.5
	cfg.QualityThreshold = 0.9

	samples := testutil.StationarySamples(150, 0, 50)
	ts := samples[len(samples)-1].TimestampMs + 50
	// Two clean samples, two violently noisy ones.
	samples = append(samples,
		testutil.DrivingSample(ts, 0.5),
		testutil.DrivingSample(ts+50, 0.5),
		telemetry.SensorSample{TimestampMs: ts + 100, Accel: telemetry.Vec3{X: 30, Z: 9.81}},
		telemetry.SensorSample{TimestampMs: ts + 150, Accel: telemetry.Vec3{X: 30, Z: 9.81}},
	)
	ds := testutil.SessionDataset("quality", telemetry.LabelSafe, 0, samples)

	result := NewSessionTester(cfg).Run(&ds)
	assert.Equal(t, 4, result.SamplesProcessed)
	assert.Equal(t, 2, result.SamplesSkipped)
	assert.InDelta(t, 50.0, result.LowQualityPercentage, 1e-9)
	assert.Greater(t, result.AverageQuality, 0.0)
	assert.Less(t, result.AverageQuality, 1.0)
}
