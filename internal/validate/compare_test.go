package validate

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corpus builds n aligned baseline/improved result pairs. The improved side
// classifies risky sessions more sharply and carries better data quality.
func corpus(n int) (baseline, improved []detect.SessionResult) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("session-%03d", i)
		label := telemetry.LabelSafe
		baseRate, impRate := 1.0+float64(i%3), 0.5+float64(i%3)*0.5
		if i%2 == 1 {
			label = telemetry.LabelRisky
			baseRate, impRate = 4.0+float64(i%5), 7.0+float64(i%5)
		}
		baseline = append(baseline, detect.SessionResult{
			Dataset: name, Label: label, ViolationRate: baseRate,
			AverageQuality: 0.70 + float64(i%4)*0.01, CalibrationSuccess: true,
		})
		improved = append(improved, detect.SessionResult{
			Dataset: name, Label: label, ViolationRate: impRate,
			AverageQuality: 0.82 + float64(i%5)*0.02, CalibrationSuccess: true,
		})
	}
	return baseline, improved
}

func TestCompareConfigurations(t *testing.T) {
	baseline, improved := corpus(40)

	report, err := CompareConfigurations(baseline, improved, CompareOptions{
		Folds:      5,
		Confidence: 0.95,
		Metrics:    MetricsOptions{FixedThreshold: 5},
		RNG:        rand.New(rand.NewSource(99)),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, 5, report.Folds)
	assert.Equal(t, 40, report.Sessions)
	require.Len(t, report.Metrics, len(ComparedMetrics))

	for _, name := range ComparedMetrics {
		mc, ok := report.Metrics[name]
		require.True(t, ok, "missing metric %s", name)
		assert.Equal(t, 4, mc.DF, "5 folds give 4 degrees of freedom")
		assert.NotEmpty(t, mc.PracticalSignificance)
	}

	// Data quality improves by roughly 0.15 across the corpus: a textbook
	// significant shift.
	quality := report.Metrics[MetricDataQuality]
	assert.InDelta(t, 0.15, quality.MeanDifference, 0.04)
	assert.True(t, quality.Significant)
	assert.True(t, report.AnySignificant)
}

func TestCompareConfigurationsDeterministicWithSeed(t *testing.T) {
	baseline, improved := corpus(20)

	run := func() *ComparisonReport {
		r, err := CompareConfigurations(baseline, improved, CompareOptions{
			Folds: 4,
			RNG:   rand.New(rand.NewSource(7)),
		})
		require.NoError(t, err)
		return r
	}

	a, b := run(), run()
	// Identity fields differ per run; the statistics must not.
	if diff := cmp.Diff(a.Metrics, b.Metrics); diff != "" {
		t.Errorf("seeded comparison not deterministic (-first +second):\n%s", diff)
	}
}

func TestCompareConfigurationsFailsFast(t *testing.T) {
	baseline, improved := corpus(10)

	_, err := CompareConfigurations(nil, nil, CompareOptions{})
	assert.Error(t, err)

	_, err = CompareConfigurations(baseline, improved[:5], CompareOptions{})
	assert.Error(t, err)

	// Misaligned datasets are rejected before any statistics run.
	swapped := append([]detect.SessionResult(nil), improved...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = CompareConfigurations(baseline, swapped, CompareOptions{})
	assert.Error(t, err)
}

func TestCompareConfigurationsDefaults(t *testing.T) {
	baseline, improved := corpus(25)
	report, err := CompareConfigurations(baseline, improved, CompareOptions{
		RNG: rand.New(rand.NewSource(3)),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Folds, "folds default to 5")
	assert.InDelta(t, 0.95, report.Confidence, 1e-9)
}
