package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/kestrel-data/driving.report/internal/validate"
)

func sampleReport() *validate.ComparisonReport {
	return &validate.ComparisonReport{
		ReportID:   "test-report",
		Folds:      5,
		Sessions:   20,
		Confidence: 0.95,
		Metrics: map[string]validate.MetricComparison{
			validate.MetricAccuracy: {
				TStatistic:  3.1,
				DF:          4,
				PValue:      0.01,
				Significant: true,
				BaselineCI:  validate.ConfidenceInterval{Mean: 0.72, Margin: 0.03},
				ImprovedCI:  validate.ConfidenceInterval{Mean: 0.81, Margin: 0.02},
			},
			validate.MetricFalsePositiveRate: {
				PValue:     0.25,
				BaselineCI: validate.ConfidenceInterval{Mean: 0.12, Margin: 0.04},
				ImprovedCI: validate.ConfidenceInterval{Mean: 0.10, Margin: 0.03},
			},
			validate.MetricDataQuality: {
				PValue:     0.15,
				BaselineCI: validate.ConfidenceInterval{Mean: 0.88, Margin: 0.01},
				ImprovedCI: validate.ConfidenceInterval{Mean: 0.90, Margin: 0.01},
			},
		},
		AnySignificant: true,
	}
}

func sampleResults() []detect.SessionResult {
	return []detect.SessionResult{
		{Dataset: "trip-001", Label: telemetry.LabelSafe, ViolationRate: 1.2},
		{Dataset: "trip-002", Label: telemetry.LabelRisky, ViolationRate: 7.5},
		{Dataset: "trip-003", Label: telemetry.LabelSafe, ViolationRate: 0.4},
		{Dataset: "trip-004", Label: telemetry.LabelRisky, ViolationRate: 6.1},
	}
}

func TestRenderComparisonHTML(t *testing.T) {
	var buf bytes.Buffer
	err := RenderComparisonHTML(&buf, ComparisonPage{
		Report:          sampleReport(),
		BaselineProfile: "legacy",
		ImprovedProfile: "default",
		BaselineResults: sampleResults(),
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Configuration Comparison")
	assert.Contains(t, html, "legacy")
	assert.Contains(t, html, "default")
	assert.Contains(t, html, "Violation Rates by Session")
	// Significant metrics get a starred label.
	assert.Contains(t, html, "accuracy (p=0.01 *)")
}

func TestRenderComparisonHTMLWithoutResultsSkipsScatter(t *testing.T) {
	var buf bytes.Buffer
	err := RenderComparisonHTML(&buf, ComparisonPage{
		Report:          sampleReport(),
		BaselineProfile: "legacy",
		ImprovedProfile: "default",
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Violation Rates by Session")
}

func TestRenderComparisonHTMLRequiresReport(t *testing.T) {
	var buf bytes.Buffer
	err := RenderComparisonHTML(&buf, ComparisonPage{})
	assert.Error(t, err)
}

func TestWriteComparisonHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison.html")
	err := WriteComparisonHTML(path, ComparisonPage{
		Report:          sampleReport(),
		BaselineProfile: "legacy",
		ImprovedProfile: "default",
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSaveViolationRatePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.png")
	err := SaveViolationRatePNG(path, sampleResults(), 5.0)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSaveViolationRatePNGRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.png")
	err := SaveViolationRatePNG(path, nil, 5.0)
	assert.Error(t, err)
}

func TestSaveMetricCIPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.png")
	err := SaveMetricCIPNG(path, sampleReport(), "legacy", "default")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSaveMetricCIPNGRequiresReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.png")
	assert.Error(t, SaveMetricCIPNG(path, nil, "a", "b"))
}
