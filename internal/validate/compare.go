package validate

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/monitoring"
)

// Metric names reported by CompareConfigurations.
const (
	MetricAccuracy          = "accuracy"
	MetricFalsePositiveRate = "false_positive_rate"
	MetricDataQuality       = "data_quality"
)

// ComparedMetrics lists the metrics a comparison report covers, in display
// order.
var ComparedMetrics = []string{MetricAccuracy, MetricFalsePositiveRate, MetricDataQuality}

// MetricComparison is the full statistical comparison of one metric between
// a baseline and a candidate configuration.
type MetricComparison struct {
	TStatistic            float64            `json:"t_statistic"`
	DF                    int                `json:"df"`
	PValue                float64            `json:"p_value"`
	MeanDifference        float64            `json:"mean_difference"`
	EffectSize            float64            `json:"effect_size"`
	BaselineCI            ConfidenceInterval `json:"baseline_ci"`
	ImprovedCI            ConfidenceInterval `json:"improved_ci"`
	Significant           bool               `json:"significant"`
	PracticalSignificance string             `json:"practical_significance"`
}

// ComparisonReport aggregates the per-metric comparisons of one A/B run.
type ComparisonReport struct {
	ReportID       string                      `json:"report_id"`
	CreatedAt      int64                       `json:"created_at"`
	Folds          int                         `json:"folds"`
	Sessions       int                         `json:"sessions"`
	Confidence     float64                     `json:"confidence"`
	Metrics        map[string]MetricComparison `json:"metrics"`
	AnySignificant bool                        `json:"any_significant"`
}

// CompareOptions parameterises CompareConfigurations.
type CompareOptions struct {
	// Folds is the k of the shared k-fold split. Defaults to 5.
	Folds int

	// Confidence level for intervals. Defaults to 0.95.
	Confidence float64

	// Metrics options applied to both sides.
	Metrics MetricsOptions

	// RNG confines the split's randomness; nil uses the global source.
	RNG *rand.Rand
}

// CompareConfigurations runs a paired statistical comparison of two result
// sets over the same session corpus. Both slices must hold the same sessions
// in the same order, each evaluated under its own configuration.
//
// A shared k-fold split is evaluated on both sides, producing k paired
// observations per metric; each metric then gets a paired t-test, Cohen's d,
// and confidence intervals.
func CompareConfigurations(baseline, improved []detect.SessionResult, opts CompareOptions) (*ComparisonReport, error) {
	if len(baseline) == 0 {
		return nil, fmt.Errorf("comparison requires at least one session")
	}
	if len(baseline) != len(improved) {
		return nil, fmt.Errorf("comparison requires aligned result sets, got %d and %d",
			len(baseline), len(improved))
	}
	for i := range baseline {
		if baseline[i].Dataset != improved[i].Dataset {
			return nil, fmt.Errorf("result sets disagree at index %d: %q vs %q",
				i, baseline[i].Dataset, improved[i].Dataset)
		}
	}

	folds := opts.Folds
	if folds <= 0 {
		folds = 5
	}
	confidence := opts.Confidence
	if confidence == 0 {
		confidence = 0.95
	}

	split := KFoldSplit(len(baseline), folds, opts.RNG)
	observations := map[string][2][]float64{}
	for _, fold := range split {
		baseFold := make([]detect.SessionResult, 0, len(fold.Test))
		impFold := make([]detect.SessionResult, 0, len(fold.Test))
		for _, idx := range fold.Test {
			baseFold = append(baseFold, baseline[idx])
			impFold = append(impFold, improved[idx])
		}
		baseM := ComputeMetrics(baseFold, opts.Metrics)
		impM := ComputeMetrics(impFold, opts.Metrics)

		for name, pair := range map[string][2]float64{
			MetricAccuracy:          {baseM.Accuracy, impM.Accuracy},
			MetricFalsePositiveRate: {baseM.FalsePositiveRate, impM.FalsePositiveRate},
			MetricDataQuality:       {baseM.AvgDataQuality, impM.AvgDataQuality},
		} {
			obs := observations[name]
			obs[0] = append(obs[0], pair[0])
			obs[1] = append(obs[1], pair[1])
			observations[name] = obs
		}
	}

	report := &ComparisonReport{
		ReportID:   uuid.New().String(),
		CreatedAt:  time.Now().UnixMilli(),
		Folds:      len(split),
		Sessions:   len(baseline),
		Confidence: confidence,
		Metrics:    make(map[string]MetricComparison, len(ComparedMetrics)),
	}

	for _, name := range ComparedMetrics {
		obs := observations[name]
		cmp, err := compareMetric(obs[0], obs[1], confidence)
		if err != nil {
			return nil, fmt.Errorf("comparing %s: %w", name, err)
		}
		report.Metrics[name] = cmp
		if cmp.Significant {
			report.AnySignificant = true
		}
		monitoring.Debugf("[compare] %s: t=%.3f p=%.3f d=%.3f (%s)",
			name, cmp.TStatistic, cmp.PValue, cmp.EffectSize, cmp.PracticalSignificance)
	}
	return report, nil
}

// compareMetric runs the full per-metric battery over paired fold
// observations.
func compareMetric(baseline, improved []float64, confidence float64) (MetricComparison, error) {
	tt, err := PairedTTest(baseline, improved)
	if err != nil {
		return MetricComparison{}, err
	}
	baseCI, err := MeanConfidenceInterval(baseline, confidence)
	if err != nil {
		return MetricComparison{}, err
	}
	impCI, err := MeanConfidenceInterval(improved, confidence)
	if err != nil {
		return MetricComparison{}, err
	}
	d, label, err := CohenD(baseline, improved)
	if err != nil {
		return MetricComparison{}, err
	}

	return MetricComparison{
		TStatistic:            tt.TStatistic,
		DF:                    tt.DF,
		PValue:                tt.PValue,
		MeanDifference:        tt.MeanDifference,
		EffectSize:            d,
		BaselineCI:            baseCI,
		ImprovedCI:            impCI,
		Significant:           tt.Significant,
		PracticalSignificance: label,
	}, nil
}
