package validate

import (
	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/telemetry"
)

// DefaultClassificationThreshold is the fixed violations-per-minute rate
// above which a session is classified risky.
const DefaultClassificationThreshold = 5.0

// DynamicThresholdFloor bounds the dynamic classification threshold from
// below: very quiet corpora would otherwise classify everything risky.
const DynamicThresholdFloor = 0.5

// MetricsOptions selects how the classification threshold is derived. The
// two historical validators disagreed on this, so both modes remain
// supported behind a flag.
type MetricsOptions struct {
	// FixedThreshold is the violations/min cutoff. Zero means
	// DefaultClassificationThreshold.
	FixedThreshold float64

	// Dynamic derives the cutoff from the corpus itself:
	// max(mean violation rate, DynamicThresholdFloor).
	Dynamic bool
}

// Metrics holds classification metrics over a labelled session corpus.
// All ratios are zero-safe: a zero denominator yields 0, never NaN.
type Metrics struct {
	Accuracy          float64 `json:"accuracy"`
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	FalsePositiveRate float64 `json:"false_positive_rate"`

	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`

	AvgDataQuality         float64 `json:"avg_data_quality"`
	CalibrationSuccessRate float64 `json:"calibration_success_rate"`
	AvgSafeViolationRate   float64 `json:"avg_safe_violation_rate"`
	AvgRiskyViolationRate  float64 `json:"avg_risky_violation_rate"`

	Threshold        float64 `json:"threshold"`
	DynamicThreshold bool    `json:"dynamic_threshold"`
	TotalSessions    int     `json:"total_sessions"`
}

// ComputeMetrics classifies each session by its violation rate against the
// threshold and buckets it against the ground-truth label. Risky is the
// positive class.
func ComputeMetrics(results []detect.SessionResult, opts MetricsOptions) Metrics {
	m := Metrics{TotalSessions: len(results), DynamicThreshold: opts.Dynamic}

	m.Threshold = opts.FixedThreshold
	if m.Threshold == 0 {
		m.Threshold = DefaultClassificationThreshold
	}
	if opts.Dynamic && len(results) > 0 {
		var sum float64
		for _, r := range results {
			sum += r.ViolationRate
		}
		mean := sum / float64(len(results))
		if mean > DynamicThresholdFloor {
			m.Threshold = mean
		} else {
			m.Threshold = DynamicThresholdFloor
		}
	}

	var qualitySum float64
	var calibrated int
	var safeRateSum, riskyRateSum float64
	var safeCount, riskyCount int

	for _, r := range results {
		qualitySum += r.AverageQuality
		if r.CalibrationSuccess {
			calibrated++
		}

		flagged := r.ViolationRate >= m.Threshold
		if r.Label == telemetry.LabelRisky {
			riskyRateSum += r.ViolationRate
			riskyCount++
			if flagged {
				m.TruePositives++
			} else {
				m.FalseNegatives++
			}
		} else {
			safeRateSum += r.ViolationRate
			safeCount++
			if flagged {
				m.FalsePositives++
			} else {
				m.TrueNegatives++
			}
		}
	}

	if len(results) > 0 {
		m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(len(results))
		m.AvgDataQuality = qualitySum / float64(len(results))
		m.CalibrationSuccessRate = float64(calibrated) / float64(len(results))
	}
	m.Precision = safeRatio(m.TruePositives, m.TruePositives+m.FalsePositives)
	m.Recall = safeRatio(m.TruePositives, m.TruePositives+m.FalseNegatives)
	m.FalsePositiveRate = safeRatio(m.FalsePositives, m.FalsePositives+m.TrueNegatives)
	if safeCount > 0 {
		m.AvgSafeViolationRate = safeRateSum / float64(safeCount)
	}
	if riskyCount > 0 {
		m.AvgRiskyViolationRate = riskyRateSum / float64(riskyCount)
	}
	return m
}

// safeRatio divides num by denom, returning 0 on a zero denominator.
func safeRatio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
