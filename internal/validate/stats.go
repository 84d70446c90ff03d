// Package validate turns per-session detection results into classification
// metrics and compares detector configurations across session corpora with
// paired significance testing, confidence intervals, and effect sizes.
package validate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// tTable holds two-sided critical values by degrees of freedom for the
// supported confidence levels. Beyond df 30 the normal approximation is
// used. Intervals between listed entries round down to the nearest lower
// df, the conservative choice.
var tTable = map[float64]map[int]float64{
	0.90: {
		1: 6.314, 2: 2.920, 3: 2.353, 4: 2.132, 5: 2.015,
		6: 1.943, 7: 1.895, 8: 1.860, 9: 1.833, 10: 1.812,
		15: 1.753, 20: 1.725, 25: 1.708, 30: 1.697,
	},
	0.95: {
		1: 12.706, 2: 4.303, 3: 3.182, 4: 2.776, 5: 2.571,
		6: 2.447, 7: 2.365, 8: 2.306, 9: 2.262, 10: 2.228,
		15: 2.131, 20: 2.086, 25: 2.060, 30: 2.042,
	},
	0.99: {
		1: 63.657, 2: 9.925, 3: 5.841, 4: 4.604, 5: 4.032,
		6: 3.707, 7: 3.499, 8: 3.355, 9: 3.250, 10: 3.169,
		15: 2.947, 20: 2.845, 25: 2.787, 30: 2.750,
	},
}

// normalCritical holds the z critical values used past df 30.
var normalCritical = map[float64]float64{
	0.90: 1.645,
	0.95: 1.96,
	0.99: 2.576,
}

// tCritical looks up the two-sided critical value for the given degrees of
// freedom and confidence level. Unsupported confidence levels fall back
// to 0.95.
func tCritical(df int, confidence float64) float64 {
	table, ok := tTable[confidence]
	if !ok {
		confidence = 0.95
		table = tTable[confidence]
	}
	if df > 30 {
		return normalCritical[confidence]
	}
	if df < 1 {
		df = 1
	}
	for d := df; d >= 1; d-- {
		if v, ok := table[d]; ok {
			return v
		}
	}
	return normalCritical[confidence]
}

// ConfidenceInterval is a mean estimate with t-distribution bounds.
type ConfidenceInterval struct {
	Mean       float64 `json:"mean"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Margin     float64 `json:"margin"`
	Confidence float64 `json:"confidence"`
	N          int     `json:"n"`
}

// MeanConfidenceInterval computes the confidence interval of the mean using
// the sample standard deviation (n−1 denominator) and the t-table above.
func MeanConfidenceInterval(values []float64, confidence float64) (ConfidenceInterval, error) {
	if len(values) == 0 {
		return ConfidenceInterval{}, fmt.Errorf("confidence interval requires at least one value")
	}

	mean := stat.Mean(values, nil)
	std := 0.0
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}

	margin := tCritical(len(values)-1, confidence) * std / math.Sqrt(float64(len(values)))
	return ConfidenceInterval{
		Mean:       mean,
		Lower:      mean - margin,
		Upper:      mean + margin,
		Margin:     margin,
		Confidence: confidence,
		N:          len(values),
	}, nil
}

// TTestResult holds the outcome of a paired t-test.
type TTestResult struct {
	TStatistic     float64 `json:"t_statistic"`
	DF             int     `json:"df"`
	PValue         float64 `json:"p_value"`
	MeanDifference float64 `json:"mean_difference"`
	EffectSize     float64 `json:"effect_size"`
	Significant    bool    `json:"significant"`
}

// PairedTTest compares the same sessions under two configurations. The
// arrays must be non-empty and equal length; a mismatch is a programmer
// error at the call site, reported as an error rather than recovered.
//
// The p-value is a deliberately coarse approximation: a normal CDF for
// df ≥ 30 and a step table below. Recorded significance flags depend on
// this exact behavior, so it is preserved rather than replaced with an
// exact Student-t CDF.
func PairedTTest(baseline, improved []float64) (TTestResult, error) {
	if len(baseline) == 0 || len(improved) == 0 {
		return TTestResult{}, fmt.Errorf("paired t-test requires non-empty inputs")
	}
	if len(baseline) != len(improved) {
		return TTestResult{}, fmt.Errorf("paired t-test requires equal-length inputs, got %d and %d",
			len(baseline), len(improved))
	}

	diffs := make([]float64, len(baseline))
	for i := range baseline {
		diffs[i] = improved[i] - baseline[i]
	}

	meanDiff := stat.Mean(diffs, nil)
	stdDiff := 0.0
	if len(diffs) > 1 {
		stdDiff = stat.StdDev(diffs, nil)
	}

	result := TTestResult{
		DF:             len(diffs) - 1,
		MeanDifference: meanDiff,
	}
	if stdDiff == 0 {
		// No variability in the differences: nothing to test.
		result.PValue = 1.0
		return result, nil
	}

	result.TStatistic = meanDiff / (stdDiff / math.Sqrt(float64(len(diffs))))
	result.EffectSize = meanDiff / stdDiff
	result.PValue = approximatePValue(result.TStatistic, result.DF)
	result.Significant = result.PValue < 0.05
	return result, nil
}

// approximatePValue returns the two-sided p-value approximation: normal CDF
// for df ≥ 30, otherwise the coarse step table.
func approximatePValue(t float64, df int) float64 {
	at := math.Abs(t)
	if df >= 30 {
		return 2 * (1 - normalCDF(at))
	}
	switch {
	case at > 3:
		return 0.01
	case at > 2:
		return 0.05
	case at > 1.5:
		return 0.15
	default:
		return 0.25
	}
}

// normalCDF is the standard normal cumulative distribution function.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// Effect-size magnitude labels for Cohen's d.
const (
	EffectNegligible = "negligible"
	EffectSmall      = "small"
	EffectMedium     = "medium"
	EffectLarge      = "large"
)

// EffectMagnitude maps an absolute Cohen's d to its conventional label.
func EffectMagnitude(d float64) string {
	ad := math.Abs(d)
	switch {
	case ad < 0.2:
		return EffectNegligible
	case ad < 0.5:
		return EffectSmall
	case ad < 0.8:
		return EffectMedium
	default:
		return EffectLarge
	}
}

// CohenD computes the independent-samples standardized effect size with a
// pooled, (n−1)-weighted standard deviation. Returns the d value and its
// magnitude label.
func CohenD(a, b []float64) (float64, string, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, "", fmt.Errorf("cohen's d requires non-empty inputs")
	}

	meanA := stat.Mean(a, nil)
	meanB := stat.Mean(b, nil)
	varA, varB := 0.0, 0.0
	if len(a) > 1 {
		varA = stat.Variance(a, nil)
	}
	if len(b) > 1 {
		varB = stat.Variance(b, nil)
	}

	nA, nB := float64(len(a)), float64(len(b))
	pooledDenom := nA + nB - 2
	if pooledDenom <= 0 {
		return 0, EffectNegligible, nil
	}
	pooled := math.Sqrt(((nA-1)*varA + (nB-1)*varB) / pooledDenom)
	if pooled == 0 {
		return 0, EffectNegligible, nil
	}

	d := (meanB - meanA) / pooled
	return d, EffectMagnitude(d), nil
}

// BootstrapCI estimates a confidence interval for an arbitrary statistic by
// resampling with replacement. iterations defaults to 1000 when
// non-positive. The rng confines all randomness to the caller; passing nil
// falls back to the global source.
func BootstrapCI(values []float64, statistic func([]float64) float64, iterations int, confidence float64, rng *rand.Rand) (ConfidenceInterval, error) {
	if len(values) == 0 {
		return ConfidenceInterval{}, fmt.Errorf("bootstrap requires at least one value")
	}
	if iterations <= 0 {
		iterations = 1000
	}

	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}

	stats := make([]float64, iterations)
	resample := make([]float64, len(values))
	for i := 0; i < iterations; i++ {
		for j := range resample {
			resample[j] = values[intn(len(values))]
		}
		stats[i] = statistic(resample)
	}
	sort.Float64s(stats)

	alpha := 1 - confidence
	lowerIdx := int(alpha / 2 * float64(iterations))
	upperIdx := int((1 - alpha/2) * float64(iterations))
	if upperIdx >= iterations {
		upperIdx = iterations - 1
	}

	return ConfidenceInterval{
		Mean:       stat.Mean(stats, nil),
		Lower:      stats[lowerIdx],
		Upper:      stats[upperIdx],
		Margin:     (stats[upperIdx] - stats[lowerIdx]) / 2,
		Confidence: confidence,
		N:          len(values),
	}, nil
}

// Fold is one train/test partition of a k-fold split, expressed as indices
// into the original list so the utility stays model-agnostic.
type Fold struct {
	Train []int
	Test  []int
	Fold  int
}

// KFoldSplit shuffles n indices and partitions them into k folds. k is
// clamped to [1, n]. Shuffling is the only randomness; pass a seeded rng
// for reproducible splits.
func KFoldSplit(n, k int, rng *rand.Rand) []Fold {
	if n <= 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	folds := make([]Fold, k)
	for f := 0; f < k; f++ {
		start := f * n / k
		end := (f + 1) * n / k
		test := append([]int(nil), indices[start:end]...)
		train := make([]int, 0, n-len(test))
		train = append(train, indices[:start]...)
		train = append(train, indices[end:]...)
		folds[f] = Fold{Train: train, Test: test, Fold: f}
	}
	return folds
}
