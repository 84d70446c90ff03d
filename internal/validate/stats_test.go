package validate

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCritical(t *testing.T) {
	tests := []struct {
		df         int
		confidence float64
		want       float64
	}{
		{1, 0.95, 12.706},
		{5, 0.95, 2.571},
		{10, 0.99, 3.169},
		{12, 0.95, 2.228}, // rounds down to df 10
		{30, 0.95, 2.042},
		{31, 0.95, 1.96}, // normal approximation past 30
		{100, 0.90, 1.645},
		{0, 0.95, 12.706}, // clamped to df 1
	}
	for _, tt := range tests {
		got := tCritical(tt.df, tt.confidence)
		assert.InDelta(t, tt.want, got, 1e-9, "df=%d conf=%v", tt.df, tt.confidence)
	}

	// Unknown confidence levels fall back to 0.95.
	assert.InDelta(t, 2.571, tCritical(5, 0.80), 1e-9)
}

func TestMeanConfidenceInterval(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	ci, err := MeanConfidenceInterval(values, 0.95)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, ci.Mean, 1e-9)
	wantMargin := 2.365 * stat.StdDev(values, nil) / math.Sqrt(8)
	assert.InDelta(t, wantMargin, ci.Margin, 1e-9)
	assert.InDelta(t, ci.Mean-wantMargin, ci.Lower, 1e-9)
	assert.InDelta(t, ci.Mean+wantMargin, ci.Upper, 1e-9)
	assert.Equal(t, 8, ci.N)
}

func TestMeanConfidenceIntervalEdges(t *testing.T) {
	_, err := MeanConfidenceInterval(nil, 0.95)
	assert.Error(t, err, "empty input is a caller error")

	// Single point: zero spread, zero margin, no NaN.
	ci, err := MeanConfidenceInterval([]float64{3.2}, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 3.2, ci.Mean, 1e-9)
	assert.Zero(t, ci.Margin)
	assert.False(t, math.IsNaN(ci.Lower))
}

func TestPairedTTestScenario(t *testing.T) {
	// Canonical acceptance numbers: three sessions, consistent improvement.
	tt, err := PairedTTest([]float64{0.7, 0.75, 0.8}, []float64{0.8, 0.82, 0.85})
	require.NoError(t, err)

	assert.InDelta(t, 0.0733, tt.MeanDifference, 0.001)
	assert.Greater(t, tt.EffectSize, 0.0)
	assert.Equal(t, 2, tt.DF)
	assert.Greater(t, tt.TStatistic, 3.0)
	assert.InDelta(t, 0.01, tt.PValue, 1e-9, "coarse step table: |t|>3 maps to 0.01")
	assert.True(t, tt.Significant)
}

func TestPairedTTestCoarseSteps(t *testing.T) {
	// The step table is intentional behavior, asserted directly.
	tests := []struct {
		t    float64
		want float64
	}{
		{3.5, 0.01},
		{2.5, 0.05},
		{1.7, 0.15},
		{0.8, 0.25},
		{-3.5, 0.01}, // two-sided: sign irrelevant
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, approximatePValue(tc.t, 5), 1e-9, "t=%v", tc.t)
	}

	// df ≥ 30 switches to the normal CDF approximation.
	p := approximatePValue(1.96, 30)
	assert.InDelta(t, 0.05, p, 0.001)
}

func TestPairedTTestFailsFast(t *testing.T) {
	_, err := PairedTTest(nil, nil)
	assert.Error(t, err)

	_, err = PairedTTest([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestPairedTTestZeroVariance(t *testing.T) {
	tt, err := PairedTTest([]float64{1, 2, 3}, []float64{2, 3, 4})
	require.NoError(t, err)
	// All differences identical: no spread, nothing to test.
	assert.Zero(t, tt.TStatistic)
	assert.InDelta(t, 1.0, tt.PValue, 1e-9)
	assert.False(t, tt.Significant)
	assert.InDelta(t, 1.0, tt.MeanDifference, 1e-9)
}

func TestCohenD(t *testing.T) {
	d, label, err := CohenD([]float64{1, 2, 3, 4, 5}, []float64{3, 4, 5, 6, 7})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/math.Sqrt(2.5), d, 1e-9)
	assert.Equal(t, EffectLarge, label)

	// Identical samples: zero effect.
	d, label, err = CohenD([]float64{2, 2, 2}, []float64{2, 2, 2})
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.Equal(t, EffectNegligible, label)

	_, _, err = CohenD(nil, []float64{1})
	assert.Error(t, err)
}

func TestEffectMagnitude(t *testing.T) {
	tests := []struct {
		d    float64
		want string
	}{
		{0.1, EffectNegligible},
		{-0.1, EffectNegligible},
		{0.3, EffectSmall},
		{0.6, EffectMedium},
		{0.8, EffectLarge},
		{-2.5, EffectLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EffectMagnitude(tt.d), "d=%v", tt.d)
	}
}

func TestBootstrapCIScenario(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	mean := func(xs []float64) float64 { return stat.Mean(xs, nil) }

	ci, err := BootstrapCI([]float64{1, 2, 3, 4, 5}, mean, 1000, 0.95, rng)
	require.NoError(t, err)

	// The bootstrap mean should land within ±0.5 of the true mean 3.0.
	assert.InDelta(t, 3.0, ci.Mean, 0.5)
	assert.LessOrEqual(t, ci.Lower, ci.Upper)
	assert.GreaterOrEqual(t, ci.Lower, 1.0)
	assert.LessOrEqual(t, ci.Upper, 5.0)
}

func TestBootstrapCIDeterministicWithSeed(t *testing.T) {
	mean := func(xs []float64) float64 { return stat.Mean(xs, nil) }
	values := []float64{0.2, 0.4, 0.9, 1.3, 2.1}

	a, err := BootstrapCI(values, mean, 500, 0.90, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := BootstrapCI(values, mean, 500, 0.90, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = BootstrapCI(nil, mean, 100, 0.95, nil)
	assert.Error(t, err)
}

func TestKFoldSplit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	folds := KFoldSplit(10, 3, rng)
	require.Len(t, folds, 3)

	seen := map[int]int{}
	for _, f := range folds {
		assert.Equal(t, 10, len(f.Train)+len(f.Test))
		for _, idx := range f.Test {
			seen[idx]++
		}
		// Train and test are disjoint.
		inTest := map[int]bool{}
		for _, idx := range f.Test {
			inTest[idx] = true
		}
		for _, idx := range f.Train {
			assert.False(t, inTest[idx], "index %d in both train and test", idx)
		}
	}

	// Every index appears in exactly one test set.
	var all []int
	for idx, count := range seen {
		assert.Equal(t, 1, count, "index %d", idx)
		all = append(all, idx)
	}
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)
}

func TestKFoldSplitClamping(t *testing.T) {
	assert.Nil(t, KFoldSplit(0, 5, nil))

	folds := KFoldSplit(3, 10, rand.New(rand.NewSource(2)))
	assert.Len(t, folds, 3, "k clamps to n")
	for _, f := range folds {
		assert.Len(t, f.Test, 1)
	}
}
