package detect

import "math"

// BaselineCollector accumulates post-calibration driving-acceleration values
// up to a configured cap and derives per-session thresholds from their
// measured variability.
type BaselineCollector struct {
	cfg    Config
	values []float64
}

// NewBaselineCollector creates a collector for one session.
func NewBaselineCollector(cfg Config) *BaselineCollector {
	return &BaselineCollector{cfg: cfg}
}

// Add records a driving-acceleration value. Returns false once the sample
// cap is reached; further values are ignored.
func (b *BaselineCollector) Add(v float64) bool {
	if b.Full() {
		return false
	}
	b.values = append(b.values, v)
	return true
}

// Full reports whether the cap has been reached.
func (b *BaselineCollector) Full() bool {
	return len(b.values) >= b.cfg.BaselineSampleCap
}

// Count returns how many values were collected.
func (b *BaselineCollector) Count() int {
	return len(b.values)
}

// Estimate derives the session thresholds. The adaptive acceleration
// threshold never drops below the configured base, and an empty window
// keeps the fixed defaults rather than failing.
func (b *BaselineCollector) Estimate() SessionBaseline {
	baseline := SessionBaseline{
		AccelerationThreshold: b.cfg.AccelerationThreshold,
		BrakingThreshold:      b.cfg.BrakingThreshold,
		JerkThreshold:         b.cfg.JerkThreshold,
	}
	if !b.cfg.EnableAdaptiveThresholds || len(b.values) == 0 {
		return baseline
	}

	_, std := populationMeanStd(b.values)
	baseline.AccelerationStd = std

	adaptive := std * b.cfg.ThresholdMultiplier
	if adaptive > baseline.AccelerationThreshold {
		baseline.AccelerationThreshold = adaptive
		baseline.BrakingThreshold = -adaptive
	}
	return baseline
}

// Reset clears the collected window.
func (b *BaselineCollector) Reset() {
	b.values = b.values[:0]
}

// populationMeanStd computes the mean and population standard deviation
// (n denominator) of a slice. Returns (0, 0) for empty slices.
func populationMeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	mean = sum / float64(len(xs))

	var sqSum float64
	for _, v := range xs {
		d := v - mean
		sqSum += d * d
	}
	std = math.Sqrt(sqSum / float64(len(xs)))
	return mean, std
}
