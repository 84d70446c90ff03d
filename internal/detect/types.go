package detect

// Violation types.
const (
	ViolationAcceleration = "acceleration"
	ViolationBraking      = "braking"
)

// ProcessedSample is the transient per-sample output of signal conditioning.
type ProcessedSample struct {
	TimestampMs  int64
	DrivingAccel float64
	RawMagnitude float64
	Quality      float64
	Jerk         float64
	HasJerk      bool
}

// Violation is one detected harsh-acceleration or harsh-braking event.
// Append-only, immutable once created.
type Violation struct {
	TimestampMs int64    `json:"timestamp_ms"`
	Type        string   `json:"type"`
	Value       float64  `json:"value"`
	Threshold   float64  `json:"threshold"`
	Quality     float64  `json:"quality"`
	Jerk        *float64 `json:"jerk,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	Cause       string   `json:"cause,omitempty"`
}

// SessionBaseline captures the per-session thresholds in force during the
// detection phase. Computed once, then frozen.
type SessionBaseline struct {
	AccelerationStd       float64 `json:"acceleration_std"`
	AccelerationThreshold float64 `json:"acceleration_threshold"`
	BrakingThreshold      float64 `json:"braking_threshold"`
	JerkThreshold         float64 `json:"jerk_threshold"`
}

// SessionResult aggregates one (dataset, configuration) detection pass.
type SessionResult struct {
	Dataset              string          `json:"dataset"`
	Label                string          `json:"label"`
	Violations           []Violation     `json:"violations,omitempty"`
	ViolationCount       int             `json:"violation_count"`
	ViolationRate        float64         `json:"violation_rate"` // per minute
	AverageQuality       float64         `json:"average_quality"`
	LowQualityPercentage float64         `json:"low_quality_percentage"`
	SamplesProcessed     int             `json:"samples_processed"`
	SamplesSkipped       int             `json:"samples_skipped"`
	CalibrationSuccess   bool            `json:"calibration_success"`
	CalibrationTimeMs    int64           `json:"calibration_time_ms"`
	Baseline             SessionBaseline `json:"baseline"`
	AdaptiveThresholds   bool            `json:"adaptive_thresholds"`
}
