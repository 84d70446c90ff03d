// Package sqlite persists session results, violations, and comparison
// reports. All SQL lives here rather than in the detection or validation
// layers, which stay pure.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/validate"
)

// Store provides persistence for detection runs and comparison reports.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the results database at path, applies the
// connection pragmas, and runs pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionRun is a persisted SessionResult plus run identity.
type SessionRun struct {
	RunID     string               `json:"run_id"`
	Profile   string               `json:"profile"`
	Config    json.RawMessage      `json:"config_json,omitempty"`
	Result    detect.SessionResult `json:"result"`
	CreatedAt int64                `json:"created_at"`
}

// InsertSessionRun persists one detection pass and its violations. A run ID
// is generated when empty.
func (s *Store) InsertSessionRun(run *SessionRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixMilli()
	}

	var configStr interface{}
	if len(run.Config) > 0 {
		configStr = string(run.Config)
	}

	r := &run.Result
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO session_runs (
				run_id, dataset, label, profile, config_json,
				violation_count, violation_rate, average_quality, low_quality_pct,
				samples_processed, samples_skipped, calibration_success, calibration_time_ms,
				acceleration_std, acceleration_threshold, braking_threshold, jerk_threshold,
				adaptive_thresholds, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, r.Dataset, r.Label, run.Profile, configStr,
			r.ViolationCount, r.ViolationRate, r.AverageQuality, r.LowQualityPercentage,
			r.SamplesProcessed, r.SamplesSkipped, boolInt(r.CalibrationSuccess), r.CalibrationTimeMs,
			r.Baseline.AccelerationStd, r.Baseline.AccelerationThreshold,
			r.Baseline.BrakingThreshold, r.Baseline.JerkThreshold,
			boolInt(r.AdaptiveThresholds), run.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting run for %s: %w", r.Dataset, err)
	}

	for i := range r.Violations {
		if err := s.insertViolation(run.RunID, &r.Violations[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertViolation(runID string, v *detect.Violation) error {
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO session_violations (
				violation_id, run_id, timestamp_ms, type, value,
				threshold, quality, jerk, score, cause
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, v.TimestampMs, v.Type, v.Value,
			v.Threshold, v.Quality, nullFloat(v.Jerk), nullFloat(v.Score), v.Cause,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting violation at %d: %w", v.TimestampMs, err)
	}
	return nil
}

// ListSessionRuns returns stored runs, newest first, optionally filtered by
// profile.
func (s *Store) ListSessionRuns(profile string) ([]*SessionRun, error) {
	query := `
		SELECT run_id, dataset, label, profile, config_json,
		       violation_count, violation_rate, average_quality, low_quality_pct,
		       samples_processed, samples_skipped, calibration_success, calibration_time_ms,
		       acceleration_std, acceleration_threshold, braking_threshold, jerk_threshold,
		       adaptive_thresholds, created_at
		FROM session_runs`
	args := []interface{}{}
	if profile != "" {
		query += ` WHERE profile = ?`
		args = append(args, profile)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying session runs: %w", err)
	}
	defer rows.Close()

	var runs []*SessionRun
	for rows.Next() {
		run, err := scanSessionRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetSessionRun returns one run by ID, including its violations.
func (s *Store) GetSessionRun(runID string) (*SessionRun, error) {
	rows, err := s.db.Query(`
		SELECT run_id, dataset, label, profile, config_json,
		       violation_count, violation_rate, average_quality, low_quality_pct,
		       samples_processed, samples_skipped, calibration_success, calibration_time_ms,
		       acceleration_std, acceleration_threshold, braking_threshold, jerk_threshold,
		       adaptive_thresholds, created_at
		FROM session_runs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying session run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("session run %s not found", runID)
	}
	run, err := scanSessionRun(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	violations, err := s.listViolations(runID)
	if err != nil {
		return nil, err
	}
	run.Result.Violations = violations
	return run, nil
}

func (s *Store) listViolations(runID string) ([]detect.Violation, error) {
	rows, err := s.db.Query(`
		SELECT timestamp_ms, type, value, threshold, quality, jerk, score, cause
		FROM session_violations WHERE run_id = ? ORDER BY timestamp_ms`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying violations: %w", err)
	}
	defer rows.Close()

	var violations []detect.Violation
	for rows.Next() {
		var v detect.Violation
		var jerk, score sql.NullFloat64
		var cause sql.NullString
		if err := rows.Scan(&v.TimestampMs, &v.Type, &v.Value, &v.Threshold,
			&v.Quality, &jerk, &score, &cause); err != nil {
			return nil, fmt.Errorf("scanning violation row: %w", err)
		}
		if jerk.Valid {
			val := jerk.Float64
			v.Jerk = &val
		}
		if score.Valid {
			val := score.Float64
			v.Score = &val
		}
		v.Cause = cause.String
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// DeleteSessionRun removes a run and its violations.
func (s *Store) DeleteSessionRun(runID string) error {
	return retryOnBusy(func() error {
		if _, err := s.db.Exec(`DELETE FROM session_violations WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("deleting violations: %w", err)
		}
		result, err := s.db.Exec(`DELETE FROM session_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("deleting run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("session run %s not found", runID)
		}
		return nil
	})
}

// InsertComparisonReport persists a comparison report as JSON plus the
// columns the report tool filters on.
func (s *Store) InsertComparisonReport(report *validate.ComparisonReport, baselineProfile, improvedProfile string) error {
	if report.ReportID == "" {
		report.ReportID = uuid.New().String()
	}
	if report.CreatedAt == 0 {
		report.CreatedAt = time.Now().UnixMilli()
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding comparison report: %w", err)
	}

	err = retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO comparison_reports (
				report_id, baseline_profile, improved_profile, folds, sessions,
				any_significant, report_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ReportID, baselineProfile, improvedProfile, report.Folds, report.Sessions,
			boolInt(report.AnySignificant), string(payload), report.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting comparison report %s: %w", report.ReportID, err)
	}
	return nil
}

// GetComparisonReport returns a stored report by ID.
func (s *Store) GetComparisonReport(reportID string) (*validate.ComparisonReport, error) {
	row := s.db.QueryRow(`SELECT report_json FROM comparison_reports WHERE report_id = ?`, reportID)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("comparison report %s not found", reportID)
		}
		return nil, fmt.Errorf("scanning comparison report: %w", err)
	}

	var report validate.ComparisonReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decoding comparison report: %w", err)
	}
	return &report, nil
}

// ComparisonSummary is one row of the report listing.
type ComparisonSummary struct {
	ReportID        string `json:"report_id"`
	BaselineProfile string `json:"baseline_profile"`
	ImprovedProfile string `json:"improved_profile"`
	Folds           int    `json:"folds"`
	Sessions        int    `json:"sessions"`
	AnySignificant  bool   `json:"any_significant"`
	CreatedAt       int64  `json:"created_at"`
}

// ListComparisonReports returns report summaries, newest first.
func (s *Store) ListComparisonReports() ([]*ComparisonSummary, error) {
	rows, err := s.db.Query(`
		SELECT report_id, baseline_profile, improved_profile, folds, sessions,
		       any_significant, created_at
		FROM comparison_reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying comparison reports: %w", err)
	}
	defer rows.Close()

	var summaries []*ComparisonSummary
	for rows.Next() {
		var c ComparisonSummary
		var sig int
		if err := rows.Scan(&c.ReportID, &c.BaselineProfile, &c.ImprovedProfile,
			&c.Folds, &c.Sessions, &sig, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comparison summary: %w", err)
		}
		c.AnySignificant = sig != 0
		summaries = append(summaries, &c)
	}
	return summaries, rows.Err()
}

// scanSessionRun scans a session_runs row.
func scanSessionRun(rows *sql.Rows) (*SessionRun, error) {
	var run SessionRun
	var configStr sql.NullString
	var calSuccess, adaptive int
	r := &run.Result
	err := rows.Scan(
		&run.RunID, &r.Dataset, &r.Label, &run.Profile, &configStr,
		&r.ViolationCount, &r.ViolationRate, &r.AverageQuality, &r.LowQualityPercentage,
		&r.SamplesProcessed, &r.SamplesSkipped, &calSuccess, &r.CalibrationTimeMs,
		&r.Baseline.AccelerationStd, &r.Baseline.AccelerationThreshold,
		&r.Baseline.BrakingThreshold, &r.Baseline.JerkThreshold,
		&adaptive, &run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning session run row: %w", err)
	}
	if configStr.Valid {
		run.Config = json.RawMessage(configStr.String)
	}
	r.CalibrationSuccess = calSuccess != 0
	r.AdaptiveThresholds = adaptive != 0
	return &run, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// isSQLiteBusy reports whether err is a transient SQLITE_BUSY condition.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy retries fn with backoff while it reports SQLITE_BUSY.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 5
	backoff := 10 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}
