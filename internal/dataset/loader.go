// Package dataset loads recorded driving sessions from disk. A session is a
// directory holding independently sampled accelerometer and gyroscope CSV
// logs plus a JSON sidecar with name, ground-truth label, and duration. The
// loader merges the two streams by nearest timestamp and silently skips
// malformed rows, counting them.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/kestrel-data/driving.report/internal/monitoring"
	"github.com/kestrel-data/driving.report/internal/telemetry"
)

// Expected file names inside a session directory.
const (
	AccelFile   = "accelerometer.csv"
	GyroFile    = "gyroscope.csv"
	SidecarFile = "session.json"
)

// DefaultMergeToleranceMs is how far apart an accelerometer and gyroscope
// row may be and still be merged into one sample. Beyond it the gyroscope
// reading is taken as zero.
const DefaultMergeToleranceMs = 100

// LoadStats counts what the loader saw. Malformed rows are never fatal.
type LoadStats struct {
	AccelRows     int
	GyroRows      int
	MalformedRows int
	MergedSamples int
}

// sidecar is the session.json schema.
type sidecar struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// row is one parsed CSV reading.
type row struct {
	ts  int64
	vec telemetry.Vec3
}

// Loader reads session directories into datasets.
type Loader struct {
	// MergeToleranceMs overrides DefaultMergeToleranceMs when positive.
	MergeToleranceMs int64
}

// LoadSession reads one session directory.
func (l *Loader) LoadSession(dir string) (*telemetry.Dataset, *LoadStats, error) {
	meta, err := readSidecar(filepath.Join(dir, SidecarFile))
	if err != nil {
		return nil, nil, err
	}
	if meta.Name == "" {
		meta.Name = filepath.Base(dir)
	}
	if !telemetry.ValidLabel(meta.Label) {
		return nil, nil, fmt.Errorf("session %s: invalid label %q", meta.Name, meta.Label)
	}

	stats := &LoadStats{}
	accel, err := readRows(filepath.Join(dir, AccelFile), stats)
	if err != nil {
		return nil, nil, fmt.Errorf("reading accelerometer log: %w", err)
	}
	stats.AccelRows = len(accel)

	gyro, err := readRows(filepath.Join(dir, GyroFile), stats)
	if err != nil {
		// A missing gyroscope log degrades to zero-gyro samples.
		if !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("reading gyroscope log: %w", err)
		}
		monitoring.Logf("[dataset] %s: no gyroscope log, gyro readings zeroed", meta.Name)
	}
	stats.GyroRows = len(gyro)

	samples := l.merge(accel, gyro)
	stats.MergedSamples = len(samples)

	duration := meta.DurationMs
	if duration == 0 && len(samples) > 1 {
		duration = samples[len(samples)-1].TimestampMs - samples[0].TimestampMs
	}

	return &telemetry.Dataset{
		Name:       meta.Name,
		Label:      meta.Label,
		DurationMs: duration,
		Samples:    samples,
	}, stats, nil
}

// LoadCorpus loads every session directory directly under root, sorted by
// name for deterministic ordering.
func (l *Loader) LoadCorpus(root string) ([]telemetry.Dataset, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scanning corpus root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), SidecarFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no session directories under %s", root)
	}

	datasets := make([]telemetry.Dataset, 0, len(names))
	for _, name := range names {
		ds, stats, err := l.LoadSession(filepath.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", name, err)
		}
		if stats.MalformedRows > 0 {
			monitoring.Logf("[dataset] %s: skipped %d malformed rows", name, stats.MalformedRows)
		}
		datasets = append(datasets, *ds)
	}
	return datasets, nil
}

func readSidecar(path string) (*sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session sidecar: %w", err)
	}
	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing session sidecar: %w", err)
	}
	return &meta, nil
}

// readRows parses a timestamp_ms,x,y,z CSV. Malformed rows are skipped and
// counted, never fatal. Rows come back sorted by timestamp.
func readRows(path string, stats *LoadStats) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // malformed rows are our problem, not the reader's

	var rows []row
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.MalformedRows++
			continue
		}
		if first {
			first = false
			// Tolerate an optional header row.
			if _, convErr := strconv.ParseInt(record[0], 10, 64); convErr != nil {
				continue
			}
		}
		parsed, ok := parseRow(record)
		if !ok {
			stats.MalformedRows++
			continue
		}
		rows = append(rows, parsed)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ts < rows[j].ts })
	return rows, nil
}

func parseRow(record []string) (row, bool) {
	if len(record) != 4 {
		return row{}, false
	}
	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return row{}, false
	}
	var vals [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return row{}, false
		}
		vals[i] = v
	}
	return row{ts: ts, vec: telemetry.Vec3{X: vals[0], Y: vals[1], Z: vals[2]}}, true
}

// merge pairs each accelerometer row with the nearest gyroscope row within
// the tolerance. The accelerometer stream drives the output cadence.
func (l *Loader) merge(accel, gyro []row) []telemetry.SensorSample {
	tolerance := l.MergeToleranceMs
	if tolerance <= 0 {
		tolerance = DefaultMergeToleranceMs
	}

	samples := make([]telemetry.SensorSample, 0, len(accel))
	gi := 0
	for _, a := range accel {
		sample := telemetry.SensorSample{TimestampMs: a.ts, Accel: a.vec}

		// Advance while the next gyro row is at least as close.
		for gi+1 < len(gyro) && abs64(gyro[gi+1].ts-a.ts) <= abs64(gyro[gi].ts-a.ts) {
			gi++
		}
		if gi < len(gyro) && abs64(gyro[gi].ts-a.ts) <= tolerance {
			sample.Gyro = gyro[gi].vec
		}
		samples = append(samples, sample)
	}
	return samples
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
