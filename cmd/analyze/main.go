// Command analyze runs the violation detector over a corpus of recorded
// driving sessions and prints or stores the per-session results.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kestrel-data/driving.report/internal/config"
	"github.com/kestrel-data/driving.report/internal/dataset"
	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/monitoring"
	"github.com/kestrel-data/driving.report/internal/storage/sqlite"
	"github.com/kestrel-data/driving.report/internal/validate"
	"github.com/kestrel-data/driving.report/internal/version"
)

func main() {
	var (
		dataDir     string
		profileName string
		dbPath      string
		outPath     string
		workers     int
		tolerance   int64
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&dataDir, "data", "", "corpus root: one directory per session")
	flag.StringVar(&profileName, "profile", config.ProfileDefault, "profile name (default|legacy) or path to a .json profile")
	flag.StringVar(&dbPath, "db", "", "optional sqlite results database to store runs in")
	flag.StringVar(&outPath, "out", "", "optional path for the JSON results file (default stdout summary only)")
	flag.IntVar(&workers, "workers", 0, "worker pool size (0 = one per CPU)")
	flag.Int64Var(&tolerance, "merge-tolerance-ms", dataset.DefaultMergeToleranceMs, "accel/gyro merge tolerance in ms")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("driving.report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if dataDir == "" {
		log.Fatalf("-data is required")
	}
	monitoring.SetVerbose(verbose)

	profile, err := config.LoadProfile(profileName)
	if err != nil {
		log.Fatalf("loading profile: %v", err)
	}
	cfg, err := profile.DetectConfig()
	if err != nil {
		log.Fatalf("invalid profile %s: %v", profileName, err)
	}

	loader := &dataset.Loader{MergeToleranceMs: tolerance}
	datasets, err := loader.LoadCorpus(dataDir)
	if err != nil {
		log.Fatalf("loading corpus: %v", err)
	}
	monitoring.Logf("[analyze] %d sessions loaded from %s", len(datasets), dataDir)

	results := detect.RunCorpus(datasets, cfg, workers)

	for _, r := range results {
		fmt.Printf("%-24s label=%-5s violations=%3d rate=%6.2f/min quality=%.2f calibrated=%v\n",
			r.Dataset, r.Label, r.ViolationCount, r.ViolationRate, r.AverageQuality, r.CalibrationSuccess)
	}

	metrics := validate.ComputeMetrics(results, validate.MetricsOptions{})
	fmt.Printf("\ncorpus: accuracy=%.3f precision=%.3f recall=%.3f fpr=%.3f quality=%.3f\n",
		metrics.Accuracy, metrics.Precision, metrics.Recall,
		metrics.FalsePositiveRate, metrics.AvgDataQuality)

	if outPath != "" {
		payload, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			log.Fatalf("encoding results: %v", err)
		}
		if err := os.WriteFile(outPath, payload, 0644); err != nil {
			log.Fatalf("writing %s: %v", outPath, err)
		}
		monitoring.Logf("[analyze] results written to %s", outPath)
	}

	if dbPath != "" {
		store, err := sqlite.Open(dbPath)
		if err != nil {
			log.Fatalf("opening results database: %v", err)
		}
		defer store.Close()

		configJSON, err := json.Marshal(cfg)
		if err != nil {
			log.Fatalf("encoding config: %v", err)
		}
		for i := range results {
			run := &sqlite.SessionRun{
				Profile: profileName,
				Config:  configJSON,
				Result:  results[i],
			}
			if err := store.InsertSessionRun(run); err != nil {
				log.Fatalf("storing run for %s: %v", results[i].Dataset, err)
			}
		}
		monitoring.Logf("[analyze] %d runs stored in %s", len(results), dbPath)
	}
}
