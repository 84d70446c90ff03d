// Command compare runs two detection profiles over the same session corpus
// and produces a paired statistical comparison: t-tests, confidence
// intervals, and effect sizes per metric, with optional JSON/HTML/DB export.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/kestrel-data/driving.report/internal/config"
	"github.com/kestrel-data/driving.report/internal/dataset"
	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/monitoring"
	"github.com/kestrel-data/driving.report/internal/report"
	"github.com/kestrel-data/driving.report/internal/storage/sqlite"
	"github.com/kestrel-data/driving.report/internal/validate"
)

func main() {
	var (
		dataDir         string
		baselineProfile string
		improvedProfile string
		folds           int
		confidence      float64
		seed            int64
		workers         int
		dynamic         bool
		threshold       float64
		jsonPath        string
		htmlPath        string
		dbPath          string
		verbose         bool
	)

	flag.StringVar(&dataDir, "data", "", "corpus root: one directory per session")
	flag.StringVar(&baselineProfile, "baseline", config.ProfileLegacy, "baseline profile name or .json path")
	flag.StringVar(&improvedProfile, "improved", config.ProfileDefault, "candidate profile name or .json path")
	flag.IntVar(&folds, "folds", 5, "k for the shared k-fold split")
	flag.Float64Var(&confidence, "confidence", 0.95, "confidence level (0.90, 0.95, 0.99)")
	flag.Int64Var(&seed, "seed", 0, "rng seed for the k-fold shuffle (0 = nondeterministic)")
	flag.IntVar(&workers, "workers", 0, "worker pool size per side (0 = one per CPU)")
	flag.BoolVar(&dynamic, "dynamic-threshold", false, "derive the classification threshold from the corpus")
	flag.Float64Var(&threshold, "threshold", 0, "fixed classification threshold in violations/min (0 = default)")
	flag.StringVar(&jsonPath, "json", "", "optional path for the JSON report")
	flag.StringVar(&htmlPath, "html", "", "optional path for the HTML dashboard")
	flag.StringVar(&dbPath, "db", "", "optional sqlite results database to store the report in")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	if dataDir == "" {
		log.Fatalf("-data is required")
	}
	monitoring.SetVerbose(verbose)

	baseCfg := mustConfig(baselineProfile)
	impCfg := mustConfig(improvedProfile)

	loader := &dataset.Loader{}
	datasets, err := loader.LoadCorpus(dataDir)
	if err != nil {
		log.Fatalf("loading corpus: %v", err)
	}
	monitoring.Logf("[compare] %d sessions, %s vs %s", len(datasets), baselineProfile, improvedProfile)

	baseResults := detect.RunCorpus(datasets, baseCfg, workers)
	impResults := detect.RunCorpus(datasets, impCfg, workers)

	opts := validate.CompareOptions{
		Folds:      folds,
		Confidence: confidence,
		Metrics:    validate.MetricsOptions{FixedThreshold: threshold, Dynamic: dynamic},
	}
	if seed != 0 {
		opts.RNG = rand.New(rand.NewSource(seed))
	}

	rep, err := validate.CompareConfigurations(baseResults, impResults, opts)
	if err != nil {
		log.Fatalf("comparing configurations: %v", err)
	}

	printReport(rep, baselineProfile, improvedProfile)

	if jsonPath != "" {
		payload, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			log.Fatalf("encoding report: %v", err)
		}
		if err := os.WriteFile(jsonPath, payload, 0644); err != nil {
			log.Fatalf("writing %s: %v", jsonPath, err)
		}
	}

	if htmlPath != "" {
		page := report.ComparisonPage{
			Report:          rep,
			BaselineProfile: baselineProfile,
			ImprovedProfile: improvedProfile,
			BaselineResults: baseResults,
			ImprovedResults: impResults,
		}
		if err := report.WriteComparisonHTML(htmlPath, page); err != nil {
			log.Fatalf("writing dashboard: %v", err)
		}
		monitoring.Logf("[compare] dashboard written to %s", htmlPath)
	}

	if dbPath != "" {
		store, err := sqlite.Open(dbPath)
		if err != nil {
			log.Fatalf("opening results database: %v", err)
		}
		defer store.Close()
		if err := store.InsertComparisonReport(rep, baselineProfile, improvedProfile); err != nil {
			log.Fatalf("storing report: %v", err)
		}
		monitoring.Logf("[compare] report %s stored in %s", rep.ReportID, dbPath)
	}
}

func mustConfig(nameOrPath string) detect.Config {
	profile, err := config.LoadProfile(nameOrPath)
	if err != nil {
		log.Fatalf("loading profile %s: %v", nameOrPath, err)
	}
	cfg, err := profile.DetectConfig()
	if err != nil {
		log.Fatalf("invalid profile %s: %v", nameOrPath, err)
	}
	return cfg
}

func printReport(rep *validate.ComparisonReport, baseline, improved string) {
	fmt.Printf("comparison %s: %s vs %s (%d folds over %d sessions, %.0f%% confidence)\n\n",
		rep.ReportID, baseline, improved, rep.Folds, rep.Sessions, rep.Confidence*100)

	for _, name := range validate.ComparedMetrics {
		mc, ok := rep.Metrics[name]
		if !ok {
			continue
		}
		marker := " "
		if mc.Significant {
			marker = "*"
		}
		fmt.Printf("%s %-20s %8.4f -> %8.4f  Δ=%+.4f  t=%6.3f p=%.2f d=%.2f (%s)\n",
			marker, name, mc.BaselineCI.Mean, mc.ImprovedCI.Mean,
			mc.MeanDifference, mc.TStatistic, mc.PValue,
			mc.EffectSize, mc.PracticalSignificance)
	}

	if rep.AnySignificant {
		fmt.Println("\nat least one metric differs significantly (p < 0.05)")
	} else {
		fmt.Println("\nno significant differences at p < 0.05")
	}
}
