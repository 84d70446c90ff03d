// Command report renders stored comparison reports and session runs from
// the results database as HTML dashboards and PNG charts.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/monitoring"
	"github.com/kestrel-data/driving.report/internal/report"
	"github.com/kestrel-data/driving.report/internal/storage/sqlite"
	"github.com/kestrel-data/driving.report/internal/validate"
)

func main() {
	var (
		dbPath   string
		reportID string
		profile  string
		list     bool
		pruneRun string
		htmlPath string
		ratesPNG string
		ciPNG    string
		verbose  bool
	)

	flag.StringVar(&dbPath, "db", "results.db", "sqlite results database")
	flag.StringVar(&reportID, "report", "", "comparison report ID to render (default: most recent)")
	flag.StringVar(&profile, "profile", "", "filter session runs by profile for the rate chart")
	flag.BoolVar(&list, "list", false, "list stored comparison reports and exit")
	flag.StringVar(&pruneRun, "prune-run", "", "delete the session run with this ID and exit")
	flag.StringVar(&htmlPath, "html", "", "path for the HTML dashboard")
	flag.StringVar(&ratesPNG, "rates-png", "", "path for the violation-rate PNG chart")
	flag.StringVar(&ciPNG, "ci-png", "", "path for the metric confidence-interval PNG chart")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	monitoring.SetVerbose(verbose)

	store, err := sqlite.Open(dbPath)
	if err != nil {
		log.Fatalf("opening results database: %v", err)
	}
	defer store.Close()

	if pruneRun != "" {
		if err := store.DeleteSessionRun(pruneRun); err != nil {
			log.Fatalf("pruning session run: %v", err)
		}
		monitoring.Logf("[report] session run %s deleted", pruneRun)
		return
	}

	summaries, err := store.ListComparisonReports()
	if err != nil {
		log.Fatalf("listing reports: %v", err)
	}

	if list {
		if len(summaries) == 0 {
			fmt.Println("no comparison reports stored")
			return
		}
		for _, s := range summaries {
			marker := " "
			if s.AnySignificant {
				marker = "*"
			}
			fmt.Printf("%s %s  %s vs %s  folds=%d sessions=%d\n",
				marker, s.ReportID, s.BaselineProfile, s.ImprovedProfile, s.Folds, s.Sessions)
		}
		return
	}

	if ratesPNG != "" {
		runs, err := store.ListSessionRuns(profile)
		if err != nil {
			log.Fatalf("listing session runs: %v", err)
		}
		if len(runs) == 0 {
			log.Fatalf("no session runs stored")
		}
		results := make([]detect.SessionResult, 0, len(runs))
		for _, r := range runs {
			results = append(results, r.Result)
		}
		if err := report.SaveViolationRatePNG(ratesPNG, results, validate.DefaultClassificationThreshold); err != nil {
			log.Fatalf("rendering rate chart: %v", err)
		}
		monitoring.Logf("[report] rate chart written to %s", ratesPNG)
	}

	if htmlPath == "" && ciPNG == "" {
		return
	}

	summary := pickReport(summaries, reportID)
	rep, err := store.GetComparisonReport(summary.ReportID)
	if err != nil {
		log.Fatalf("loading report: %v", err)
	}

	if htmlPath != "" {
		page := report.ComparisonPage{
			Report:          rep,
			BaselineProfile: summary.BaselineProfile,
			ImprovedProfile: summary.ImprovedProfile,
		}
		if err := report.WriteComparisonHTML(htmlPath, page); err != nil {
			log.Fatalf("writing dashboard: %v", err)
		}
		monitoring.Logf("[report] dashboard written to %s", htmlPath)
	}

	if ciPNG != "" {
		if err := report.SaveMetricCIPNG(ciPNG, rep, summary.BaselineProfile, summary.ImprovedProfile); err != nil {
			log.Fatalf("rendering CI chart: %v", err)
		}
		monitoring.Logf("[report] CI chart written to %s", ciPNG)
	}
}

// pickReport resolves -report, defaulting to the newest stored report.
func pickReport(summaries []*sqlite.ComparisonSummary, reportID string) *sqlite.ComparisonSummary {
	if len(summaries) == 0 {
		log.Fatalf("no comparison reports stored")
	}
	if reportID == "" {
		return summaries[0]
	}
	for _, s := range summaries {
		if s.ReportID == reportID {
			return s
		}
	}
	log.Fatalf("comparison report %s not found", reportID)
	return nil
}
