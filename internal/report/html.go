// Package report renders comparison results for humans: an HTML dashboard
// built with go-echarts and PNG charts built with gonum/plot. Rendering is
// offline; callers hand in finished results and get files or writer output.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/kestrel-data/driving.report/internal/validate"
)

// ComparisonPage bundles everything the HTML dashboard shows.
type ComparisonPage struct {
	Report          *validate.ComparisonReport
	BaselineProfile string
	ImprovedProfile string

	// Per-session results for the scatter panel; either side may be nil.
	BaselineResults []detect.SessionResult
	ImprovedResults []detect.SessionResult
}

// RenderComparisonHTML writes the full comparison dashboard to w.
func RenderComparisonHTML(w io.Writer, p ComparisonPage) error {
	if p.Report == nil {
		return fmt.Errorf("comparison page requires a report")
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s vs %s", p.BaselineProfile, p.ImprovedProfile)
	page.AddCharts(metricBarChart(p))

	if len(p.BaselineResults) > 0 || len(p.ImprovedResults) > 0 {
		page.AddCharts(violationRateScatter(p))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering comparison page: %w", err)
	}
	return nil
}

// WriteComparisonHTML renders the dashboard to a file.
func WriteComparisonHTML(path string, p ComparisonPage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return RenderComparisonHTML(f, p)
}

// metricBarChart shows baseline and improved fold means side by side for each
// compared metric, with significance in the label.
func metricBarChart(p ComparisonPage) *charts.Bar {
	rep := p.Report

	x := make([]string, 0, len(validate.ComparedMetrics))
	baseVals := make([]opts.BarData, 0, len(validate.ComparedMetrics))
	impVals := make([]opts.BarData, 0, len(validate.ComparedMetrics))
	for _, name := range validate.ComparedMetrics {
		mc, ok := rep.Metrics[name]
		if !ok {
			continue
		}
		label := name
		if mc.Significant {
			label = fmt.Sprintf("%s (p=%.2f *)", name, mc.PValue)
		}
		x = append(x, label)
		baseVals = append(baseVals, opts.BarData{Value: mc.BaselineCI.Mean})
		impVals = append(impVals, opts.BarData{Value: mc.ImprovedCI.Mean})
	}

	subtitle := fmt.Sprintf("folds=%d sessions=%d confidence=%.0f%%",
		rep.Folds, rep.Sessions, rep.Confidence*100)
	if rep.AnySignificant {
		subtitle += " — significant differences found"
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Configuration Comparison", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries(p.BaselineProfile, baseVals,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries(p.ImprovedProfile, impVals,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// violationRateScatter plots per-session violation rates by session index so
// outlier sessions are easy to spot. Risky-labelled sessions use a separate
// series per side.
func violationRateScatter(p ComparisonPage) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Violation Rates by Session",
			Subtitle: "violations per minute, by session index",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "session"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "violations/min"}),
	)

	addSide := func(profile string, results []detect.SessionResult) {
		if len(results) == 0 {
			return
		}
		safe := make([]opts.ScatterData, 0, len(results))
		risky := make([]opts.ScatterData, 0, len(results))
		for i, r := range results {
			pt := opts.ScatterData{Value: []interface{}{i, r.ViolationRate}}
			if r.Label == telemetry.LabelRisky {
				risky = append(risky, pt)
			} else {
				safe = append(safe, pt)
			}
		}
		if len(safe) > 0 {
			scatter.AddSeries(profile+" safe", safe,
				charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
		}
		if len(risky) > 0 {
			scatter.AddSeries(profile+" risky", risky,
				charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
		}
	}
	addSide(p.BaselineProfile, p.BaselineResults)
	addSide(p.ImprovedProfile, p.ImprovedResults)
	return scatter
}
