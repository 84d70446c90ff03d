package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kestrel-data/driving.report/internal/detect"
	"github.com/kestrel-data/driving.report/internal/telemetry"
	"github.com/kestrel-data/driving.report/internal/validate"
)

var (
	safeColor  = color.RGBA{R: 0x26, G: 0x82, B: 0x8e, A: 255}
	riskyColor = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 255}
)

// SaveViolationRatePNG plots per-session violation rates as a scatter, safe
// and risky sessions in separate series, with the classification threshold
// as a horizontal line.
func SaveViolationRatePNG(path string, results []detect.SessionResult, threshold float64) error {
	if len(results) == 0 {
		return fmt.Errorf("violation rate plot requires at least one result")
	}

	p := plot.New()
	p.Title.Text = "Violation Rates by Session"
	p.X.Label.Text = "Session"
	p.Y.Label.Text = "Violations/min"

	safePts := make(plotter.XYs, 0, len(results))
	riskyPts := make(plotter.XYs, 0, len(results))
	for i, r := range results {
		pt := plotter.XY{X: float64(i), Y: r.ViolationRate}
		if r.Label == telemetry.LabelRisky {
			riskyPts = append(riskyPts, pt)
		} else {
			safePts = append(safePts, pt)
		}
	}

	if len(safePts) > 0 {
		s, err := plotter.NewScatter(safePts)
		if err != nil {
			return fmt.Errorf("safe scatter: %w", err)
		}
		s.GlyphStyle.Color = safeColor
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add("safe", s)
	}
	if len(riskyPts) > 0 {
		s, err := plotter.NewScatter(riskyPts)
		if err != nil {
			return fmt.Errorf("risky scatter: %w", err)
		}
		s.GlyphStyle.Color = riskyColor
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add("risky", s)
	}

	if threshold > 0 {
		line, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: threshold},
			{X: float64(len(results) - 1), Y: threshold},
		})
		if err != nil {
			return fmt.Errorf("threshold line: %w", err)
		}
		line.LineStyle.Color = color.Gray{Y: 128}
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(line)
		p.Legend.Add("threshold", line)
	}

	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// SaveMetricCIPNG plots per-metric baseline and improved confidence
// intervals as vertical error bars so overlap is visible at a glance.
func SaveMetricCIPNG(path string, rep *validate.ComparisonReport, baselineProfile, improvedProfile string) error {
	if rep == nil {
		return fmt.Errorf("metric CI plot requires a report")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s (%.0f%% CI)", baselineProfile, improvedProfile, rep.Confidence*100)
	p.Y.Label.Text = "Fold mean"

	names := make([]string, 0, len(validate.ComparedMetrics))
	basePts := make(plotter.XYs, 0, len(validate.ComparedMetrics))
	impPts := make(plotter.XYs, 0, len(validate.ComparedMetrics))
	baseErrs := make(plotter.YErrors, 0, len(validate.ComparedMetrics))
	impErrs := make(plotter.YErrors, 0, len(validate.ComparedMetrics))
	for _, name := range validate.ComparedMetrics {
		mc, ok := rep.Metrics[name]
		if !ok {
			continue
		}
		x := float64(len(names))
		names = append(names, name)
		// Offset the two sides slightly so the bars don't overlap.
		basePts = append(basePts, plotter.XY{X: x - 0.1, Y: mc.BaselineCI.Mean})
		impPts = append(impPts, plotter.XY{X: x + 0.1, Y: mc.ImprovedCI.Mean})
		baseErrs = append(baseErrs, struct{ Low, High float64 }{Low: mc.BaselineCI.Margin, High: mc.BaselineCI.Margin})
		impErrs = append(impErrs, struct{ Low, High float64 }{Low: mc.ImprovedCI.Margin, High: mc.ImprovedCI.Margin})
	}
	if len(names) == 0 {
		return fmt.Errorf("report has no compared metrics")
	}

	if err := addCISeries(p, baselineProfile, basePts, baseErrs, safeColor); err != nil {
		return err
	}
	if err := addCISeries(p, improvedProfile, impPts, impErrs, riskyColor); err != nil {
		return err
	}

	p.NominalX(names...)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func addCISeries(p *plot.Plot, name string, pts plotter.XYs, errs plotter.YErrors, c color.Color) error {
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("%s scatter: %w", name, err)
	}
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Radius = vg.Points(3)

	bars, err := plotter.NewYErrorBars(errorPoints{XYs: pts, YErrors: errs})
	if err != nil {
		return fmt.Errorf("%s error bars: %w", name, err)
	}
	bars.LineStyle.Color = c

	p.Add(scatter, bars)
	p.Legend.Add(name, scatter)
	return nil
}

// errorPoints adapts XYs plus YErrors to the interface NewYErrorBars wants.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}
