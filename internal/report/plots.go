package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/phantom-data/phantom.report/internal/qa"
)

// Per-region time-series plot filenames within a scan directory.
var plotFiles = map[float64]string{
	qa.LabelPhantom: "qc_timeseries_phantom.png",
	qa.LabelNyquist: "qc_timeseries_nyquist.png",
	qa.LabelNoise:   "qc_timeseries_noise.png",
}

var (
	rawColor     = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	fitColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	detrendColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// PlotTimeSeries renders one PNG per region showing the raw series, the
// fitted drift model and the detrended series. Regions whose drift model
// could not be fitted are plotted raw-only.
func PlotTimeSeries(dir string, ts *qa.TimeSeries, det *qa.Detrend) error {
	for _, label := range qa.RegionLabels {
		if err := plotRegion(filepath.Join(dir, plotFiles[label]), qa.RegionName(label), ts.Column(label), det.Fit(label)); err != nil {
			return err
		}
	}
	return nil
}

func plotRegion(path, name string, series []float64, fit *qa.DetrendFit) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s region signal", name)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Mean intensity"

	raw, err := plotter.NewLine(seriesXYs(series))
	if err != nil {
		return err
	}
	raw.Color = rawColor
	raw.Width = vg.Points(1)
	p.Add(raw)
	p.Legend.Add("raw", raw)

	if fit != nil {
		fitted, err := plotter.NewLine(seriesXYs(fit.Fitted))
		if err != nil {
			return err
		}
		fitted.Color = fitColor
		fitted.Width = vg.Points(1)
		p.Add(fitted)
		p.Legend.Add("fit", fitted)

		detrended, err := plotter.NewLine(seriesXYs(fit.Detrended))
		if err != nil {
			return err
		}
		detrended.Color = detrendColor
		detrended.Width = vg.Points(1)
		p.Add(detrended)
		p.Legend.Add("detrended", detrended)
	}

	p.Legend.Top = true
	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

func seriesXYs(series []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(series))
	for t, v := range series {
		if v != v { // skip NaN frames
			continue
		}
		pts = append(pts, plotter.XY{X: float64(t), Y: v})
	}
	return pts
}
