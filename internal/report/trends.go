package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/phantom-data/phantom.report/internal/db"
	"github.com/phantom-data/phantom.report/internal/fsutil"
	"github.com/phantom-data/phantom.report/internal/timeutil"
)

// TrendFile is the longitudinal trend page filename within a scanner directory.
const TrendFile = "trends.html"

// trendMetrics are the metrics charted on the longitudinal page, in display
// order. Motion extremes share one chart, the rest get one chart each.
var trendMetrics = []string{
	"tmean_snr",
	"sig_drift_perc",
	"spikes_phantom",
	"spikes_nyquist",
	"spikes_noise",
	"max_abs_dx",
	"max_abs_dy",
	"max_abs_dz",
}

var trendTitles = map[string]string{
	"tmean_snr":      "Temporal SNR",
	"sig_drift_perc": "Signal drift (%)",
	"spikes_phantom": "Spike count, phantom",
	"spikes_nyquist": "Spike count, Nyquist ghost",
	"spikes_noise":   "Spike count, noise",
	"max_abs_dx":     "Max |dx| (um)",
	"max_abs_dy":     "Max |dy| (um)",
	"max_abs_dz":     "Max |dz| (um)",
}

// WriteTrendReport renders trends.html for one scanner under scannerDir,
// charting every recorded acquisition date of each tracked metric.
func WriteTrendReport(store *db.DB, scannerSerial, scannerDir string) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Phantom QC trends %s", scannerSerial)

	charted := 0
	for _, metric := range trendMetrics {
		points, err := store.MetricTrend(scannerSerial, metric)
		if err != nil {
			return fmt.Errorf("trend %s/%s: %w", scannerSerial, metric, err)
		}
		if len(points) == 0 {
			continue
		}
		page.AddCharts(trendChart(metric, points))
		charted++
	}
	if charted == 0 {
		return fmt.Errorf("no recorded metrics for scanner %s", scannerSerial)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render trend page: %w", err)
	}
	return fsutil.WriteFileAtomic(filepath.Join(scannerDir, TrendFile), buf.Bytes(), 0644)
}

func trendChart(metric string, points []db.TrendPoint) *charts.Line {
	title := trendTitles[metric]
	if title == "" {
		title = metric
	}

	dates := make([]string, 0, len(points))
	values := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		dates = append(dates, timeutil.ISODate(p.AcqDate))
		if p.Value != p.Value { // NaN: break the line at inconclusive runs
			values = append(values, opts.LineData{Value: nil})
			continue
		}
		values = append(values, opts.LineData{Value: p.Value})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1100px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d sessions", len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Session"}),
		charts.WithYAxisOpts(opts.YAxis{Name: title}),
	)
	line.SetXAxis(dates).
		AddSeries(metric, values,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		)
	return line
}
