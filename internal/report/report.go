// Package report renders the per-scan HTML QC report and the longitudinal
// trend pages.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"path/filepath"
	"time"

	"github.com/phantom-data/phantom.report/internal/fsutil"
	"github.com/phantom-data/phantom.report/internal/qa"
	"github.com/phantom-data/phantom.report/internal/timeutil"
)

//go:embed templates/*.html
var templatesFS embed.FS

var scanTemplate = template.Must(template.New("scan.html").Funcs(template.FuncMap{
	"fmtValue": fmtValue,
}).ParseFS(templatesFS, "templates/scan.html"))

// scanPage is the data handed to the per-scan report template.
type scanPage struct {
	ScannerSerial string
	AcqDate       string
	FreqMHz       float64
	TRms          float64
	NumVolumes    int
	GeneratedAt   string
	RunID         string
	Overall       string
	Evaluations   []qa.Evaluation
	Plots         []string
}

// WriteScanReport renders index.html for one analysed scan directory.
// The report shows the scan metadata, the pass/fail metric table and the
// per-region time-series plots produced by PlotTimeSeries.
func WriteScanReport(res *qa.Result, runID string) error {
	page := scanPage{
		ScannerSerial: res.Info.ScannerSerial,
		AcqDate:       timeutil.ISODate(res.Info.AcqDate),
		FreqMHz:       res.Info.FreqMHz,
		TRms:          res.Info.TRms,
		NumVolumes:    res.Info.NumVolumes,
		GeneratedAt:   time.Now().Format(time.RFC1123),
		RunID:         runID,
		Overall:       "PASS",
		Evaluations:   res.Evaluations,
	}
	if !qa.AllPass(res.Evaluations) {
		page.Overall = "FAIL"
	}
	for _, label := range qa.RegionLabels {
		page.Plots = append(page.Plots, plotFiles[label])
	}

	var buf bytes.Buffer
	if err := scanTemplate.Execute(&buf, page); err != nil {
		return fmt.Errorf("render scan report: %w", err)
	}
	return fsutil.WriteFileAtomic(filepath.Join(res.Dir, qa.ReportFile), buf.Bytes(), 0644)
}

// fmtValue renders a metric value, showing inconclusive for NaN and
// leaving infinite bounds blank.
func fmtValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "inconclusive"
	case math.IsInf(v, -1):
		return "-"
	case math.IsInf(v, 1):
		return "-"
	}
	return fmt.Sprintf("%0.2f", v)
}
