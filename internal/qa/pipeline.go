package qa

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phantom-data/phantom.report/internal/fsutil"
	"github.com/phantom-data/phantom.report/internal/meta"
	"github.com/phantom-data/phantom.report/internal/moco"
	"github.com/phantom-data/phantom.report/internal/monitoring"
	"github.com/phantom-data/phantom.report/internal/volume"
)

// AlgorithmVersion participates in the cache fingerprint so that changing
// the mask or metric algorithms invalidates previously completed runs.
const AlgorithmVersion = "qc-2"

// Fixed artifact names within a scan directory. The motion-corrected
// volume, motion table and scan info are produced upstream; everything
// else is written by this pipeline.
const (
	MocoVolumeFile   = "qc_moco.nii"
	MotionParamsFile = "qc_mcf.par"
	ScanInfoFile     = "qc_info.txt"

	MeanVolumeFile   = "qc_mean.nii"
	SDVolumeFile     = "qc_sd.nii"
	MaskVolumeFile   = "qc_mask.nii"
	TimeSeriesFile   = "qc_timeseries.txt"
	DetrendedFile    = "qc_timeseries_detrend.txt"
	MetricsFile      = "qc_stats.txt"
	CompletionMarker = "qc_complete.json"
	ReportFile       = "index.html"
)

// Pipeline runs the QC analysis for one scan directory. Stages are
// strictly sequential; each consumes the prior stage's complete output.
type Pipeline struct {
	PhaseAxis  volume.Axis
	MaskOpts   MaskOptions
	Thresholds BoundsTable
}

// Result is the outcome of one scan analysis.
type Result struct {
	Dir         string
	Info        *meta.ScanInfo
	TimeSeries  *TimeSeries
	Detrend     *Detrend
	Metrics     MetricRecord
	Evaluations []Evaluation
	Cached      bool
}

type completionMarker struct {
	Fingerprint string    `json:"fingerprint"`
	CompletedAt time.Time `json:"completed_at"`
}

// Run analyses a scan directory. When a completion marker with a matching
// fingerprint exists, the cached artifacts are loaded instead of being
// recomputed; a marker from different inputs or an older algorithm forces
// a full recompute. The marker is best-effort — concurrent runs against
// the same directory are not coordinated and are unsupported.
func (p *Pipeline) Run(dir string) (*Result, error) {
	mocoPath := filepath.Join(dir, MocoVolumeFile)
	parPath := filepath.Join(dir, MotionParamsFile)
	infoPath := filepath.Join(dir, ScanInfoFile)

	for _, path := range []string{mocoPath, parPath, infoPath} {
		if !fsutil.Exists(path) {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingInput)
		}
	}

	fp, err := fingerprint(mocoPath, parPath)
	if err != nil {
		return nil, err
	}

	info, err := meta.Load(infoPath)
	if err != nil {
		return nil, fmt.Errorf("load scan info: %w", err)
	}

	if cached, err := p.loadCached(dir, fp, info); err == nil && cached != nil {
		monitoring.Logf("qc: %s: cached result (fingerprint %s)", dir, fp[:12])
		return cached, nil
	}

	monitoring.Logf("qc: %s: loading motion-corrected volume", dir)
	vol, err := volume.LoadNifti(mocoPath)
	if err != nil {
		return nil, err
	}
	mp, err := moco.Load(parPath)
	if err != nil {
		return nil, err
	}

	monitoring.Logf("qc: %s: temporal aggregation over %d frames", dir, vol.NT)
	tmean, tsd, err := TemporalAggregate(vol)
	if err != nil {
		return nil, err
	}
	if err := saveVolumeAtomic(filepath.Join(dir, MeanVolumeFile), tmean, mocoPath); err != nil {
		return nil, err
	}
	if err := saveVolumeAtomic(filepath.Join(dir, SDVolumeFile), tsd, mocoPath); err != nil {
		return nil, err
	}

	// The mask is a hard prerequisite for extraction: a degenerate volume
	// fails the scan here rather than producing a misleading report.
	monitoring.Logf("qc: %s: building region mask (phase axis %s)", dir, p.PhaseAxis)
	mask, err := BuildRegionMask(tmean, p.PhaseAxis, p.MaskOpts)
	if err != nil {
		return nil, fmt.Errorf("region mask: %w", err)
	}
	if err := saveVolumeAtomic(filepath.Join(dir, MaskVolumeFile), mask, mocoPath); err != nil {
		return nil, err
	}
	monitoring.Logf("qc: %s: mask regions phantom=%d nyquist=%d noise=%d", dir,
		mask.CountLabel(LabelPhantom), mask.CountLabel(LabelNyquist), mask.CountLabel(LabelNoise))

	ts, err := ExtractTimeSeries(vol, mask)
	if err != nil {
		return nil, err
	}
	if err := WriteTimeSeries(filepath.Join(dir, TimeSeriesFile), ts); err != nil {
		return nil, err
	}

	det := DetrendTimeSeries(ts)
	if err := WriteTimeSeries(filepath.Join(dir, DetrendedFile), det.DetrendedTimeSeries(ts)); err != nil {
		return nil, err
	}

	rec := Analyze(ts, det, mp, tmean)
	if err := WriteMetrics(filepath.Join(dir, MetricsFile), rec); err != nil {
		return nil, err
	}

	if err := writeMarker(filepath.Join(dir, CompletionMarker), fp); err != nil {
		return nil, err
	}

	return &Result{
		Dir:         dir,
		Info:        info,
		TimeSeries:  ts,
		Detrend:     det,
		Metrics:     rec,
		Evaluations: Evaluate(rec, p.Thresholds),
	}, nil
}

// loadCached returns the prior result if the completion marker matches the
// current fingerprint, or nil when a recompute is needed.
func (p *Pipeline) loadCached(dir, fp string, info *meta.ScanInfo) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(dir, CompletionMarker))
	if err != nil {
		return nil, err
	}
	var marker completionMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return nil, err
	}
	if marker.Fingerprint != fp {
		return nil, nil
	}

	ts, err := ReadTimeSeries(filepath.Join(dir, TimeSeriesFile))
	if err != nil {
		return nil, err
	}
	rec, err := ReadMetrics(filepath.Join(dir, MetricsFile))
	if err != nil {
		return nil, err
	}
	return &Result{
		Dir:         dir,
		Info:        info,
		TimeSeries:  ts,
		Detrend:     DetrendTimeSeries(ts),
		Metrics:     rec,
		Evaluations: Evaluate(rec, p.Thresholds),
		Cached:      true,
	}, nil
}

// fingerprint identifies the inputs and algorithm revision of a run. File
// identity uses size and mtime rather than content so that cache checks on
// multi-hundred-MB volumes stay cheap.
func fingerprint(paths ...string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "algo=%s\n", AlgorithmVersion)
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, ErrMissingInput)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", filepath.Base(path), st.Size(), st.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeMarker(path, fp string) error {
	data, err := json.Marshal(completionMarker{
		Fingerprint: fp,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0644)
}

// saveVolumeAtomic writes a NIfTI volume next to its final name and
// renames it into place on success.
func saveVolumeAtomic(path string, v *volume.Volume, templatePath string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := volume.SaveNifti(tmp, v, templatePath); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
