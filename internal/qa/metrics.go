package qa

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/phantom-data/phantom.report/internal/fsutil"
	"github.com/phantom-data/phantom.report/internal/moco"
	"github.com/phantom-data/phantom.report/internal/units"
	"github.com/phantom-data/phantom.report/internal/volume"
)

// MetricRecord maps a metric name to its value for one analysis run.
// NaN marks an inconclusive metric (degenerate region or unstable ratio);
// the threshold evaluator classifies those as Fail rather than letting them
// pass silently. Created once per run, then immutable.
type MetricRecord map[string]float64

// nearZero guards the frame-wise SNR ratio against division blow-up.
const nearZero = 1e-9

// Analyze derives the summary metrics for one scan from its region time
// series, fitted drift models, motion parameters and temporal-mean volume.
//
// The SNR and drift definitions are deliberately the historical ones
// (frame-averaged ratio, symmetric percentage range); longitudinal trend
// comparisons depend on them.
func Analyze(ts *TimeSeries, det *Detrend, mp *moco.Params, tmean *volume.Volume) MetricRecord {
	rec := MetricRecord{}

	for _, label := range RegionLabels {
		name := RegionName(label)
		col := ts.Column(label)
		rec["tmean_"+name] = stat.Mean(col, nil)
		rec["tsd_"+name] = stat.PopStdDev(col, nil)

		if fit := det.Fit(label); fit != nil {
			rec["spikes_"+name] = float64(fit.Spikes)
		} else {
			rec["spikes_"+name] = math.NaN()
		}
	}

	rec["tmean_snr"] = frameWiseSNR(ts.Phantom, ts.Noise)
	rec["sig_drift_perc"] = signalDriftPercent(ts.Phantom)

	com := tmean.CenterOfMass()
	rec["com_mean_x"] = com[0]
	rec["com_mean_y"] = com[1]
	rec["com_mean_z"] = com[2]

	// Translation extrema only; rotations are persisted with the motion
	// table but have never fed a summary metric in this protocol.
	maxd := mp.MaxAbsTranslation()
	rec["max_abs_dx"] = units.MMToMicron(maxd[0])
	rec["max_abs_dy"] = units.MMToMicron(maxd[1])
	rec["max_abs_dz"] = units.MMToMicron(maxd[2])

	return rec
}

// frameWiseSNR is the time-averaged ratio of phantom to noise signal,
// computed per frame and then averaged. Frame-wise ratios are more
// sensitive to transient noise floor changes than the ratio of the two
// means would be. Any near-zero noise frame makes the ratio unstable, so
// the whole metric degrades to NaN instead of returning a huge number.
func frameWiseSNR(phantom, noise []float64) float64 {
	if len(phantom) == 0 || len(phantom) != len(noise) {
		return math.NaN()
	}
	var sum float64
	for t := range phantom {
		if math.IsNaN(phantom[t]) || math.IsNaN(noise[t]) || math.Abs(noise[t]) < nearZero {
			return math.NaN()
		}
		sum += phantom[t] / noise[t]
	}
	return sum / float64(len(phantom))
}

// signalDriftPercent is the symmetric percentage range of the phantom
// series: 200 * (max-min) / (max+min). Exactly 0 for a constant series,
// and insensitive to the absolute signal offset.
func signalDriftPercent(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	lo, hi := series[0], series[0]
	for _, s := range series {
		if math.IsNaN(s) {
			return math.NaN()
		}
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if math.Abs(hi+lo) < nearZero {
		return math.NaN()
	}
	return 200 * (hi - lo) / (hi + lo)
}

// WriteMetrics persists a record as a flat "key value" text file, one pair
// per line in sorted key order, written atomically.
func WriteMetrics(path string, rec MetricRecord) error {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		fmt.Fprintf(&buf, "%s %0.6f\n", name, rec[name])
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0644)
}

// ReadMetrics loads a record previously written by WriteMetrics.
func ReadMetrics(path string) (MetricRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("metrics file %s: %w", path, ErrMissingInput)
		}
		return nil, err
	}
	defer f.Close()

	rec := MetricRecord{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("metrics file %s line %d: want 'key value', got %q", path, line, text)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("metrics file %s line %d: %w", path, line, err)
		}
		rec[fields[0]] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}
