package qa

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/phantom-data/phantom.report/internal/fsutil"
	"github.com/phantom-data/phantom.report/internal/volume"
)

// TimeSeries holds the per-frame mean intensity of each mask region.
// All three columns have the same length, one entry per acquired frame.
// A region with no voxels carries NaN in every frame of its column.
// Never mutated after extraction.
type TimeSeries struct {
	Phantom []float64
	Nyquist []float64
	Noise   []float64
}

// Len returns the number of frames.
func (ts *TimeSeries) Len() int { return len(ts.Phantom) }

// Column returns the series for a region label.
func (ts *TimeSeries) Column(label float64) []float64 {
	switch label {
	case LabelPhantom:
		return ts.Phantom
	case LabelNyquist:
		return ts.Nyquist
	case LabelNoise:
		return ts.Noise
	}
	return nil
}

// ExtractTimeSeries computes, for every frame of a 4D volume, the mean
// intensity within each labelled region of the mask. An empty region
// yields NaN, which downstream analysis carries through as inconclusive
// rather than failing the run.
func ExtractTimeSeries(v *volume.Volume, mask *volume.Volume) (*TimeSeries, error) {
	if v.NX != mask.NX || v.NY != mask.NY || v.NZ != mask.NZ {
		return nil, fmt.Errorf("mask %dx%dx%d does not match volume %dx%dx%d: %w",
			mask.NX, mask.NY, mask.NZ, v.NX, v.NY, v.NZ, ErrInvalidInput)
	}

	// Collect the voxel indices per label once; frames then reduce to a
	// gather-and-average over each index list.
	n := v.NVoxels()
	idx := map[float64][]int{}
	for i := 0; i < n; i++ {
		switch mask.Data[i] {
		case LabelPhantom, LabelNyquist, LabelNoise:
			idx[mask.Data[i]] = append(idx[mask.Data[i]], i)
		}
	}

	ts := &TimeSeries{
		Phantom: make([]float64, v.NT),
		Nyquist: make([]float64, v.NT),
		Noise:   make([]float64, v.NT),
	}
	for t := 0; t < v.NT; t++ {
		frame := v.Data[t*n : (t+1)*n]
		for _, label := range RegionLabels {
			ts.Column(label)[t] = meanOver(frame, idx[label])
		}
	}
	return ts, nil
}

func meanOver(frame []float64, idx []int) float64 {
	if len(idx) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, i := range idx {
		sum += frame[i]
	}
	return sum / float64(len(idx))
}

// WriteTimeSeries persists a time series as a space-delimited text table,
// one row per frame with phantom, nyquist and noise columns. The file is
// written atomically.
func WriteTimeSeries(path string, ts *TimeSeries) error {
	var buf bytes.Buffer
	for t := 0; t < ts.Len(); t++ {
		fmt.Fprintf(&buf, "%0.6f %0.6f %0.6f\n", ts.Phantom[t], ts.Nyquist[t], ts.Noise[t])
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0644)
}

// ReadTimeSeries loads a table previously written by WriteTimeSeries.
func ReadTimeSeries(path string) (*TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("timeseries table %s: %w", path, ErrMissingInput)
		}
		return nil, err
	}
	defer f.Close()

	ts := &TimeSeries{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("timeseries table %s line %d: want 3 columns, got %d", path, line, len(fields))
		}
		vals := make([]float64, 3)
		for i, fv := range fields {
			vals[i], err = strconv.ParseFloat(fv, 64)
			if err != nil {
				return nil, fmt.Errorf("timeseries table %s line %d: %w", path, line, err)
			}
		}
		ts.Phantom = append(ts.Phantom, vals[0])
		ts.Nyquist = append(ts.Nyquist, vals[1])
		ts.Noise = append(ts.Noise, vals[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ts, nil
}
