package qa

import (
	"fmt"
	"math"

	"github.com/phantom-data/phantom.report/internal/volume"
)

// TemporalAggregate computes the voxel-wise mean and standard deviation of a
// 4D volume across its time axis, producing two 3D volumes. The population
// formulas are used (divide by T), consistent with the per-region series
// statistics downstream.
//
// The computation is deterministic: aggregating the same volume twice
// yields bit-identical outputs.
func TemporalAggregate(v *volume.Volume) (tmean, tsd *volume.Volume, err error) {
	if v.NT < 2 {
		return nil, nil, fmt.Errorf("temporal aggregate needs at least 2 frames, got %d: %w", v.NT, ErrInvalidInput)
	}

	tmean = volume.NewLike(v, 1)
	tsd = volume.NewLike(v, 1)

	n := v.NVoxels()
	tf := float64(v.NT)
	for i := 0; i < n; i++ {
		var sum float64
		for t := 0; t < v.NT; t++ {
			sum += v.Data[t*n+i]
		}
		mean := sum / tf

		var ss float64
		for t := 0; t < v.NT; t++ {
			d := v.Data[t*n+i] - mean
			ss += d * d
		}

		tmean.Data[i] = mean
		tsd.Data[i] = math.Sqrt(ss / tf)
	}
	return tmean, tsd, nil
}
