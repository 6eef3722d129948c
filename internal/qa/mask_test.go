package qa

import (
	"errors"
	"testing"

	"github.com/phantom-data/phantom.report/internal/volume"
)

// sphereVolume builds an nt-frame grid with a centred sphere at the given
// intensity over a uniform background, mimicking an agar phantom scan.
func sphereVolume(nx, ny, nz, nt int, pixdim, radiusMM, level, background float64) *volume.Volume {
	v := volume.New(nx, ny, nz, nt)
	v.PixDim = [3]float64{pixdim, pixdim, pixdim}
	cx := float64(nx) / 2 * pixdim
	cy := float64(ny) / 2 * pixdim
	cz := float64(nz) / 2 * pixdim
	r2 := radiusMM * radiusMM
	for t := 0; t < nt; t++ {
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					dx := (float64(x)+0.5)*pixdim - cx
					dy := (float64(y)+0.5)*pixdim - cy
					dz := (float64(z)+0.5)*pixdim - cz
					val := background
					if dx*dx+dy*dy+dz*dz <= r2 {
						val = level
					}
					v.Set(x, y, z, t, val)
				}
			}
		}
	}
	return v
}

func TestBuildRegionMaskSphere(t *testing.T) {
	tmean := sphereVolume(32, 32, 16, 1, 3, 24, 800, 5)

	mask, err := BuildRegionMask(tmean, volume.AxisY, MaskOptions{})
	if err != nil {
		t.Fatalf("BuildRegionMask: %v", err)
	}

	// only the four labels appear
	counts := map[float64]int{}
	for _, val := range mask.Data {
		counts[val]++
	}
	for val := range counts {
		if val != LabelNone && val != LabelPhantom && val != LabelNyquist && val != LabelNoise {
			t.Fatalf("unexpected label %g in mask", val)
		}
	}

	// every region is populated for a well-formed phantom
	for _, label := range RegionLabels {
		if counts[label] == 0 {
			t.Fatalf("region %s is empty", RegionName(label))
		}
	}

	// single label per voxel means the regions partition the grid with the
	// unlabelled rim
	total := counts[LabelNone] + counts[LabelPhantom] + counts[LabelNyquist] + counts[LabelNoise]
	if total != mask.NVoxels() {
		t.Fatalf("labels cover %d of %d voxels", total, mask.NVoxels())
	}

	// the phantom label stays inside the thresholded signal
	th := tmean.Percentile(99) * 0.1
	n := tmean.NVoxels()
	for i := 0; i < n; i++ {
		if mask.Data[i] == LabelPhantom && tmean.Data[i] < th {
			t.Fatalf("phantom voxel %d below signal threshold", i)
		}
	}
}

func TestBuildRegionMaskGhostOutsideEnvelope(t *testing.T) {
	tmean := sphereVolume(32, 32, 16, 1, 3, 24, 800, 0)

	mask, err := BuildRegionMask(tmean, volume.AxisY, MaskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	// ghost voxels never overlap real signal: nyquist implies below threshold
	th := tmean.Percentile(99) * 0.1
	for i, val := range mask.Data {
		if val == LabelNyquist && tmean.Data[i] >= th {
			t.Fatalf("nyquist voxel %d overlaps phantom signal", i)
		}
	}
}

func TestBuildRegionMaskDegenerate(t *testing.T) {
	zero := volume.New(8, 8, 4, 1)
	_, err := BuildRegionMask(zero, volume.AxisY, MaskOptions{})
	if !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("err = %v, want ErrDegenerateInput", err)
	}
}

func TestMaskOptionsDefaults(t *testing.T) {
	o := MaskOptions{}.withDefaults()
	if o.ThresholdFraction != 0.1 || o.Percentile != 99 || o.ErodeRadiusMM != 6 || o.DilateIterations != 2 {
		t.Fatalf("defaults = %+v", o)
	}

	// explicit values survive
	o = MaskOptions{ThresholdFraction: 0.2, Percentile: 95, ErodeRadiusMM: 3, DilateIterations: 1}.withDefaults()
	if o.ThresholdFraction != 0.2 || o.Percentile != 95 || o.ErodeRadiusMM != 3 || o.DilateIterations != 1 {
		t.Fatalf("explicit options overwritten: %+v", o)
	}
}

func TestRegionName(t *testing.T) {
	cases := map[float64]string{
		LabelPhantom: "phantom",
		LabelNyquist: "nyquist",
		LabelNoise:   "noise",
		99:           "unknown",
	}
	for label, want := range cases {
		if got := RegionName(label); got != want {
			t.Errorf("RegionName(%g) = %q, want %q", label, got, want)
		}
	}
}
