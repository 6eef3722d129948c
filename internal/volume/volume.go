// Package volume provides 3D/4D scalar volumes and the voxel-level
// primitives (threshold, morphology, logical ops) used by the QC pipeline.
package volume

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Volume is a 3D or 4D grid of scalar intensities. NT is 1 for 3D volumes.
// Data is stored x-fastest: index = ((t*NZ+z)*NY+y)*NX+x.
//
// Volumes are value-producing: operations return new volumes and never
// modify their receiver.
type Volume struct {
	NX, NY, NZ, NT int
	// PixDim is the voxel spacing in mm along x, y, z.
	PixDim [3]float64
	// Origin is the position of the voxel (0,0,0) corner in mm.
	Origin [3]float64
	Data   []float64
}

// Axis identifies a spatial axis of a volume.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis maps an axis name ("x", "y" or "z") to its Axis value.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// New allocates a zero-filled volume with the given dimensions and a
// default 1mm isotropic grid.
func New(nx, ny, nz, nt int) *Volume {
	if nt < 1 {
		nt = 1
	}
	return &Volume{
		NX:     nx,
		NY:     ny,
		NZ:     nz,
		NT:     nt,
		PixDim: [3]float64{1, 1, 1},
		Data:   make([]float64, nx*ny*nz*nt),
	}
}

// NewLike allocates a zero-filled volume sharing v's grid geometry but with
// the given number of frames.
func NewLike(v *Volume, nt int) *Volume {
	out := New(v.NX, v.NY, v.NZ, nt)
	out.PixDim = v.PixDim
	out.Origin = v.Origin
	return out
}

// Index returns the flat data index for voxel (x,y,z) at frame t.
func (v *Volume) Index(x, y, z, t int) int {
	return ((t*v.NZ+z)*v.NY+y)*v.NX + x
}

// At returns the intensity at voxel (x,y,z) of frame t.
func (v *Volume) At(x, y, z, t int) float64 {
	return v.Data[v.Index(x, y, z, t)]
}

// Set stores an intensity at voxel (x,y,z) of frame t.
func (v *Volume) Set(x, y, z, t int, value float64) {
	v.Data[v.Index(x, y, z, t)] = value
}

// NVoxels returns the number of voxels in one frame.
func (v *Volume) NVoxels() int {
	return v.NX * v.NY * v.NZ
}

// Dim returns the voxel count along the given axis.
func (v *Volume) Dim(a Axis) int {
	switch a {
	case AxisX:
		return v.NX
	case AxisY:
		return v.NY
	case AxisZ:
		return v.NZ
	}
	return 0
}

// Clone returns a deep copy of v.
func (v *Volume) Clone() *Volume {
	out := NewLike(v, v.NT)
	copy(out.Data, v.Data)
	return out
}

// Frame returns a 3D copy of frame t.
func (v *Volume) Frame(t int) *Volume {
	out := NewLike(v, 1)
	n := v.NVoxels()
	copy(out.Data, v.Data[t*n:(t+1)*n])
	return out
}

// Percentile returns the p-th percentile (0..100) of the volume's
// intensities using the empirical quantile.
func (v *Volume) Percentile(p float64) float64 {
	sorted := make([]float64, len(v.Data))
	copy(sorted, v.Data)
	sort.Float64s(sorted)
	return stat.Quantile(p/100, stat.Empirical, sorted, nil)
}

// Threshold returns a binary volume: 1 where intensity >= th, else 0.
func (v *Volume) Threshold(th float64) *Volume {
	out := NewLike(v, v.NT)
	for i, val := range v.Data {
		if val >= th {
			out.Data[i] = 1
		}
	}
	return out
}

// Not returns the logical complement of a binary volume.
func (v *Volume) Not() *Volume {
	out := NewLike(v, v.NT)
	for i, val := range v.Data {
		if val == 0 {
			out.Data[i] = 1
		}
	}
	return out
}

// XOR returns the voxels present in exactly one of two binary volumes.
func XOR(a, b *Volume) (*Volume, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	out := NewLike(a, a.NT)
	for i := range a.Data {
		if (a.Data[i] != 0) != (b.Data[i] != 0) {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// AndNot returns the voxels of a that are not in b.
func AndNot(a, b *Volume) (*Volume, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	out := NewLike(a, a.NT)
	for i := range a.Data {
		if a.Data[i] != 0 && b.Data[i] == 0 {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// Scale returns v with every intensity multiplied by f.
func (v *Volume) Scale(f float64) *Volume {
	out := NewLike(v, v.NT)
	for i, val := range v.Data {
		out.Data[i] = val * f
	}
	return out
}

// Add returns the voxel-wise sum of two volumes.
func Add(a, b *Volume) (*Volume, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	out := NewLike(a, a.NT)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out, nil
}

// CountLabel returns the number of voxels holding the given label value.
func (v *Volume) CountLabel(label float64) int {
	n := 0
	for _, val := range v.Data {
		if val == label {
			n++
		}
	}
	return n
}

// CountNonZero returns the number of non-zero voxels.
func (v *Volume) CountNonZero() int {
	n := 0
	for _, val := range v.Data {
		if val != 0 {
			n++
		}
	}
	return n
}

// CenterOfMass returns the intensity-weighted centroid of a 3D volume in
// mm, measured from the volume origin at voxel centres. The zero vector is
// returned for a volume with no signal.
func (v *Volume) CenterOfMass() [3]float64 {
	var sum, cx, cy, cz float64
	for z := 0; z < v.NZ; z++ {
		for y := 0; y < v.NY; y++ {
			for x := 0; x < v.NX; x++ {
				w := v.At(x, y, z, 0)
				if w <= 0 {
					continue
				}
				sum += w
				cx += w * (float64(x) + 0.5)
				cy += w * (float64(y) + 0.5)
				cz += w * (float64(z) + 0.5)
			}
		}
	}
	if sum == 0 {
		return [3]float64{}
	}
	return [3]float64{
		cx/sum*v.PixDim[0] + v.Origin[0],
		cy/sum*v.PixDim[1] + v.Origin[1],
		cz/sum*v.PixDim[2] + v.Origin[2],
	}
}

// HalfShift splits a 3D binary volume at the midpoint of the given axis and
// reassembles it with the two halves swapped, emulating the half-FOV
// displacement of an EPI Nyquist ghost. The spatial offset of the swapped
// halves is folded back onto the original grid, so the result aligns
// voxel-for-voxel with v.
func (v *Volume) HalfShift(a Axis) *Volume {
	out := NewLike(v, v.NT)
	n := v.Dim(a)
	mid := n / 2
	for t := 0; t < v.NT; t++ {
		for z := 0; z < v.NZ; z++ {
			for y := 0; y < v.NY; y++ {
				for x := 0; x < v.NX; x++ {
					xs, ys, zs := x, y, z
					switch a {
					case AxisX:
						xs = (x + mid) % n
					case AxisY:
						ys = (y + mid) % n
					case AxisZ:
						zs = (z + mid) % n
					}
					out.Set(xs, ys, zs, t, v.At(x, y, z, t))
				}
			}
		}
	}
	return out
}

// MaxAbs returns the largest absolute intensity in the volume.
func (v *Volume) MaxAbs() float64 {
	m := 0.0
	for _, val := range v.Data {
		if a := math.Abs(val); a > m {
			m = a
		}
	}
	return m
}

func sameShape(a, b *Volume) error {
	if a.NX != b.NX || a.NY != b.NY || a.NZ != b.NZ || a.NT != b.NT {
		return fmt.Errorf("volume shape mismatch: %dx%dx%dx%d vs %dx%dx%dx%d",
			a.NX, a.NY, a.NZ, a.NT, b.NX, b.NY, b.NZ, b.NT)
	}
	return nil
}
