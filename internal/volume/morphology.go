package volume

// SphereElement is a spherical structuring element expressed as a list of
// voxel offsets. The radius is given in mm and converted to voxel units
// through the target volume's grid spacing, so anisotropic grids erode and
// dilate by the same physical distance along every axis.
type SphereElement struct {
	RadiusMM float64
	offsets  [][3]int
}

// NewSphereElement builds a structuring element of the given physical
// radius for a grid with the given voxel spacing. A non-positive spacing
// component falls back to 1mm.
func NewSphereElement(radiusMM float64, pixdim [3]float64) *SphereElement {
	for i := range pixdim {
		if pixdim[i] <= 0 {
			pixdim[i] = 1
		}
	}
	rx := int(radiusMM / pixdim[0])
	ry := int(radiusMM / pixdim[1])
	rz := int(radiusMM / pixdim[2])
	r2 := radiusMM * radiusMM

	var offs [][3]int
	for k := -rz; k <= rz; k++ {
		for j := -ry; j <= ry; j++ {
			for i := -rx; i <= rx; i++ {
				dx := float64(i) * pixdim[0]
				dy := float64(j) * pixdim[1]
				dz := float64(k) * pixdim[2]
				if dx*dx+dy*dy+dz*dz <= r2 {
					offs = append(offs, [3]int{i, j, k})
				}
			}
		}
	}
	return &SphereElement{RadiusMM: radiusMM, offsets: offs}
}

// Size returns the number of voxels in the element.
func (e *SphereElement) Size() int { return len(e.offsets) }

// Erode returns the binary erosion of a 3D binary volume: a voxel survives
// only if every element offset lands on a set voxel. Offsets outside the
// grid count as unset, so the mask retreats from the volume boundary.
func (v *Volume) Erode(e *SphereElement) *Volume {
	out := NewLike(v, 1)
	for z := 0; z < v.NZ; z++ {
		for y := 0; y < v.NY; y++ {
			for x := 0; x < v.NX; x++ {
				if v.At(x, y, z, 0) == 0 {
					continue
				}
				if v.coveredBy(e, x, y, z) {
					out.Set(x, y, z, 0, 1)
				}
			}
		}
	}
	return out
}

// Dilate returns the binary dilation of a 3D binary volume, applied the
// given number of times: every set voxel stamps the whole element.
func (v *Volume) Dilate(e *SphereElement, iterations int) *Volume {
	cur := v
	for it := 0; it < iterations; it++ {
		out := NewLike(cur, 1)
		for z := 0; z < cur.NZ; z++ {
			for y := 0; y < cur.NY; y++ {
				for x := 0; x < cur.NX; x++ {
					if cur.At(x, y, z, 0) == 0 {
						continue
					}
					for _, o := range e.offsets {
						xx, yy, zz := x+o[0], y+o[1], z+o[2]
						if xx < 0 || xx >= cur.NX || yy < 0 || yy >= cur.NY || zz < 0 || zz >= cur.NZ {
							continue
						}
						out.Set(xx, yy, zz, 0, 1)
					}
				}
			}
		}
		cur = out
	}
	if cur == v {
		cur = v.Clone()
	}
	return cur
}

func (v *Volume) coveredBy(e *SphereElement, x, y, z int) bool {
	for _, o := range e.offsets {
		xx, yy, zz := x+o[0], y+o[1], z+o[2]
		if xx < 0 || xx >= v.NX || yy < 0 || yy >= v.NY || zz < 0 || zz >= v.NZ {
			return false
		}
		if v.At(xx, yy, zz, 0) == 0 {
			return false
		}
	}
	return true
}
