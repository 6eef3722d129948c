package volume

import "testing"

func TestNewSphereElement(t *testing.T) {
	// radius 1mm on a 1mm grid: centre plus the 6 face neighbours
	e := NewSphereElement(1, [3]float64{1, 1, 1})
	if e.Size() != 7 {
		t.Fatalf("Size = %d, want 7", e.Size())
	}

	// non-positive spacing falls back to 1mm
	e = NewSphereElement(1, [3]float64{0, -2, 1})
	if e.Size() != 7 {
		t.Fatalf("Size with bad pixdim = %d, want 7", e.Size())
	}

	// an anisotropic grid covers fewer voxels along the coarse axis
	e = NewSphereElement(2, [3]float64{1, 1, 2})
	for _, o := range e.offsets {
		if o[2] < -1 || o[2] > 1 {
			t.Fatalf("offset %v exceeds 2mm along the 2mm axis", o)
		}
	}
}

// cube returns an n^3 grid with a centred cube of the given half-width set.
func cube(n, half int) *Volume {
	v := New(n, n, n, 1)
	c := n / 2
	for z := c - half; z <= c+half; z++ {
		for y := c - half; y <= c+half; y++ {
			for x := c - half; x <= c+half; x++ {
				v.Set(x, y, z, 0, 1)
			}
		}
	}
	return v
}

func TestErodeShrinks(t *testing.T) {
	v := cube(11, 3) // 7x7x7 cube
	e := NewSphereElement(1, [3]float64{1, 1, 1})

	er := v.Erode(e)
	if er.CountNonZero() >= v.CountNonZero() {
		t.Fatalf("erosion did not shrink: %d -> %d", v.CountNonZero(), er.CountNonZero())
	}
	// the eroded set stays inside the original
	out, err := AndNot(er, v)
	if err != nil {
		t.Fatal(err)
	}
	if out.CountNonZero() != 0 {
		t.Fatalf("erosion escaped the original set: %d voxels", out.CountNonZero())
	}
	// the cube centre always survives a 1mm erosion of a 7-wide cube
	if er.At(5, 5, 5, 0) != 1 {
		t.Fatal("cube centre eroded away")
	}
}

func TestErodeRetreatsFromBoundary(t *testing.T) {
	// a fully set grid erodes at the faces because out-of-grid counts unset
	v := New(5, 5, 5, 1)
	for i := range v.Data {
		v.Data[i] = 1
	}
	er := v.Erode(NewSphereElement(1, [3]float64{1, 1, 1}))
	if er.At(0, 2, 2, 0) != 0 {
		t.Fatal("boundary voxel survived erosion")
	}
	if er.At(2, 2, 2, 0) != 1 {
		t.Fatal("interior voxel eroded away")
	}
}

func TestDilateGrows(t *testing.T) {
	v := New(9, 9, 9, 1)
	v.Set(4, 4, 4, 0, 1)
	e := NewSphereElement(1, [3]float64{1, 1, 1})

	d1 := v.Dilate(e, 1)
	if d1.CountNonZero() != 7 {
		t.Fatalf("single dilation of a point = %d voxels, want 7", d1.CountNonZero())
	}
	d2 := v.Dilate(e, 2)
	if d2.CountNonZero() <= d1.CountNonZero() {
		t.Fatalf("second dilation did not grow: %d -> %d", d1.CountNonZero(), d2.CountNonZero())
	}
	// dilation contains the original
	out, err := AndNot(v, d2)
	if err != nil {
		t.Fatal(err)
	}
	if out.CountNonZero() != 0 {
		t.Fatal("dilation lost original voxels")
	}
}

func TestDilateZeroIterationsCopies(t *testing.T) {
	v := New(3, 3, 3, 1)
	v.Set(1, 1, 1, 0, 1)
	d := v.Dilate(NewSphereElement(1, [3]float64{1, 1, 1}), 0)
	if d == v {
		t.Fatal("zero-iteration dilation returned the receiver")
	}
	if d.CountNonZero() != 1 || d.At(1, 1, 1, 0) != 1 {
		t.Fatalf("zero-iteration dilation changed data: %v", d.CountNonZero())
	}
}
