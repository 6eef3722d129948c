package volume

import (
	"fmt"

	"github.com/KyungWonPark/nifti"
)

// LoadNifti reads a NIfTI-1 volume from disk. The nifti library panics on
// malformed input, so the load is wrapped in a recover that converts the
// panic into an error.
func LoadNifti(path string) (v *Volume, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nifti read %s: %v", path, r)
		}
	}()

	var hdr nifti.Nifti1Header
	hdr.LoadHeader(path)

	nx, ny, nz, nt := int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3]), int(hdr.Dim[4])
	if nt < 1 {
		nt = 1
	}
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("nifti read %s: bad dimensions %dx%dx%d", path, nx, ny, nz)
	}

	var img nifti.Nifti1Image
	img.LoadImage(path, true)

	v = New(nx, ny, nz, nt)
	for i := 0; i < 3; i++ {
		if pd := float64(hdr.Pixdim[i+1]); pd > 0 {
			v.PixDim[i] = pd
		}
	}
	for t := 0; t < nt; t++ {
		for z := 0; z < nz; z++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					v.Set(x, y, z, t, float64(img.GetAt(uint32(x), uint32(y), uint32(z), uint32(t))))
				}
			}
		}
	}
	return v, nil
}

// SaveNifti writes a volume to disk as NIfTI-1. When templatePath names an
// existing NIfTI file, its header is used as a donor so orientation and
// grid metadata survive the round trip; dimensions are always rewritten to
// match v.
func SaveNifti(path string, v *Volume, templatePath string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("nifti write %s: %v", path, r)
		}
	}()

	img := nifti.NewImg(v.NX, v.NY, v.NZ, v.NT)
	if templatePath != "" {
		var hdr nifti.Nifti1Header
		hdr.LoadHeader(templatePath)
		img.SetNewHeader(hdr)
	}
	img.SetHeaderDim(v.NX, v.NY, v.NZ, v.NT)

	for t := 0; t < v.NT; t++ {
		for z := 0; z < v.NZ; z++ {
			for y := 0; y < v.NY; y++ {
				for x := 0; x < v.NX; x++ {
					img.SetAt(uint32(x), uint32(y), uint32(z), uint32(t), float32(v.At(x, y, z, t)))
				}
			}
		}
	}

	img.Save(path)
	return nil
}
