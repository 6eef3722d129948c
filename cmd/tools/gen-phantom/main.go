// Command gen-phantom generates a synthetic phantom scan directory for
// testing the QC pipeline: a 4D uniform-sphere volume, a zero motion table
// and a scan info file.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/phantom-data/phantom.report/internal/fsutil"
	"github.com/phantom-data/phantom.report/internal/meta"
	"github.com/phantom-data/phantom.report/internal/moco"
	"github.com/phantom-data/phantom.report/internal/qa"
	"github.com/phantom-data/phantom.report/internal/volume"
)

func main() {
	out := flag.String("o", "phantom-scan", "output scan directory")
	nx := flag.Int("nx", 64, "grid size along x")
	ny := flag.Int("ny", 64, "grid size along y")
	nz := flag.Int("nz", 32, "grid size along z")
	frames := flag.Int("n", 100, "number of frames")
	pixdim := flag.Float64("pixdim", 3.0, "isotropic voxel size (mm)")
	radius := flag.Float64("radius", 60.0, "phantom sphere radius (mm)")
	signal := flag.Float64("signal", 800, "in-sphere intensity")
	noise := flag.Float64("noise", 5, "background noise sigma")
	drift := flag.Float64("drift", 0, "linear drift per frame, as a fraction of signal")
	seed := flag.Int64("seed", 1, "noise RNG seed")
	scanner := flag.String("scanner", "SYN0001", "scanner serial")
	date := flag.String("date", "20260101", "acquisition date (YYYYMMDD)")
	flag.Parse()

	if err := fsutil.EnsureDir(*out); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	pd := *pixdim
	v := volume.New(*nx, *ny, *nz, *frames)
	v.PixDim = [3]float64{pd, pd, pd}

	cx := float64(*nx) / 2 * pd
	cy := float64(*ny) / 2 * pd
	cz := float64(*nz) / 2 * pd
	r2 := *radius * *radius

	for t := 0; t < *frames; t++ {
		level := *signal * (1 + *drift*float64(t))
		for z := 0; z < *nz; z++ {
			for y := 0; y < *ny; y++ {
				for x := 0; x < *nx; x++ {
					dx := (float64(x)+0.5)*pd - cx
					dy := (float64(y)+0.5)*pd - cy
					dz := (float64(z)+0.5)*pd - cz
					val := math.Abs(rng.NormFloat64() * *noise)
					if dx*dx+dy*dy+dz*dz <= r2 {
						val += level
					}
					v.Set(x, y, z, t, val)
				}
			}
		}
		if (t+1)%20 == 0 {
			log.Printf("%d/%d frames", t+1, *frames)
		}
	}

	if err := volume.SaveNifti(filepath.Join(*out, qa.MocoVolumeFile), v, ""); err != nil {
		log.Fatalf("write volume: %v", err)
	}
	if err := moco.Write(filepath.Join(*out, qa.MotionParamsFile), moco.Zero(*frames)); err != nil {
		log.Fatalf("write motion table: %v", err)
	}
	info := &meta.ScanInfo{
		ScannerSerial: *scanner,
		AcqDate:       *date,
		FreqMHz:       123.2500,
		TRms:          2000,
		NumVolumes:    *frames,
	}
	if err := meta.Write(filepath.Join(*out, qa.ScanInfoFile), info); err != nil {
		log.Fatalf("write scan info: %v", err)
	}
	log.Printf("✓ Created: %s", *out)
}
