package qa

import (
	"fmt"

	"github.com/phantom-data/phantom.report/internal/volume"
)

// Region labels in the QC mask.
const (
	LabelNone    = 0.0 // background / unused
	LabelPhantom = 1.0
	LabelNyquist = 2.0
	LabelNoise   = 3.0
)

// RegionLabels lists the non-zero labels in extraction order.
var RegionLabels = []float64{LabelPhantom, LabelNyquist, LabelNoise}

// RegionName maps a label to its series/metric name.
func RegionName(label float64) string {
	switch label {
	case LabelPhantom:
		return "phantom"
	case LabelNyquist:
		return "nyquist"
	case LabelNoise:
		return "noise"
	}
	return "unknown"
}

// MaskOptions tune the region mask builder. Zero values select the
// defaults used by the scanner QC protocol.
type MaskOptions struct {
	// ThresholdFraction scales the percentile intensity to obtain the
	// signal threshold. Default 0.1.
	ThresholdFraction float64
	// Percentile of the mean-volume intensity used as the robust bright
	// reference (resistant to isolated hot voxels). Default 99.
	Percentile float64
	// ErodeRadiusMM is the spherical structuring element radius. Default 6.
	ErodeRadiusMM float64
	// DilateIterations applied to the eroded phantom to form the outer
	// signal envelope. A fixed protocol constant, not derived. Default 2.
	DilateIterations int
}

func (o MaskOptions) withDefaults() MaskOptions {
	if o.ThresholdFraction <= 0 {
		o.ThresholdFraction = 0.1
	}
	if o.Percentile <= 0 {
		o.Percentile = 99
	}
	if o.ErodeRadiusMM <= 0 {
		o.ErodeRadiusMM = 6
	}
	if o.DilateIterations <= 0 {
		o.DilateIterations = 2
	}
	return o
}

// BuildRegionMask derives the 3-label region mask from a temporal-mean
// volume. phaseAxis is the phase-encode axis, along which the Nyquist
// ghost is displaced by half the field of view.
//
// The construction is deterministic and order-sensitive:
//
//  1. signal threshold = ThresholdFraction x Percentile-th intensity
//  2. signal = tmean >= threshold
//  3. phantom = erode(signal) with the spherical element
//  4. envelope = dilate(phantom) twice with the same element
//  5. ghost = half-FOV swap of envelope along phaseAxis
//  6. nyquist = XOR(ghost, envelope), restricted outside the envelope so
//     only the displaced footprint survives
//  7. noise = NOT(envelope) minus nyquist
//  8. mask = phantom + 2*nyquist + 3*noise
//
// The three regions are pairwise disjoint by construction; voxels between
// the eroded phantom and the dilated envelope stay at label 0.
func BuildRegionMask(tmean *volume.Volume, phaseAxis volume.Axis, opts MaskOptions) (*volume.Volume, error) {
	opts = opts.withDefaults()

	th := tmean.Percentile(opts.Percentile) * opts.ThresholdFraction
	if th <= 0 {
		return nil, fmt.Errorf("signal threshold %g from p%.0f of mean volume: %w",
			th, opts.Percentile, ErrDegenerateInput)
	}

	signal := tmean.Threshold(th)

	elem := volume.NewSphereElement(opts.ErodeRadiusMM, tmean.PixDim)
	phantom := signal.Erode(elem)
	envelope := phantom.Dilate(elem, opts.DilateIterations)

	shifted := envelope.HalfShift(phaseAxis)
	xor, err := volume.XOR(shifted, envelope)
	if err != nil {
		return nil, err
	}
	// The XOR also re-admits envelope voxels missing from the shifted copy;
	// the ghost region is only the displaced footprint outside the envelope.
	nyquist, err := volume.AndNot(xor, envelope)
	if err != nil {
		return nil, err
	}

	noise, err := volume.AndNot(envelope.Not(), nyquist)
	if err != nil {
		return nil, err
	}

	mask, err := volume.Add(phantom, nyquist.Scale(LabelNyquist))
	if err != nil {
		return nil, err
	}
	mask, err = volume.Add(mask, noise.Scale(LabelNoise))
	if err != nil {
		return nil, err
	}
	return mask, nil
}
