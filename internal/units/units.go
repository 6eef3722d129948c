// Package units provides the unit conversions used by the QC metrics.
package units

import "math"

// MMToMicron converts millimetres to micrometres. Displacement metrics are
// reported in microns because typical phantom motion is well under 1mm.
func MMToMicron(mm float64) float64 {
	return mm * 1000.0
}

// MicronToMM converts micrometres to millimetres.
func MicronToMM(um float64) float64 {
	return um / 1000.0
}

// RadToDeg converts radians to degrees, used when motion rotation columns
// are plotted.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
