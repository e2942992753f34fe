// Package units provides shared physical constants and unit conventions
// for the vertexing library.
//
// Conventions: lengths are in millimetres, magnetic field in tesla,
// momentum in GeV/c, charge in units of the elementary charge. All
// packages in this module assume these units; there is no runtime unit
// tagging.
package units

import "math"

// Conversion constants.
const (
	// KLarmor converts between momentum, field and bending radius:
	// a track with transverse momentum pT (GeV/c) in an axial field
	// B (T) bends with radius pT/(KLarmor*B) metres.
	KLarmor = 0.299792458

	// MillimetersPerMeter converts metre-valued radii to the module's
	// millimetre length convention.
	MillimetersPerMeter = 1000.0
)

// MinQOverP is the smallest |q/p| (1/GeV) treated as a curved track.
// Below this the trajectory is handled as a straight line.
const MinQOverP = 1e-15

// HelixRadius returns the signed bending radius in millimetres for a
// track with the given sin(theta), q/p (1/GeV) and axial field bz (T).
// The sign carries the rotation sense: it flips with both the charge
// and the field direction.
//
// Returns +Inf when the field or q/p is too small to define a finite
// radius; callers treat that as the straight-line case.
func HelixRadius(sinTheta, qOverP, bz float64) float64 {
	if bz == 0 || math.Abs(qOverP) < MinQOverP {
		return math.Inf(1)
	}
	return MillimetersPerMeter * sinTheta / (qOverP * KLarmor * bz)
}

// IsFiniteRadius reports whether r is usable as a finite helix radius.
func IsFiniteRadius(r float64) bool {
	return !math.IsInf(r, 0) && !math.IsNaN(r) && r != 0
}
