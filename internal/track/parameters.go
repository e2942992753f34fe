// Package track holds bound track parameter and reference surface types
// shared by the propagation and vertexing packages.
package track

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Bound parameter vector indices. The same 5-vector layout is used for
// every surface type; only the meaning of the two locals changes.
const (
	IdxLoc0 = iota // d0 on a perigee, in-plane x on a plane
	IdxLoc1        // z0 on a perigee, in-plane y on a plane
	IdxPhi
	IdxTheta
	IdxQOverP

	// BoundDim is the bound parameter vector dimension.
	BoundDim = 5
)

// Parameters is a bound track state on a reference surface: local
// position, momentum angles and signed charge over momentum, with an
// optional 5x5 covariance. Values are treated as read-only once built;
// operations that change the reference surface return a new value.
type Parameters struct {
	Surface Surface

	Loc0   float64 // mm
	Loc1   float64 // mm
	Phi    float64 // rad, azimuth of momentum
	Theta  float64 // rad, polar angle of momentum
	QOverP float64 // 1/GeV, signed

	// Cov is the bound covariance in the order (loc0, loc1, phi,
	// theta, q/p). Nil when the track carries no uncertainty.
	Cov *mat.SymDense
}

// Validate checks the parameter vector for structural problems that
// make it unusable for any downstream computation.
func (p *Parameters) Validate() error {
	if p.Surface == nil {
		return fmt.Errorf("track parameters: nil reference surface")
	}
	for _, v := range []float64{p.Loc0, p.Loc1, p.Phi, p.Theta, p.QOverP} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("track parameters: non-finite component")
		}
	}
	if p.Cov != nil {
		if r, c := p.Cov.Dims(); r != BoundDim || c != BoundDim {
			return fmt.Errorf("track parameters: covariance is %dx%d, want %dx%d", r, c, BoundDim, BoundDim)
		}
	}
	return nil
}

// Position returns the global position of the track state.
func (p *Parameters) Position() r3.Vec {
	switch s := p.Surface.(type) {
	case *PerigeeSurface:
		// Perigee convention: the transverse impact point sits at
		// d0 rotated 90 degrees from the momentum azimuth.
		return r3.Add(s.Ref, r3.Vec{
			X: -p.Loc0 * math.Sin(p.Phi),
			Y: p.Loc0 * math.Cos(p.Phi),
			Z: p.Loc1,
		})
	case *PlaneSurface:
		return s.LocalToGlobal(p.Loc0, p.Loc1)
	default:
		return p.Surface.Center()
	}
}

// Direction returns the unit momentum direction of the track state.
func (p *Parameters) Direction() r3.Vec {
	st := math.Sin(p.Theta)
	return r3.Vec{
		X: st * math.Cos(p.Phi),
		Y: st * math.Sin(p.Phi),
		Z: math.Cos(p.Theta),
	}
}

// SinTheta returns sin(theta), the transverse fraction of the momentum.
func (p *Parameters) SinTheta() float64 { return math.Sin(p.Theta) }

// HasCovariance reports whether the track carries an uncertainty.
func (p *Parameters) HasCovariance() bool { return p.Cov != nil }

// CloneCov returns a copy of the covariance, or nil when absent.
func (p *Parameters) CloneCov() *mat.SymDense {
	if p.Cov == nil {
		return nil
	}
	out := mat.NewSymDense(BoundDim, nil)
	out.CopySym(p.Cov)
	return out
}
