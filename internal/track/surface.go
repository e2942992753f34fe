package track

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// nearAxisThreshold decides when a plane normal is close enough to the
// z axis that the z-cross frame construction degenerates.
const nearAxisThreshold = 0.999999

// minNormalLength rejects effectively zero normal vectors.
const minNormalLength = 1e-12

// Surface is a reference surface that bound track parameters are
// expressed against. The two local coordinates of a bound parameter
// vector are interpreted by the concrete surface type.
type Surface interface {
	// Center returns the surface reference point in global coordinates.
	Center() r3.Vec
}

// PerigeeSurface is a line surface through a reference point along the
// z axis. Bound locals on it are the signed transverse impact parameter
// d0 (Loc0) and the longitudinal offset z0 (Loc1).
type PerigeeSurface struct {
	Ref r3.Vec
}

// NewPerigeeSurface returns a perigee surface anchored at ref.
func NewPerigeeSurface(ref r3.Vec) *PerigeeSurface {
	return &PerigeeSurface{Ref: ref}
}

// Center returns the perigee reference point.
func (s *PerigeeSurface) Center() r3.Vec { return s.Ref }

// PlaneSurface is a plane given by a centre and an orthonormal frame.
// Bound locals on it are the in-plane coordinates along AxisX (Loc0)
// and AxisY (Loc1).
type PlaneSurface struct {
	Ctr    r3.Vec
	AxisX  r3.Vec
	AxisY  r3.Vec
	Normal r3.Vec
}

// NewPlaneSurface builds a plane at center with the given normal
// direction. The in-plane frame follows the usual convention:
// AxisX = normalize(z x normal), AxisY = normal x AxisX. When the
// normal is (anti)parallel to z the frame falls back to the global
// x and y axes. The normal need not be unit length but must be
// non-degenerate.
func NewPlaneSurface(center, normal r3.Vec) (*PlaneSurface, error) {
	n := r3.Norm(normal)
	if n < minNormalLength || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("plane surface: degenerate normal %v", normal)
	}
	unit := r3.Scale(1/n, normal)

	var ax r3.Vec
	if math.Abs(unit.Z) > nearAxisThreshold {
		ax = r3.Vec{X: 1}
	} else {
		ax = r3.Unit(r3.Cross(r3.Vec{Z: 1}, unit))
	}
	ay := r3.Cross(unit, ax)

	return &PlaneSurface{Ctr: center, AxisX: ax, AxisY: ay, Normal: unit}, nil
}

// Center returns the plane centre.
func (s *PlaneSurface) Center() r3.Vec { return s.Ctr }

// LocalToGlobal converts in-plane coordinates to a global position.
func (s *PlaneSurface) LocalToGlobal(loc0, loc1 float64) r3.Vec {
	return r3.Add(s.Ctr, r3.Add(r3.Scale(loc0, s.AxisX), r3.Scale(loc1, s.AxisY)))
}

// GlobalToLocal projects a global position into the plane frame.
// The returned off-plane component is the signed distance along the
// normal; callers that require the point to lie on the plane should
// check it against their tolerance.
func (s *PlaneSurface) GlobalToLocal(pos r3.Vec) (loc0, loc1, off float64) {
	d := r3.Sub(pos, s.Ctr)
	return r3.Dot(d, s.AxisX), r3.Dot(d, s.AxisY), r3.Dot(d, s.Normal)
}
