package propagation

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hepflow/vertexing/internal/field"
	"github.com/hepflow/vertexing/internal/track"
	"github.com/hepflow/vertexing/internal/units"
)

// Plane crossing iteration limits. The crossing equation is close to
// linear near the start point, so these are generous.
const (
	crossingMaxIterations = 100
	crossingTolerance     = 1e-12 // rad
	minNormalProjection   = 1e-12
)

// Covariance transport uses central differences with these step sizes
// per bound parameter (mm, mm, rad, rad, 1/GeV).
var jacobianSteps = [track.BoundDim]float64{1e-4, 1e-4, 1e-7, 1e-7, 1e-9}

// HelixPropagator transports bound parameters analytically, assuming
// the field is uniform and axial along the path: a helix in field, a
// straight line without. The field is sampled once at the start
// position and held fixed, matching the helix model used by the
// vertexing estimator. Covariance is transported with a numerically
// evaluated bound-to-bound Jacobian.
type HelixPropagator struct {
	field field.Accessor
}

// NewHelixPropagator returns a propagator reading the axial field from
// acc. A nil accessor is treated as field-free.
func NewHelixPropagator(acc field.Accessor) *HelixPropagator {
	if acc == nil {
		acc = field.Constant{}
	}
	return &HelixPropagator{field: acc}
}

// ToPlane transports params onto the target plane. A straight-line
// crossing must lie in the direction requested by opts, measured along
// the momentum; the helical model instead lands on the crossing nearest
// in azimuth to the start state, which a direction preference cannot
// disambiguate on a closed orbit.
func (h *HelixPropagator) ToPlane(ctx context.Context, params *track.Parameters, target *track.PlaneSurface, opts Options) (*track.Parameters, error) {
	if params == nil || target == nil {
		return nil, fmt.Errorf("helix propagator: nil parameters or target")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	bz, err := h.field.FieldAt(ctx, params.Position())
	if err != nil {
		return nil, fmt.Errorf("helix propagator: field lookup: %w", err)
	}

	vec, err := h.transportVector(boundVector(params), params.Surface, target, bz, opts.Direction)
	if err != nil {
		return nil, err
	}

	out := &track.Parameters{
		Surface: target,
		Loc0:    vec[track.IdxLoc0],
		Loc1:    vec[track.IdxLoc1],
		Phi:     vec[track.IdxPhi],
		Theta:   vec[track.IdxTheta],
		QOverP:  vec[track.IdxQOverP],
	}

	if params.Cov != nil {
		cov, err := h.transportCovariance(params, target, bz, opts.Direction)
		if err != nil {
			return nil, err
		}
		out.Cov = cov
	}
	return out, nil
}

// transportVector maps a bound 5-vector on src onto the target plane.
func (h *HelixPropagator) transportVector(v [track.BoundDim]float64, src track.Surface, target *track.PlaneSurface, bz float64, dir Direction) ([track.BoundDim]float64, error) {
	var out [track.BoundDim]float64

	p := track.Parameters{
		Surface: src,
		Loc0:    v[track.IdxLoc0],
		Loc1:    v[track.IdxLoc1],
		Phi:     v[track.IdxPhi],
		Theta:   v[track.IdxTheta],
		QOverP:  v[track.IdxQOverP],
	}

	pos := p.Position()
	mom := p.Direction()
	theta := p.Theta
	sinTheta := math.Sin(theta)
	if math.Abs(sinTheta) < 1e-12 {
		return out, fmt.Errorf("helix propagator: longitudinal track, no transverse motion")
	}

	r := units.HelixRadius(sinTheta, p.QOverP, bz)

	var newPos r3.Vec
	newPhi := p.Phi
	if !units.IsFiniteRadius(r) {
		// Straight line: single analytic crossing.
		denom := r3.Dot(target.Normal, mom)
		if math.Abs(denom) < minNormalProjection {
			return out, fmt.Errorf("helix propagator: track parallel to target plane")
		}
		s := r3.Dot(target.Normal, r3.Sub(target.Ctr, pos)) / denom
		if (dir == Forward && s < 0) || (dir == Backward && s > 0) {
			return out, fmt.Errorf("helix propagator: plane crossing not reachable propagating %s", dir)
		}
		newPos = r3.Add(pos, r3.Scale(s, mom))
	} else {
		cotTheta := math.Cos(theta) / sinTheta
		phi := p.Phi
		// Helix reference point: position(phi) = vec0 + r*(-sin phi,
		// cos phi, -cotTheta*phi).
		vec0 := r3.Add(pos, r3.Scale(r, r3.Vec{
			X: math.Sin(phi),
			Y: -math.Cos(phi),
			Z: cotTheta * phi,
		}))

		converged := false
		for i := 0; i < crossingMaxIterations; i++ {
			at := helixPoint(vec0, r, cotTheta, phi)
			g := r3.Dot(target.Normal, r3.Sub(at, target.Ctr))
			dg := r * r3.Dot(target.Normal, r3.Vec{
				X: -math.Cos(phi),
				Y: -math.Sin(phi),
				Z: -cotTheta,
			})
			if math.Abs(dg) < minNormalProjection {
				return out, fmt.Errorf("helix propagator: trajectory tangent to target plane")
			}
			delta := -g / dg
			phi += delta
			if math.Abs(delta) < crossingTolerance {
				converged = true
				break
			}
		}
		if !converged {
			return out, fmt.Errorf("helix propagator: plane crossing did not converge in %d iterations", crossingMaxIterations)
		}
		newPos = helixPoint(vec0, r, cotTheta, phi)
		newPhi = phi
	}

	loc0, loc1, _ := target.GlobalToLocal(newPos)
	out[track.IdxLoc0] = loc0
	out[track.IdxLoc1] = loc1
	out[track.IdxPhi] = newPhi
	out[track.IdxTheta] = theta
	out[track.IdxQOverP] = p.QOverP
	return out, nil
}

// transportCovariance builds the 5x5 bound-to-bound Jacobian by central
// differences around the track state and returns J*C*J^T.
func (h *HelixPropagator) transportCovariance(params *track.Parameters, target *track.PlaneSurface, bz float64, dir Direction) (*mat.SymDense, error) {
	base := boundVector(params)

	jac := mat.NewDense(track.BoundDim, track.BoundDim, nil)
	for j := 0; j < track.BoundDim; j++ {
		step := jacobianSteps[j]

		up := base
		up[j] += step
		fUp, err := h.transportVector(up, params.Surface, target, bz, dir)
		if err != nil {
			return nil, fmt.Errorf("helix propagator: covariance transport: %w", err)
		}

		down := base
		down[j] -= step
		fDown, err := h.transportVector(down, params.Surface, target, bz, dir)
		if err != nil {
			return nil, fmt.Errorf("helix propagator: covariance transport: %w", err)
		}

		for i := 0; i < track.BoundDim; i++ {
			d := fUp[i] - fDown[i]
			if i == track.IdxPhi {
				d = wrapAngle(d)
			}
			jac.Set(i, j, d/(2*step))
		}
	}

	var tmp, full mat.Dense
	tmp.Mul(jac, params.Cov)
	full.Mul(&tmp, jac.T())

	out := mat.NewSymDense(track.BoundDim, nil)
	for i := 0; i < track.BoundDim; i++ {
		for j := i; j < track.BoundDim; j++ {
			// Symmetrise against round-off from the two products.
			out.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}
	return out, nil
}

func helixPoint(vec0 r3.Vec, r, cotTheta, phi float64) r3.Vec {
	return r3.Add(vec0, r3.Scale(r, r3.Vec{
		X: -math.Sin(phi),
		Y: math.Cos(phi),
		Z: -cotTheta * phi,
	}))
}

func boundVector(p *track.Parameters) [track.BoundDim]float64 {
	return [track.BoundDim]float64{p.Loc0, p.Loc1, p.Phi, p.Theta, p.QOverP}
}

// wrapAngle maps an angle difference into (-pi, pi].
func wrapAngle(d float64) float64 {
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
