// Package vertexing implements 3D impact point estimation: the point of
// closest approach (PCA) between a reconstructed track and a vertex
// candidate, track parameters re-expressed at that point, and a
// track-to-vertex compatibility score.
//
// The trajectory model is an analytic helix in a locally uniform axial
// magnetic field, degenerating to a straight line when the field or the
// track curvature vanishes. The PCA azimuth is found with a bounded
// Newton iteration on the derivative of the squared track-vertex
// distance.
package vertexing

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hepflow/vertexing/internal/field"
	"github.com/hepflow/vertexing/internal/propagation"
	"github.com/hepflow/vertexing/internal/track"
	"github.com/hepflow/vertexing/internal/units"
)

// Estimator defaults.
const (
	DefaultMaxIterations = 20
	DefaultPrecision     = 1e-10 // rad, on the Newton phi update
)

// Internal numerical stability constants — not user-tunable.
const (
	// minSinTheta is the smallest |sin(theta)| for which the helix
	// model has a transverse projection at all.
	minSinTheta = 1e-12

	// minSecondDerivative rejects Newton steps where the squared
	// distance has no usable curvature in phi (mm^2/rad^2).
	minSecondDerivative = 1e-12

	// minCovarianceDeterminant rejects singular 2x2 position
	// covariance blocks when weighting the compatibility (mm^4).
	minCovarianceDeterminant = 1e-20
)

// Config holds the immutable estimator configuration. The propagator
// is a shared, non-owning handle: the estimator never closes or
// replaces it, and several estimators may point at the same instance.
type Config struct {
	// Field supplies the axial field. Nil means field-free.
	Field field.Accessor

	// Propagator re-expresses parameters on the PCA plane. Only
	// ParamsAtClosestApproach needs it.
	Propagator propagation.Propagator

	// Options are handed to every transport call. The zero value
	// selects backward propagation, the vertexing default.
	Options propagation.Options

	// MaxIterations caps the Newton iteration. Zero selects
	// DefaultMaxIterations.
	MaxIterations int

	// Precision is the convergence threshold on the phi update.
	// Zero selects DefaultPrecision.
	Precision float64
}

// Estimator computes track-vertex closest approach quantities. It is
// stateless between calls and safe for concurrent use, provided the
// configured field accessor and propagator are.
type Estimator struct {
	cfg Config
}

// NewEstimator returns an estimator for the given configuration,
// filling in defaults for unset limits. The configuration is copied
// and never mutated afterwards.
func NewEstimator(cfg Config) *Estimator {
	if cfg.Field == nil {
		cfg.Field = field.Constant{}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Precision <= 0 {
		cfg.Precision = DefaultPrecision
	}
	return &Estimator{cfg: cfg}
}

// CalculateDistance returns the 3D distance between the track and the
// vertex position at the track's point of closest approach. The value
// is exact (to the configured precision) for a uniform axial field and
// an approximation where the true field varies along the path.
func (e *Estimator) CalculateDistance(ctx context.Context, params *track.Parameters, vtx r3.Vec) (float64, error) {
	deltaR, _, err := e.distanceAndMomentum(ctx, params, vtx)
	if err != nil {
		return 0, err
	}
	return r3.Norm(deltaR), nil
}

// ParamsAtClosestApproach builds new bound parameters on a plane
// surface centred at the vertex position and oriented orthogonal to
// the track momentum at the point of closest approach. The returned
// parameters are owned by the caller.
func (e *Estimator) ParamsAtClosestApproach(ctx context.Context, params *track.Parameters, vtx r3.Vec) (*track.Parameters, error) {
	if e.cfg.Propagator == nil {
		return nil, fmt.Errorf("%w: no propagator configured", ErrInvalidInput)
	}

	_, momDir, err := e.distanceAndMomentum(ctx, params, vtx)
	if err != nil {
		return nil, err
	}

	plane, err := track.NewPlaneSurface(vtx, momDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNumericalFailure, err)
	}

	out, err := e.cfg.Propagator.ToPlane(ctx, params, plane, e.cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPropagation, err)
	}
	return out, nil
}

// VertexCompatibility scores how compatible parameters already
// expressed at closest approach (as produced by ParamsAtClosestApproach)
// are with the vertex position. The score is the squared in-plane
// residual weighted by the inverse of the 2x2 position covariance
// block; without a covariance it falls back to the plain squared
// residual. Larger values mean worse agreement.
func (e *Estimator) VertexCompatibility(_ context.Context, params *track.Parameters, vtx r3.Vec) (float64, error) {
	if params == nil {
		return 0, fmt.Errorf("%w: nil track parameters", ErrInvalidInput)
	}
	plane, ok := params.Surface.(*track.PlaneSurface)
	if !ok {
		return 0, fmt.Errorf("%w: parameters are not expressed on a closest approach plane", ErrInvalidInput)
	}
	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	vLoc0, vLoc1, _ := plane.GlobalToLocal(vtx)
	dx := params.Loc0 - vLoc0
	dy := params.Loc1 - vLoc1

	if params.Cov == nil {
		return dx*dx + dy*dy, nil
	}

	c00 := params.Cov.At(track.IdxLoc0, track.IdxLoc0)
	c01 := params.Cov.At(track.IdxLoc0, track.IdxLoc1)
	c11 := params.Cov.At(track.IdxLoc1, track.IdxLoc1)
	// The weight matrix only orders scores correctly for a positive
	// definite position block, so an indefinite one (det < 0) is as
	// unusable as a singular one.
	det := c00*c11 - c01*c01
	if c00 <= 0 || det < minCovarianceDeterminant {
		return 0, fmt.Errorf("%w: position covariance not positive definite (det=%g)", ErrNumericalFailure, det)
	}

	// Inverse of the 2x2 block, applied as a quadratic form.
	w00 := c11 / det
	w01 := -c01 / det
	w11 := c00 / det
	return dx*dx*w00 + 2*dx*dy*w01 + dy*dy*w11, nil
}

// distanceAndMomentum computes the displacement from the track's point
// of closest approach to the vertex, together with the momentum
// direction at that point.
//
// The field is sampled once, at the reference surface centre, and held
// fixed through the iteration. For a genuinely non-uniform field this
// makes the result a locally-uniform approximation; re-sampling along
// the path is deliberately not done.
func (e *Estimator) distanceAndMomentum(ctx context.Context, params *track.Parameters, vtx r3.Vec) (deltaR, momDir r3.Vec, err error) {
	if params == nil {
		return deltaR, momDir, fmt.Errorf("%w: nil track parameters", ErrInvalidInput)
	}
	if verr := params.Validate(); verr != nil {
		return deltaR, momDir, fmt.Errorf("%w: %v", ErrInvalidInput, verr)
	}

	theta := params.Theta
	sinTheta := math.Sin(theta)
	if math.Abs(sinTheta) < minSinTheta {
		return deltaR, momDir, fmt.Errorf("%w: track has no transverse momentum (theta=%g)", ErrNumericalFailure, theta)
	}

	refCenter := params.Surface.Center()
	bz, ferr := e.cfg.Field.FieldAt(ctx, refCenter)
	if ferr != nil {
		return deltaR, momDir, fmt.Errorf("%w: field lookup: %v", ErrPropagation, ferr)
	}

	r := units.HelixRadius(sinTheta, params.QOverP, bz)
	momDir = params.Direction()

	if !units.IsFiniteRadius(r) {
		// Field-free or curvature-free: straight line closest
		// approach, solved analytically.
		pos := params.Position()
		d := r3.Sub(vtx, pos)
		along := r3.Dot(d, momDir)
		pca := r3.Add(pos, r3.Scale(along, momDir))
		return r3.Sub(pca, vtx), momDir, nil
	}

	phi := params.Phi
	cotTheta := math.Cos(theta) / sinTheta

	// Reference point of the helix parameterisation: the trajectory is
	// pos(phi) = vec0 + r*(-sin phi, cos phi, -cotTheta*phi), which
	// reproduces the track position at the track's own phi.
	pos := params.Position()
	vec0 := r3.Add(pos, r3.Scale(r, r3.Vec{
		X: math.Sin(phi),
		Y: -math.Cos(phi),
		Z: cotTheta * phi,
	}))

	phiPCA, nerr := e.newtonPhi(vec0, vtx, phi, theta, r)
	if nerr != nil {
		return deltaR, momDir, nerr
	}

	momDir = r3.Vec{
		X: sinTheta * math.Cos(phiPCA),
		Y: sinTheta * math.Sin(phiPCA),
		Z: math.Cos(theta),
	}
	pca := r3.Add(vec0, r3.Scale(r, r3.Vec{
		X: -math.Sin(phiPCA),
		Y: math.Cos(phiPCA),
		Z: -cotTheta * phiPCA,
	}))
	return r3.Sub(pca, vtx), momDir, nil
}

// newtonPhi refines the helix azimuth until it satisfies the closest
// approach condition: the derivative of the squared track-vertex
// distance with respect to phi vanishes. That derivative is sinusoidal
// in phi and has no closed-form root, hence the Newton iteration.
func (e *Estimator) newtonPhi(trkPos, vtx r3.Vec, phi, theta, r float64) (float64, error) {
	sinTheta := math.Sin(theta)
	cotTheta := math.Cos(theta) / sinTheta

	dx := trkPos.X - vtx.X
	dy := trkPos.Y - vtx.Y
	dz := trkPos.Z - vtx.Z

	for i := 0; i < e.cfg.MaxIterations; i++ {
		sinPhi := math.Sin(phi)
		cosPhi := math.Cos(phi)

		// With D^2(phi) the squared distance to the vertex:
		//   dD^2/dphi   = -2r * f
		//   d2D^2/dphi2 = -2r * fp
		f := dx*cosPhi + dy*sinPhi + cotTheta*(dz-r*cotTheta*phi)
		fp := -dx*sinPhi + dy*cosPhi - r*cotTheta*cotTheta

		secondDeriv := -2 * r * fp
		if secondDeriv < minSecondDerivative {
			// Flat or concave in phi: a Newton step would jump to a
			// maximum or divide by (near) zero.
			return 0, fmt.Errorf("%w: second derivative %g in closest approach iteration", ErrNumericalFailure, secondDeriv)
		}

		deltaPhi := -f / fp
		if math.IsNaN(deltaPhi) || math.IsInf(deltaPhi, 0) {
			return 0, fmt.Errorf("%w: non-finite phi update", ErrNumericalFailure)
		}

		phi += deltaPhi
		if math.Abs(deltaPhi) < e.cfg.Precision {
			return phi, nil
		}
	}
	return 0, fmt.Errorf("%w after %d iterations", ErrNotConverged, e.cfg.MaxIterations)
}
