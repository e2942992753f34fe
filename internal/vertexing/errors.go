package vertexing

import "errors"

// Failure classes for estimator operations. Every operation returns one
// of these (wrapped with detail) rather than panicking or smuggling a
// NaN through; callers scoring a track pool are expected to drop the
// offending track and carry on.
var (
	// ErrNumericalFailure marks degenerate geometry: no transverse
	// momentum, a vanishing second derivative in the Newton step, a
	// singular covariance block.
	ErrNumericalFailure = errors.New("vertexing: numerical failure")

	// ErrNotConverged marks a Newton iteration that exhausted its
	// budget without reaching the configured precision.
	ErrNotConverged = errors.New("vertexing: closest approach iteration did not converge")

	// ErrPropagation marks a failure reported by the field accessor
	// or the propagator while re-expressing parameters.
	ErrPropagation = errors.New("vertexing: propagation failed")

	// ErrInvalidInput marks nil or structurally inconsistent
	// arguments.
	ErrInvalidInput = errors.New("vertexing: invalid input")
)
