// Package propagation provides the narrow transport capability the
// vertexing core relies on: re-expressing bound track parameters (and
// their covariance) on a target plane surface, plus an analytic
// uniform-field implementation of it.
package propagation

import (
	"context"

	"github.com/hepflow/vertexing/internal/track"
)

// Direction selects which way along the trajectory a transport prefers
// when the target can be reached both ways. The zero value is Backward:
// vertexing transports tracks back towards the beamline by default.
type Direction int

const (
	Backward Direction = iota
	Forward
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// Options configures a single transport call. The zero value is valid
// and selects backward propagation.
type Options struct {
	Direction Direction
}

// Propagator transports a bound track state onto a target plane
// surface, producing new bound parameters there. Implementations must
// not mutate the input parameters and must be safe for concurrent use.
type Propagator interface {
	ToPlane(ctx context.Context, params *track.Parameters, target *track.PlaneSurface, opts Options) (*track.Parameters, error)
}
