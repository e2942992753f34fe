// Package field abstracts magnetic field access for the vertexing
// library. The analytic helix model only ever consumes the axial (z)
// component of the field, so accessors return that single scalar.
package field

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"
)

// Accessor yields the axial magnetic field at a position. The two
// implementations cover the configured-constant case (including the
// zero-field straight-track mode) and lookup in a full field map.
// Implementations must be safe for concurrent use.
type Accessor interface {
	// FieldAt returns the z component of the field in tesla at the
	// given position (mm). The context carries caller-scoped field
	// calibration state for map-backed accessors; constant accessors
	// ignore it.
	FieldAt(ctx context.Context, pos r3.Vec) (float64, error)
}

// Constant is an Accessor returning a fixed axial field everywhere.
// A zero value is the field-free (straight track) configuration.
type Constant struct {
	Bz float64 // tesla
}

// FieldAt returns the configured field regardless of position.
func (c Constant) FieldAt(_ context.Context, _ r3.Vec) (float64, error) {
	return c.Bz, nil
}

// Map is the capability required from a full magnetic field model:
// the field vector (tesla) at a global position (mm).
type Map interface {
	FieldValue(ctx context.Context, pos r3.Vec) (r3.Vec, error)
}

// Mapped adapts a Map to an Accessor by projecting out the axial
// component. The helix formulation assumes the field is locally
// uniform and axial; transverse components are deliberately dropped.
type Mapped struct {
	Map Map
}

// FieldAt evaluates the map and returns the z component.
func (m Mapped) FieldAt(ctx context.Context, pos r3.Vec) (float64, error) {
	b, err := m.Map.FieldValue(ctx, pos)
	if err != nil {
		return 0, err
	}
	return b.Z, nil
}
