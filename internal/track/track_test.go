package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewPlaneSurface(t *testing.T) {
	t.Parallel()

	t.Run("builds orthonormal frame", func(t *testing.T) {
		t.Parallel()
		s, err := NewPlaneSurface(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 1})
		require.NoError(t, err)

		assert.InDelta(t, 1.0, r3.Norm(s.AxisX), 1e-12)
		assert.InDelta(t, 1.0, r3.Norm(s.AxisY), 1e-12)
		assert.InDelta(t, 1.0, r3.Norm(s.Normal), 1e-12)
		assert.InDelta(t, 0.0, r3.Dot(s.AxisX, s.AxisY), 1e-12)
		assert.InDelta(t, 0.0, r3.Dot(s.AxisX, s.Normal), 1e-12)
		assert.InDelta(t, 0.0, r3.Dot(s.AxisY, s.Normal), 1e-12)
	})

	t.Run("accepts non-unit normal", func(t *testing.T) {
		t.Parallel()
		s, err := NewPlaneSurface(r3.Vec{}, r3.Vec{X: 0, Y: 0, Z: 42})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, r3.Norm(s.Normal), 1e-12)
	})

	t.Run("falls back near the z axis", func(t *testing.T) {
		t.Parallel()
		s, err := NewPlaneSurface(r3.Vec{}, r3.Vec{Z: 1})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, s.AxisX.X, 1e-12)
		assert.InDelta(t, 1.0, s.AxisY.Y, 1e-12)
	})

	t.Run("rejects degenerate normal", func(t *testing.T) {
		t.Parallel()
		_, err := NewPlaneSurface(r3.Vec{}, r3.Vec{})
		assert.Error(t, err)
	})
}

func TestPlaneSurfaceRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewPlaneSurface(r3.Vec{X: 5, Y: -3, Z: 7}, r3.Vec{X: 1, Y: 2, Z: 0.5})
	require.NoError(t, err)

	pos := s.LocalToGlobal(3.5, -1.25)
	l0, l1, off := s.GlobalToLocal(pos)
	assert.InDelta(t, 3.5, l0, 1e-12)
	assert.InDelta(t, -1.25, l1, 1e-12)
	assert.InDelta(t, 0.0, off, 1e-12)
}

func TestParametersPosition(t *testing.T) {
	t.Parallel()

	t.Run("perigee with zero impact sits at reference", func(t *testing.T) {
		t.Parallel()
		p := Parameters{
			Surface: NewPerigeeSurface(r3.Vec{X: 1, Y: 2, Z: 3}),
			Phi:     0.3, Theta: math.Pi / 2,
		}
		pos := p.Position()
		assert.InDelta(t, 1, pos.X, 1e-12)
		assert.InDelta(t, 2, pos.Y, 1e-12)
		assert.InDelta(t, 3, pos.Z, 1e-12)
	})

	t.Run("d0 offsets perpendicular to momentum azimuth", func(t *testing.T) {
		t.Parallel()
		p := Parameters{
			Surface: NewPerigeeSurface(r3.Vec{}),
			Loc0:    2.0, Loc1: 5.0,
			Phi: 0, Theta: math.Pi / 2,
		}
		pos := p.Position()
		assert.InDelta(t, 0, pos.X, 1e-12)
		assert.InDelta(t, 2.0, pos.Y, 1e-12)
		assert.InDelta(t, 5.0, pos.Z, 1e-12)

		// The impact point must be perpendicular to the direction.
		assert.InDelta(t, 0.0, r3.Dot(r3.Sub(pos, r3.Vec{Z: 5}), p.Direction()), 1e-12)
	})
}

func TestParametersDirection(t *testing.T) {
	t.Parallel()

	p := Parameters{Surface: NewPerigeeSurface(r3.Vec{}), Phi: 0.7, Theta: 1.1}
	d := p.Direction()
	assert.InDelta(t, 1.0, r3.Norm(d), 1e-12)
	assert.InDelta(t, math.Cos(1.1), d.Z, 1e-12)
}

func TestParametersValidate(t *testing.T) {
	t.Parallel()

	t.Run("nil surface rejected", func(t *testing.T) {
		t.Parallel()
		p := Parameters{}
		assert.Error(t, p.Validate())
	})

	t.Run("non-finite component rejected", func(t *testing.T) {
		t.Parallel()
		p := Parameters{Surface: NewPerigeeSurface(r3.Vec{}), Phi: math.NaN()}
		assert.Error(t, p.Validate())
	})

	t.Run("wrong covariance shape rejected", func(t *testing.T) {
		t.Parallel()
		p := Parameters{Surface: NewPerigeeSurface(r3.Vec{}), Cov: mat.NewSymDense(3, nil)}
		assert.Error(t, p.Validate())
	})

	t.Run("well formed parameters pass", func(t *testing.T) {
		t.Parallel()
		p := Parameters{
			Surface: NewPerigeeSurface(r3.Vec{}),
			Theta:   math.Pi / 2, QOverP: 0.5,
			Cov: mat.NewSymDense(BoundDim, nil),
		}
		assert.NoError(t, p.Validate())
	})
}

func TestCloneCov(t *testing.T) {
	t.Parallel()

	cov := mat.NewSymDense(BoundDim, nil)
	cov.SetSym(0, 0, 2.5)
	p := Parameters{Surface: NewPerigeeSurface(r3.Vec{}), Cov: cov}

	clone := p.CloneCov()
	require.NotNil(t, clone)
	clone.SetSym(0, 0, 99)
	assert.Equal(t, 2.5, cov.At(0, 0))

	var bare Parameters
	assert.Nil(t, bare.CloneCov())
}
