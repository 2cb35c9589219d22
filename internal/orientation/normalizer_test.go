package orientation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t Transform) RawSample {
	return RawSample{Rotation: t.Linear()}
}

func TestNormalizer_IdentityPassthrough(t *testing.T) {
	n, err := NewNormalizer(SwapYZ)
	require.NoError(t, err)

	got := n.Normalize(sample(Identity()))
	assert.True(t, got.ApproxEqual(Identity(), tol))
}

func TestNormalizer_Involution(t *testing.T) {
	n, err := NewNormalizer(SwapYZ)
	require.NoError(t, err)

	for name, r := range sampleRotations() {
		t.Run(name, func(t *testing.T) {
			back := n.Normalize(sample(n.Denormalize(r)))
			assert.True(t, back.ApproxEqual(r, tol), "got %v want %v", back, r)

			forth := n.Denormalize(n.Normalize(sample(r)))
			assert.True(t, forth.ApproxEqual(r, tol))
		})
	}
}

func TestNormalizer_PreservesProperness(t *testing.T) {
	n, err := NewNormalizer(SwapYZ)
	require.NoError(t, err)

	for name, r := range sampleRotations() {
		t.Run(name, func(t *testing.T) {
			got := n.Normalize(sample(r))
			assert.True(t, got.IsProperRotation(tol))
			assert.InDelta(t, 1.0, got.Det(), tol)
		})
	}
}

func TestNormalizer_SwapsVerticalAxis(t *testing.T) {
	n, err := NewNormalizer(SwapYZ)
	require.NoError(t, err)

	// The sensor reports heading changes about its Z (up) axis. In the
	// world frame the same motion is a turn about Y.
	sensorYaw := RotationZ(math.Pi / 2)
	got := n.Normalize(sample(sensorYaw))
	assert.True(t, got.ApproxEqual(RotationY(-math.Pi/2), tol), "got %v", got)
}

func TestNormalizer_IdentityBasisIsNoop(t *testing.T) {
	n, err := NewNormalizer(Identity())
	require.NoError(t, err)

	r := RotationX(0.5).Mul(RotationZ(0.25))
	assert.True(t, n.Normalize(sample(r)).ApproxEqual(r, tol))
}

func TestNormalizer_RejectsNonOrthogonalBasis(t *testing.T) {
	skew := Identity()
	skew[0][1] = 0.5

	_, err := NewNormalizer(skew)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotOrthogonal))

	shifted := Identity()
	shifted[0][3] = 1
	_, err = NewNormalizer(shifted)
	assert.ErrorIs(t, err, ErrNotOrthogonal)
}

func TestNormalizer_RepairsMalformedInput(t *testing.T) {
	n, err := NewNormalizer(SwapYZ)
	require.NoError(t, err)

	raw := sample(RotationZ(0.3))
	raw.Rotation[0][0] *= 1.01
	raw.Rotation[2][1] += 0.02

	got := n.Normalize(raw)
	assert.True(t, got.IsProperRotation(tol))
}
