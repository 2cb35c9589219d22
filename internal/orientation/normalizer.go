// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotOrthogonal is returned when a basis change is not a proper rotation
// or reflection (its transpose is not its inverse).
var ErrNotOrthogonal = errors.New("basis is not orthogonal")

// RawSample is one rotation reading in the sensor's native axis convention.
type RawSample struct {
	Rotation  [3][3]float64 `json:"rotation"` // row-major
	Timestamp time.Time     `json:"ts"`
}

// SwapYZ reconciles a Z-up sensor frame with the Y-up world frame by
// exchanging the Y and Z axes. It is its own inverse.
var SwapYZ = Transform{
	{1, 0, 0, 0},
	{0, 0, 1, 0},
	{0, 1, 0, 0},
	{0, 0, 0, 1},
}

// Normalizer converts sensor-frame rotations into the world frame by
// conjugating them with a fixed basis change B: Bᵗ·R·B.
type Normalizer struct {
	basis    Transform
	basisInv Transform
}

// NewNormalizer validates that basis is orthogonal and returns a Normalizer
// bound to it. The basis may be a reflection (det -1, as SwapYZ is): the
// conjugate of a proper rotation is still proper.
func NewNormalizer(basis Transform) (*Normalizer, error) {
	if basis.orthonormalityError() > 1e-6 {
		return nil, fmt.Errorf("normalizer: %w", ErrNotOrthogonal)
	}
	for i := 0; i < 3; i++ {
		if basis[i][3] != 0 || basis[3][i] != 0 {
			return nil, fmt.Errorf("normalizer: basis carries translation: %w", ErrNotOrthogonal)
		}
	}
	return &Normalizer{basis: basis, basisInv: basis.Transpose()}, nil
}

// Basis returns the basis change B.
func (n *Normalizer) Basis() Transform {
	return n.basis
}

// Normalize returns Bᵗ·R·B. Non-orthonormal input is re-orthonormalized
// first so the result is always a proper rotation.
func (n *Normalizer) Normalize(raw RawSample) Transform {
	r := FromRotationMatrix(raw.Rotation)
	if !r.IsProperRotation(driftTolerance) {
		r = r.Orthonormalize()
	}
	return n.basisInv.mul(r).Mul(n.basis)
}

// Denormalize maps a world-frame rotation back into the sensor frame: B·T·Bᵗ.
func (n *Normalizer) Denormalize(t Transform) Transform {
	return n.basis.mul(t).Mul(n.basisInv)
}
