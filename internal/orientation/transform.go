// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultTolerance is the comparison tolerance used by tests and by the
// orthonormality checks below.
const DefaultTolerance = 1e-9

// driftTolerance is how far the linear part may stray from orthonormal
// before Mul re-orthonormalizes the product.
const driftTolerance = 1e-6

// Transform is a 4x4 row-major homogeneous matrix restricted to rotation
// content: orthonormal linear 3x3 part, zero translation, bottom row (0,0,0,1).
//
// Transform is a value type; every operation returns a new Transform.
type Transform [4][4]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// FromRotationMatrix embeds a row-major 3x3 rotation into a homogeneous transform.
func FromRotationMatrix(m [3][3]float64) Transform {
	t := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[i][j]
		}
	}
	return t
}

// Linear returns the 3x3 rotation part.
func (t Transform) Linear() [3][3]float64 {
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = t[i][j]
		}
	}
	return m
}

// Mul returns t·o. If the product's linear part has drifted away from
// orthonormal it is re-orthonormalized.
func (t Transform) Mul(o Transform) Transform {
	out := t.mul(o)
	if out.orthonormalityError() > driftTolerance {
		return out.Orthonormalize()
	}
	return out
}

// mul is the plain matrix product. Intermediate products involving a
// reflection must not be re-orthonormalized, which would flip their sign.
func (t Transform) mul(o Transform) Transform {
	var out Transform
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += t[i][k] * o[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// Transpose returns the transpose of the full 4x4 matrix.
func (t Transform) Transpose() Transform {
	var out Transform
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = t[j][i]
		}
	}
	return out
}

// Inverse returns the inverse rotation. For a rotation-only transform this
// is the transpose of the linear part; translation stays zero.
func (t Transform) Inverse() Transform {
	out := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = t[j][i]
		}
	}
	return out
}

// Det returns the determinant of the linear 3x3 part.
func (t Transform) Det() float64 {
	r0, r1, r2 := t.rows()
	return r3.Dot(r0, r3.Cross(r1, r2))
}

// IsProperRotation reports whether the linear part is orthonormal with
// determinant +1, within tol.
func (t Transform) IsProperRotation(tol float64) bool {
	return t.orthonormalityError() <= tol && math.Abs(t.Det()-1) <= tol
}

// ApproxEqual compares every element of t and o within tol.
func (t Transform) ApproxEqual(o Transform, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(t[i][j]-o[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Orthonormalize returns the closest proper rotation obtained by
// Gram-Schmidt on the rows of the linear part. The third row is rebuilt
// as the cross product of the first two, which forces determinant +1.
// A degenerate input (zero or parallel rows) yields Identity.
func (t Transform) Orthonormalize() Transform {
	r0, r1, _ := t.rows()
	if r3.Norm(r0) < DefaultTolerance {
		return Identity()
	}
	x := r3.Unit(r0)
	y := r3.Sub(r1, r3.Scale(r3.Dot(r1, x), x))
	if r3.Norm(y) < DefaultTolerance {
		return Identity()
	}
	y = r3.Unit(y)
	z := r3.Cross(x, y)

	out := Identity()
	for i, r := range []r3.Vec{x, y, z} {
		out[i][0], out[i][1], out[i][2] = r.X, r.Y, r.Z
	}
	return out
}

// Apply rotates v by the linear part of t.
func (t Transform) Apply(v r3.Vec) r3.Vec {
	r0, r1, r2 := t.rows()
	return r3.Vec{X: r3.Dot(r0, v), Y: r3.Dot(r1, v), Z: r3.Dot(r2, v)}
}

func (t Transform) rows() (r3.Vec, r3.Vec, r3.Vec) {
	return r3.Vec{X: t[0][0], Y: t[0][1], Z: t[0][2]},
		r3.Vec{X: t[1][0], Y: t[1][1], Z: t[1][2]},
		r3.Vec{X: t[2][0], Y: t[2][1], Z: t[2][2]}
}

// orthonormalityError is max |L·Lᵗ - I| over the linear part.
func (t Transform) orthonormalityError() float64 {
	var worst float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var dot float64
			for k := 0; k < 3; k++ {
				dot += t[i][k] * t[j][k]
			}
			if i == j {
				dot -= 1
			}
			worst = math.Max(worst, math.Abs(dot))
		}
	}
	return worst
}

// RotationX returns a rotation of rad radians about the X axis.
func RotationX(rad float64) Transform {
	s, c := math.Sincos(rad)
	return FromRotationMatrix([3][3]float64{
		{1, 0, 0},
		{0, c, -s},
		{0, s, c},
	})
}

// RotationY returns a rotation of rad radians about the Y axis.
func RotationY(rad float64) Transform {
	s, c := math.Sincos(rad)
	return FromRotationMatrix([3][3]float64{
		{c, 0, s},
		{0, 1, 0},
		{-s, 0, c},
	})
}

// RotationZ returns a rotation of rad radians about the Z axis.
func RotationZ(rad float64) Transform {
	s, c := math.Sincos(rad)
	return FromRotationMatrix([3][3]float64{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	})
}
