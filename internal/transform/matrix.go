// Package transform builds the per-object and per-frame matrices of the
// scene pass.
//
// Matrices follow the Direct3D left-handed convention with row vectors:
// a point p is transformed as p·M, translation lives in the bottom row,
// and composition reads left to right (world·view·projection). Storage is
// golang.org/x/image/math/f32, row major.
package transform

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Mat4 is a 4x4 matrix in row major order.
type Mat4 = f32.Mat4

// Vec3 is a 3-component vector.
type Vec3 = f32.Vec3

// Vec4 is a 4-component vector.
type Vec4 = f32.Vec4

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a matrix that moves points by (x, y, z).
func Translation(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Mul returns the product a·b. Under the row-vector convention the
// result applies a first, then b.
func Mul(a, b Mat4) Mat4 {
	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[4*r+k] * b[4*k+c]
			}
			m[4*r+c] = sum
		}
	}
	return m
}

// Transpose returns the transpose of m.
func Transpose(m Mat4) Mat4 {
	var t Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			t[4*c+r] = m[4*r+c]
		}
	}
	return t
}

// TransformPoint returns the homogeneous product (p, 1)·m.
func TransformPoint(p Vec3, m Mat4) Vec4 {
	var v Vec4
	for c := 0; c < 4; c++ {
		v[c] = p[0]*m[c] + p[1]*m[4+c] + p[2]*m[8+c] + m[12+c]
	}
	return v
}

// LookAtLH returns a left-handed view matrix for a camera at eye looking
// at target.
func LookAtLH(eye, target, up Vec3) Mat4 {
	zaxis := normalize(sub(target, eye))
	xaxis := normalize(cross(up, zaxis))
	yaxis := cross(zaxis, xaxis)

	return Mat4{
		xaxis[0], yaxis[0], zaxis[0], 0,
		xaxis[1], yaxis[1], zaxis[1], 0,
		xaxis[2], yaxis[2], zaxis[2], 0,
		-dot(xaxis, eye), -dot(yaxis, eye), -dot(zaxis, eye), 1,
	}
}

// PerspectiveFovLH returns a left-handed perspective projection mapping
// view depth [near, far] to clip depth [0, 1].
func PerspectiveFovLH(fovY, aspect, near, far float32) Mat4 {
	yScale := 1 / math32.Tan(fovY/2)
	xScale := yScale / aspect
	q := far / (far - near)

	return Mat4{
		xScale, 0, 0, 0,
		0, yScale, 0, 0,
		0, 0, q, 1,
		0, 0, -q * near, 0,
	}
}

func sub(a, b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot(a, b Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v Vec3) Vec3 {
	l := math32.Sqrt(dot(v, v))
	if l == 0 {
		return v
	}
	return Vec3{v[0] / l, v[1] / l, v[2] / l}
}
