// Package coremath provides the scalar helpers shared by the transform
// pipeline and the post effect: clamping, remapping and interpolation.
//
// All functions operate on float32, the precision of the GPU constant blocks.
package coremath

import "github.com/chewxy/math32"

// Clamp limits x to the closed interval [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	return min(max(x, lo), hi)
}

// Saturate clamps x to [0, 1]. NaN saturates to 0.
func Saturate(x float32) float32 {
	if math32.IsNaN(x) {
		return 0
	}
	return Clamp(x, 0, 1)
}

// Remap returns the position of x within [x0, x1] as a fraction in [0, 1].
// Values outside the interval are clamped to the nearest end. The result is
// in [0, 1] for every input: an empty interval gives 0 up to x0 and 1 above
// it, and a NaN argument gives 0.
func Remap(x0, x1, x float32) float32 {
	return Saturate((x - x0) / (x1 - x0))
}

// Lerp interpolates linearly between x0 and x1.
//
// The weighted form is exact at both ends: Lerp(a, b, 0) == a and
// Lerp(a, b, 1) == b for all finite a and b.
func Lerp(x0, x1, s float32) float32 {
	return (1-s)*x0 + s*x1
}
