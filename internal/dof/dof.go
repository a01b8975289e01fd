// Package dof is the CPU reference of the depth-of-field post effect.
//
// It mirrors post_effect.wgsl tap for tap. Demo.Reference runs it on scene
// color and depth read back from the GPU, which is what dofdemo -reference
// saves: exact pass-through when both strengths are zero, otherwise a disc
// blur whose radius depends on the effect mode and, in variable mode, on the
// distance from the focus plane.
package dof

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/gogpu/dofdemo/internal/coremath"
	"github.com/gogpu/dofdemo/internal/parallel"
	"github.com/gogpu/dofdemo/internal/transform"
)

// Effect tuning shared with post_effect.wgsl.
const (
	FocusRange     float32 = 50
	FixedRadius    float32 = 1.5
	VariableRadius float32 = 4
	KernelExtent           = 3
)

// DefaultFocusDepth is the focus distance the demo starts with and returns
// to on reset.
const DefaultFocusDepth float32 = 100

// Params is the post-effect constant block: {time, fixed, variable, focus}.
type Params struct {
	Time             float32
	ActivateFixed    float32
	ActivateVariable float32
	FocusDepth       float32
}

// PassThrough reports whether both effect strengths are zero, in which case
// the effect copies the scene color unchanged.
func (p Params) PassThrough() bool {
	return p.ActivateFixed == 0 && p.ActivateVariable == 0
}

// LinearizeDepth converts a [0, 1] depth-buffer value to view distance.
func LinearizeDepth(d float32) float32 {
	const n, f = transform.NearPlane, transform.FarPlane
	return n * f / (f - d*(f-n))
}

// BlurRadius returns the blur radius in pixels for a fragment with the
// given depth-buffer value.
func BlurRadius(depth float32, p Params) float32 {
	fixed := max(p.ActivateFixed, 0)
	variable := max(p.ActivateVariable, 0)
	focus := coremath.Saturate(math32.Abs(LinearizeDepth(depth)-p.FocusDepth) / FocusRange)
	return fixed*FixedRadius + variable*focus*VariableRadius
}

// Kernel returns the disc tap offsets in units of the blur radius, in the
// order the shader visits them.
func Kernel() [][2]float32 {
	var taps [][2]float32
	for y := -KernelExtent; y <= KernelExtent; y++ {
		for x := -KernelExtent; x <= KernelExtent; x++ {
			ox := float32(x) / KernelExtent
			oy := float32(y) / KernelExtent
			if ox*ox+oy*oy <= 1 {
				taps = append(taps, [2]float32{ox, oy})
			}
		}
	}
	return taps
}

// Composite applies the effect to src using the per-pixel depth values and
// writes the result to dst. All three must have the same dimensions.
func Composite(dst, src *image.RGBA, depth []float32, p Params) error {
	return CompositeOn(nil, dst, src, depth, p)
}

// minBandRows keeps bands large enough that scheduling stays cheap.
const minBandRows = 16

// CompositeOn is Composite with rows spread over pool. A nil pool runs on
// the calling goroutine. The output does not depend on the pool.
func CompositeOn(pool *parallel.WorkerPool, dst, src *image.RGBA, depth []float32, p Params) error {
	b := src.Bounds()
	if dst.Bounds().Size() != b.Size() {
		return fmt.Errorf("dof: dst size %v does not match src size %v", dst.Bounds().Size(), b.Size())
	}
	w, h := b.Dx(), b.Dy()
	if len(depth) != w*h {
		return fmt.Errorf("dof: depth has %d values, want %d", len(depth), w*h)
	}

	c := compositor{dst: dst, src: src, depth: depth, params: p, w: w, h: h}
	if !p.PassThrough() {
		c.taps = Kernel()
	}
	pool.Rows(h, minBandRows, c.rows)
	return nil
}

type compositor struct {
	dst, src *image.RGBA
	depth    []float32
	params   Params
	taps     [][2]float32
	w, h     int
}

// rows writes output rows [y0, y1).
func (c *compositor) rows(y0, y1 int) {
	sb, db := c.src.Bounds(), c.dst.Bounds()
	for y := y0; y < y1; y++ {
		for x := 0; x < c.w; x++ {
			in := c.src.RGBAAt(sb.Min.X+x, sb.Min.Y+y)
			if c.taps == nil {
				c.dst.SetRGBA(db.Min.X+x, db.Min.Y+y, in)
				continue
			}
			radius := BlurRadius(c.depth[y*c.w+x], c.params)
			if radius < 0.5 {
				c.dst.SetRGBA(db.Min.X+x, db.Min.Y+y, in)
				continue
			}
			u := (float32(x) + 0.5) / float32(c.w)
			v := (float32(y) + 0.5) / float32(c.h)
			var sum [4]float32
			for _, o := range c.taps {
				s := sampleBilinear(c.src, u+o[0]*radius/float32(c.w), v+o[1]*radius/float32(c.h))
				for i := range sum {
					sum[i] += s[i]
				}
			}
			n := float32(len(c.taps))
			c.dst.SetRGBA(db.Min.X+x, db.Min.Y+y, color.RGBA{
				R: unorm8(sum[0] / n),
				G: unorm8(sum[1] / n),
				B: unorm8(sum[2] / n),
				A: unorm8(sum[3] / n),
			})
		}
	}
}

// sampleBilinear samples src at normalized coordinates with clamp-to-edge
// addressing and linear filtering, returning unorm channels in [0, 1].
func sampleBilinear(src *image.RGBA, u, v float32) [4]float32 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	fx := u*float32(w) - 0.5
	fy := v*float32(h) - 0.5
	x0 := math32.Floor(fx)
	y0 := math32.Floor(fy)
	tx := fx - x0
	ty := fy - y0

	c00 := texel(src, int(x0), int(y0))
	c10 := texel(src, int(x0)+1, int(y0))
	c01 := texel(src, int(x0), int(y0)+1)
	c11 := texel(src, int(x0)+1, int(y0)+1)

	var out [4]float32
	for i := range out {
		top := coremath.Lerp(c00[i], c10[i], tx)
		bottom := coremath.Lerp(c01[i], c11[i], tx)
		out[i] = coremath.Lerp(top, bottom, ty)
	}
	return out
}

func texel(src *image.RGBA, x, y int) [4]float32 {
	b := src.Bounds()
	x = min(max(x, 0), b.Dx()-1)
	y = min(max(y, 0), b.Dy()-1)
	c := src.RGBAAt(b.Min.X+x, b.Min.Y+y)
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

func unorm8(v float32) uint8 {
	return uint8(coremath.Saturate(v)*255 + 0.5)
}
