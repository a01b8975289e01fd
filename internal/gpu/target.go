package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindState tracks how a render target is currently bound to the pipeline.
type BindState uint8

const (
	// Unbound means the target is neither an attachment nor a shader input.
	Unbound BindState = iota

	// Writable means the target is bound as a render-pass attachment.
	Writable

	// Readable means the target is bound as a shader resource.
	Readable
)

// String returns the string representation of BindState.
func (s BindState) String() string {
	switch s {
	case Unbound:
		return "Unbound"
	case Writable:
		return "Writable"
	case Readable:
		return "Readable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// RenderTarget pairs a texture with its attachment view and, for offscreen
// targets, a view the post effect samples. A target is never bound writable
// and readable at the same time: both binds require Unbound.
type RenderTarget struct {
	Label     string
	Texture   hal.Texture
	WriteView hal.TextureView
	ReadView  hal.TextureView
	Format    gputypes.TextureFormat
	Width     uint32
	Height    uint32

	state BindState
}

// NewExternalTarget wraps a texture owned elsewhere, typically a
// presentation image. It has no read view and cannot be bound readable.
func NewExternalTarget(label string, tex hal.Texture, view hal.TextureView, format gputypes.TextureFormat, w, h uint32) *RenderTarget {
	return &RenderTarget{
		Label:     label,
		Texture:   tex,
		WriteView: view,
		Format:    format,
		Width:     w,
		Height:    h,
	}
}

// State returns the current bind state.
func (t *RenderTarget) State() BindState { return t.state }

// BindWritable marks the target as a render-pass attachment.
func (t *RenderTarget) BindWritable() error {
	return t.transition(Writable)
}

// BindReadable marks the target as a shader input.
func (t *RenderTarget) BindReadable() error {
	if t.ReadView == nil {
		return &BindingViolation{Target: t.Label, From: t.state, To: Readable}
	}
	return t.transition(Readable)
}

// Release returns the target to Unbound. Releasing an unbound target is a no-op.
func (t *RenderTarget) Release() {
	t.state = Unbound
}

func (t *RenderTarget) transition(to BindState) error {
	if t.state != Unbound {
		return &BindingViolation{Target: t.Label, From: t.state, To: to}
	}
	t.state = to
	return nil
}

// isDepth reports whether the target holds a depth format.
func (t *RenderTarget) isDepth() bool {
	switch t.Format {
	case gputypes.TextureFormatDepth16Unorm,
		gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// transitionTargets records one usage barrier per target. This is a no-op
// on Metal, GLES, software, and noop backends.
func transitionTargets(encoder hal.CommandEncoder, from, to gputypes.TextureUsage, targets ...*RenderTarget) {
	barriers := make([]hal.TextureBarrier, 0, len(targets))
	for _, t := range targets {
		aspect := gputypes.TextureAspectAll
		if t.isDepth() {
			aspect = gputypes.TextureAspectDepthOnly
		}
		barriers = append(barriers, hal.TextureBarrier{
			Texture: t.Texture,
			Range:   hal.TextureRange{Aspect: aspect, MipLevelCount: 1, ArrayLayerCount: 1},
			Usage:   hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
		})
	}
	encoder.TransitionTextures(barriers)
}
