package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// OffscreenPresenter presents into a headless texture. The last frame can be
// read back with Capture.
type OffscreenPresenter struct {
	device hal.Device
	queue  hal.Queue
	res    *resourceSet
	target *RenderTarget
}

// NewOffscreenPresenter creates a w×h presentation texture of the given format.
func NewOffscreenPresenter(device hal.Device, queue hal.Queue, w, h uint32, format gputypes.TextureFormat) (*OffscreenPresenter, error) {
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("offscreen presenter: %w", hal.ErrZeroArea)
	}
	p := &OffscreenPresenter{device: device, queue: queue, res: newResourceSet(device)}
	target, err := p.res.renderTarget("present", format, w, h, gputypes.TextureUsageCopySrc)
	if err != nil {
		p.res.release()
		return nil, err
	}
	p.target = target
	return p, nil
}

// Acquire returns the single offscreen target.
func (p *OffscreenPresenter) Acquire() (*RenderTarget, error) { return p.target, nil }

// Present is a no-op: the image stays in the texture until the next frame.
func (p *OffscreenPresenter) Present() error { return nil }

// Discard is a no-op.
func (p *OffscreenPresenter) Discard() {}

// Recycle is a no-op: the offscreen target lives as long as the presenter.
func (p *OffscreenPresenter) Recycle() {}

// Size returns the target size.
func (p *OffscreenPresenter) Size() (uint32, uint32) { return p.target.Width, p.target.Height }

// Format returns the target format.
func (p *OffscreenPresenter) Format() gputypes.TextureFormat { return p.target.Format }

// Capture copies the presented image to a staging buffer, waits for the
// GPU, and returns it as RGBA.
func (p *OffscreenPresenter) Capture() (*image.RGBA, error) {
	return readColor(p.device, p.queue, p.target)
}

// Destroy releases the presentation texture. Safe to call twice.
func (p *OffscreenPresenter) Destroy() { p.res.release() }

// SurfacePresenter presents through a window surface.
type SurfacePresenter struct {
	device  hal.Device
	queue   hal.Queue
	surface hal.Surface
	config  hal.SurfaceConfiguration

	acquired *hal.AcquiredSurfaceTexture
	view     hal.TextureView

	// Views of presented images. The GPU may still be writing through
	// them until Recycle.
	retired []hal.TextureView
}

// NewSurfacePresenter configures surface for w×h FIFO presentation.
func NewSurfacePresenter(device hal.Device, queue hal.Queue, surface hal.Surface, w, h uint32, format gputypes.TextureFormat) (*SurfacePresenter, error) {
	cfg := hal.SurfaceConfiguration{
		Width:       w,
		Height:      h,
		Format:      format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: gputypes.PresentModeFifo,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	}
	if err := surface.Configure(device, &cfg); err != nil {
		return nil, fmt.Errorf("configure surface: %w", err)
	}
	return &SurfacePresenter{device: device, queue: queue, surface: surface, config: cfg}, nil
}

// Acquire takes the next swapchain image and wraps it as a render target.
func (p *SurfacePresenter) Acquire() (*RenderTarget, error) {
	if p.acquired != nil {
		p.Discard()
	}
	acq, err := p.surface.AcquireTexture(nil)
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	if acq.Suboptimal {
		slogger().Warn("surface texture is suboptimal")
	}
	view, err := p.device.CreateTextureView(acq.Texture, &hal.TextureViewDescriptor{
		Label:         "surface_view",
		Format:        p.config.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		p.surface.DiscardTexture(acq.Texture)
		return nil, &ResourceCreationError{Kind: KindTextureView, Label: "surface_view", Err: err}
	}
	p.acquired = acq
	p.view = view
	return NewExternalTarget("surface", acq.Texture, view, p.config.Format, p.config.Width, p.config.Height), nil
}

// Present queues the acquired image for display. Its view is kept until
// Recycle, since the frame that renders into it may still be executing.
func (p *SurfacePresenter) Present() error {
	if p.acquired == nil {
		return fmt.Errorf("present: no acquired surface texture")
	}
	err := p.queue.Present(p.surface, p.acquired.Texture, nil)
	if p.view != nil {
		p.retired = append(p.retired, p.view)
		p.view = nil
	}
	p.acquired = nil
	return err
}

// Recycle destroys the views of presented images.
func (p *SurfacePresenter) Recycle() {
	for _, v := range p.retired {
		p.device.DestroyTextureView(v)
	}
	p.retired = p.retired[:0]
}

// Discard returns the acquired image without presenting it. The image was
// never submitted, so its view is destroyed right away.
func (p *SurfacePresenter) Discard() {
	if p.acquired == nil {
		return
	}
	p.surface.DiscardTexture(p.acquired.Texture)
	p.releaseView()
	p.acquired = nil
}

func (p *SurfacePresenter) releaseView() {
	if p.view != nil {
		p.device.DestroyTextureView(p.view)
		p.view = nil
	}
}

// Size returns the configured surface size.
func (p *SurfacePresenter) Size() (uint32, uint32) { return p.config.Width, p.config.Height }

// Format returns the configured surface format.
func (p *SurfacePresenter) Format() gputypes.TextureFormat { return p.config.Format }

// Destroy discards any acquired image, waits for the GPU if presented views
// are still pending, and unconfigures the surface.
func (p *SurfacePresenter) Destroy() {
	p.Discard()
	if len(p.retired) > 0 {
		if err := p.device.WaitIdle(); err != nil {
			slogger().Warn("surface teardown: wait failed", "err", err)
		}
		p.Recycle()
	}
	p.surface.Unconfigure(p.device)
}
