package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dofdemo/internal/dof"
)

// Presenter supplies the target each frame is composited into and shows it
// once the frame is submitted.
type Presenter interface {
	// Acquire returns the presentation target for the next frame.
	Acquire() (*RenderTarget, error)

	// Present shows the most recently acquired target.
	Present() error

	// Discard gives back an acquired target without presenting it.
	Discard()

	// Recycle destroys what earlier presented targets left behind. Frame
	// calls it only once the submissions that used them have completed.
	Recycle()

	// Size returns the presentation size in pixels.
	Size() (width, height uint32)

	// Format returns the presentation texture format.
	Format() gputypes.TextureFormat
}

// Frame sequences the scene pass and the post pass for one presented image.
// At most one frame is in flight: Render waits for the previous submission
// before recording.
type Frame struct {
	device    hal.Device
	queue     hal.Queue
	presenter Presenter

	scene *ScenePass
	post  *PostPass

	pending      hal.CommandBuffer
	pendingIndex uint64
	count        uint64
}

// NewFrame builds both passes. A zero size in cfg takes the presenter size.
func NewFrame(device hal.Device, queue hal.Queue, presenter Presenter, cfg SceneConfig) (*Frame, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg.Width, cfg.Height = presenter.Size()
	}
	scene, err := NewScenePass(device, queue, cfg)
	if err != nil {
		return nil, fmt.Errorf("create scene pass: %w", err)
	}
	post, err := NewPostPass(device, queue, scene.Color(), scene.Depth(), presenter.Format(), cfg.ShaderFormat)
	if err != nil {
		scene.Destroy()
		return nil, fmt.Errorf("create post pass: %w", err)
	}
	return &Frame{
		device:    device,
		queue:     queue,
		presenter: presenter,
		scene:     scene,
		post:      post,
	}, nil
}

// Scene returns the scene pass.
func (f *Frame) Scene() *ScenePass { return f.scene }

// Post returns the post-effect pass.
func (f *Frame) Post() *PostPass { return f.post }

// Count returns the number of frames submitted.
func (f *Frame) Count() uint64 { return f.count }

// Render records, submits, and presents one frame at time t.
func (f *Frame) Render(t float32, params dof.Params) error {
	if err := f.wait(); err != nil {
		return err
	}

	dest, err := f.presenter.Acquire()
	if err != nil {
		return fmt.Errorf("acquire presentation target: %w", err)
	}

	encoder, err := f.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame_encoder"})
	if err != nil {
		f.presenter.Discard()
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		f.presenter.Discard()
		return fmt.Errorf("begin encoding: %w", err)
	}

	if err := f.record(encoder, dest, t, params); err != nil {
		encoder.DiscardEncoding()
		f.presenter.Discard()
		return err
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		f.presenter.Discard()
		return fmt.Errorf("end encoding: %w", err)
	}
	idx, err := f.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		f.device.FreeCommandBuffer(cmdBuf)
		f.presenter.Discard()
		return fmt.Errorf("submit: %w", err)
	}
	f.pending = cmdBuf
	f.pendingIndex = idx
	f.count++

	if err := f.presenter.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// record encodes the scene pass, the bind-state handoff, and the post pass.
// The scene targets are always left Unbound, including on error.
func (f *Frame) record(encoder hal.CommandEncoder, dest *RenderTarget, t float32, params dof.Params) error {
	color, depth := f.scene.Color(), f.scene.Depth()
	defer func() {
		color.Release()
		depth.Release()
	}()

	if err := errors.Join(color.BindWritable(), depth.BindWritable()); err != nil {
		return err
	}
	if err := f.scene.Render(encoder, t); err != nil {
		return fmt.Errorf("scene pass: %w", err)
	}

	color.Release()
	depth.Release()
	if err := errors.Join(color.BindReadable(), depth.BindReadable()); err != nil {
		return err
	}
	transitionTargets(encoder, gputypes.TextureUsageRenderAttachment, gputypes.TextureUsageTextureBinding, color, depth)

	w, h := f.presenter.Size()
	if err := f.post.Run(encoder, color, depth, dest, w, h, t, params); err != nil {
		return fmt.Errorf("post pass: %w", err)
	}

	// Back to attachment usage for the next frame's scene pass.
	transitionTargets(encoder, gputypes.TextureUsageTextureBinding, gputypes.TextureUsageRenderAttachment, color, depth)
	return nil
}

// ReadScene waits for the last submitted frame and reads back the scene
// color target as RGBA and the scene depth target as one value per pixel.
func (f *Frame) ReadScene() (*image.RGBA, []float32, error) {
	if err := f.wait(); err != nil {
		return nil, nil, err
	}
	color, err := readColor(f.device, f.queue, f.scene.Color())
	if err != nil {
		return nil, nil, fmt.Errorf("read scene color: %w", err)
	}
	depth, err := readDepth(f.device, f.queue, f.scene.Depth())
	if err != nil {
		return nil, nil, fmt.Errorf("read scene depth: %w", err)
	}
	return color, depth, nil
}

// wait blocks until the previous submission has completed, frees its
// command buffer, and lets the presenter recycle the targets it used.
func (f *Frame) wait() error {
	if f.pending == nil {
		return nil
	}
	if f.queue.PollCompleted() < f.pendingIndex {
		if err := f.device.WaitIdle(); err != nil {
			return fmt.Errorf("wait for previous frame: %w", err)
		}
	}
	f.device.FreeCommandBuffer(f.pending)
	f.pending = nil
	f.presenter.Recycle()
	return nil
}

// Destroy waits for the GPU and releases both passes. Safe to call twice.
func (f *Frame) Destroy() {
	if err := f.wait(); err != nil {
		slogger().Warn("frame teardown: wait failed", "err", err)
	}
	f.post.Destroy()
	f.scene.Destroy()
}
