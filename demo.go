package dofdemo

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dofdemo/internal/dof"
	"github.com/gogpu/dofdemo/internal/gpu"
	"github.com/gogpu/dofdemo/internal/parallel"
)

var (
	// ErrClosed is returned by Demo methods called after Close.
	ErrClosed = errors.New("dofdemo: demo is closed")

	// ErrNoCapture is returned by Capture when the demo presents to a surface.
	ErrNoCapture = errors.New("dofdemo: capture needs an offscreen demo")

	// ErrLeaked is returned by Close when GPU objects outlive the demo.
	ErrLeaked = errors.New("dofdemo: GPU objects still live after close")

	// ErrNoFrame is returned by Reference before the first frame.
	ErrNoFrame = errors.New("dofdemo: no frame rendered yet")
)

// presenter is a gpu.Presenter the demo owns.
type presenter interface {
	gpu.Presenter
	Destroy()
}

// Demo owns every GPU object of the depth-of-field demo: the cube scene
// targets, both pipelines, and the presentation target. All objects are
// created through a tracking device so leaks are visible through Live.
//
// Demo is safe for concurrent use; frames are serialized.
type Demo struct {
	mu        sync.Mutex
	device    *gpu.TrackingDevice
	queue     hal.Queue
	presenter presenter
	offscreen *gpu.OffscreenPresenter
	frame     *gpu.Frame
	title     string
	params    dof.Params // of the last submitted frame
	pool      *parallel.WorkerPool
	closed    bool
}

// New creates a w×h demo on an existing HAL device. Without WithSurface the
// result is presented into an offscreen texture readable with Capture.
func New(device hal.Device, queue hal.Queue, w, h uint32, opts ...Option) (*Demo, error) {
	if device == nil || queue == nil {
		return nil, errors.New("dofdemo: nil device or queue")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}

	d := &Demo{device: gpu.NewTrackingDevice(device), queue: queue}
	if err := d.init(w, h, o); err != nil {
		d.destroy()
		if n := d.device.LiveCount(); n != 0 {
			Logger().Warn("dofdemo: objects live after failed init", "count", n)
		}
		return nil, err
	}
	Logger().Info("dofdemo: demo created",
		"width", w, "height", h,
		"grid", o.grid.Count,
		"shader", o.shaderFormat.String(),
		"objects", d.device.LiveCount())
	return d, nil
}

// NewFromProvider creates a demo on a device shared by a windowing host,
// e.g. a gogpu application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. If it also reports a
// surface format, as gpucontext.DeviceProvider does, that format is used
// for the presentation target.
func NewFromProvider(provider any, w, h uint32, opts ...Option) (*Demo, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("dofdemo: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("dofdemo: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("dofdemo: provider HalQueue is not hal.Queue")
	}
	if fp, ok := provider.(interface {
		SurfaceFormat() gputypes.TextureFormat
	}); ok {
		if f := fp.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
			opts = append([]Option{WithPresentFormat(f)}, opts...)
		}
	}
	return New(device, queue, w, h, opts...)
}

func (d *Demo) init(w, h uint32, o options) error {
	if o.surface != nil {
		sp, err := gpu.NewSurfacePresenter(d.device, d.queue, o.surface, w, h, o.presentFormat)
		if err != nil {
			return err
		}
		d.presenter = sp
	} else {
		op, err := gpu.NewOffscreenPresenter(d.device, d.queue, w, h, o.presentFormat)
		if err != nil {
			return err
		}
		d.presenter = op
		d.offscreen = op
	}

	cfg := gpu.DefaultSceneConfig(w, h)
	cfg.Grid = o.grid
	cfg.ClearColor = o.clearColor
	cfg.ColorFormat = o.sceneFormat
	cfg.ShaderFormat = o.shaderFormat

	frame, err := gpu.NewFrame(d.device, d.queue, d.presenter, cfg)
	if err != nil {
		return err
	}
	d.frame = frame
	return nil
}

// RenderFrame draws the animated grid at time seconds and composites it
// into the presentation target with the given effect parameters.
func (d *Demo) RenderFrame(time float32, params EffectParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if title := params.Title(); title != d.title {
		Logger().Debug("dofdemo: effect mode", "title", title)
		d.title = title
	}
	sp := params.shaderParams(time)
	if err := d.frame.Render(time, sp); err != nil {
		return fmt.Errorf("dofdemo: frame %d: %w", d.frame.Count(), err)
	}
	d.params = sp
	return nil
}

// Title returns the title of the most recently rendered mode.
func (d *Demo) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.title == "" {
		return DefaultEffectParams().Title()
	}
	return d.title
}

// Frames returns the number of frames submitted.
func (d *Demo) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frame == nil {
		return 0
	}
	return d.frame.Count()
}

// Size returns the presentation size in pixels.
func (d *Demo) Size() (width, height uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.presenter == nil {
		return 0, 0
	}
	return d.presenter.Size()
}

// Capture reads back the last presented image.
func (d *Demo) Capture() (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.offscreen == nil {
		return nil, ErrNoCapture
	}
	return d.offscreen.Capture()
}

// Reference recomputes the last frame's post effect on the CPU. The scene
// color and depth are read back from the GPU and composited with the same
// parameters, spread over a worker pool. With the effect off the result
// equals the scene color exactly.
func (d *Demo) Reference() (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.frame.Count() == 0 {
		return nil, ErrNoFrame
	}
	color, depth, err := d.frame.ReadScene()
	if err != nil {
		return nil, fmt.Errorf("dofdemo: reference: %w", err)
	}
	if d.pool == nil {
		d.pool = parallel.NewWorkerPool(0)
	}
	out := image.NewRGBA(color.Bounds())
	if err := dof.CompositeOn(d.pool, out, color, depth, d.params); err != nil {
		return nil, fmt.Errorf("dofdemo: reference: %w", err)
	}
	Logger().Debug("dofdemo: reference composited",
		"frame", d.frame.Count(), "workers", d.pool.Workers(), "pass_through", d.params.PassThrough())
	return out, nil
}

// Live returns the number of GPU objects currently alive per kind.
// Kinds with no live objects are omitted.
func (d *Demo) Live() map[string]int {
	live := d.device.Live()
	out := make(map[string]int, len(live))
	for kind, n := range live {
		out[kind.String()] = n
	}
	return out
}

// LiveCount returns the total number of live GPU objects.
func (d *Demo) LiveCount() int { return d.device.LiveCount() }

// Report returns one "live <kind>: <n>" line per kind with live objects.
func (d *Demo) Report() string { return d.device.Report() }

// Close waits for the GPU and destroys everything the demo created.
// It returns an error wrapping ErrLeaked if any object survives.
// Calling Close more than once is safe.
func (d *Demo) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.destroy()

	if n := d.device.LiveCount(); n != 0 {
		report := strings.TrimSpace(d.device.Report())
		Logger().Warn("dofdemo: objects live after close", "count", n, "report", report)
		return fmt.Errorf("%w: %s", ErrLeaked, strings.ReplaceAll(report, "\n", ", "))
	}
	Logger().Info("dofdemo: demo closed")
	return nil
}

// destroy tears down in reverse creation order.
func (d *Demo) destroy() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.frame != nil {
		d.frame.Destroy()
	}
	if d.presenter != nil {
		d.presenter.Destroy()
	}
}
