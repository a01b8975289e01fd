// Command dofdemo renders the depth-of-field cube grid headlessly.
//
// It runs a fixed number of frames on the chosen HAL backend, replays
// scripted key presses, optionally saves the last frame and its CPU
// reference, and exits non-zero if any GPU object outlives the demo.
//
// Usage:
//
//	dofdemo -backend noop -frames 120 -keys F@30,V@60,Up@61 -capture out.png -reference ref.png
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"
	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/dofdemo"
)

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("dofdemo: %v", err)
	}
}

func run(args []string) error {
	def := dofdemo.DefaultConfig()
	fs := flag.NewFlagSet("dofdemo", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "TOML or YAML settings file")
		backend    = fs.String("backend", def.Backend, "HAL backend: auto, noop, software, vulkan, metal, dx12, gl")
		width      = fs.Int("width", def.Width, "target width")
		height     = fs.Int("height", def.Height, "target height")
		frames     = fs.Int("frames", def.Frames, "frames to render")
		fps        = fs.Float64("fps", float64(def.FPS), "animation frames per second")
		grid       = fs.Int("grid", def.Grid, "cubes per grid side")
		shaderFmt  = fs.String("shader", def.ShaderFormat, "shader module format: wgsl or spirv")
		keys       = fs.String("keys", "", "scripted key presses, e.g. F@10,V@20,Up@21")
		capture    = fs.String("capture", "", "save the last frame (.png, .bmp, .tiff)")
		reference  = fs.String("reference", "", "save the CPU-composited last frame (.png, .bmp, .tiff)")
		quiet      = fs.Bool("q", false, "hide the progress bar")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := dofdemo.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// Flags given on the command line win over the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "frames":
			cfg.Frames = *frames
		case "fps":
			cfg.FPS = float32(*fps)
		case "grid":
			cfg.Grid = *grid
		case "shader":
			cfg.ShaderFormat = *shaderFmt
		}
	})
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	dofdemo.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	script, err := parseKeyScript(*keys)
	if err != nil {
		return err
	}

	gpu, err := openDevice(cfg.Backend)
	if err != nil {
		return err
	}
	defer gpu.Close()
	dofdemo.Logger().Info("device opened", "backend", cfg.Backend, "adapter", gpu.adapter)

	demo, err := dofdemo.New(gpu.device, gpu.queue, uint32(cfg.Width), uint32(cfg.Height), opts...)
	if err != nil {
		return err
	}

	controller := dofdemo.NewKeyController()
	controller.Set(cfg.InitialParams())
	controller.Attach(script)

	bar := progressbar.NewOptions(cfg.Frames,
		progressbar.OptionSetDescription(controller.Snapshot().Title()),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(!*quiet),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	controller.OnChange = func(p dofdemo.EffectParams) { bar.Describe(p.Title()) }

	renderErr := renderLoop(demo, controller, script, bar, cfg)
	_ = bar.Finish()

	var captured *image.RGBA
	if renderErr == nil && *capture != "" {
		captured, renderErr = captureTo(demo, *capture)
	}
	if renderErr == nil && *reference != "" {
		renderErr = referenceTo(demo, *reference, captured)
	}

	closeErr := demo.Close()
	if closeErr == nil {
		fmt.Fprintf(os.Stderr, "%d frames, %s, no live GPU objects\n", demo.Frames(), demo.Title())
	}
	return errors.Join(renderErr, closeErr)
}

func renderLoop(demo *dofdemo.Demo, controller *dofdemo.KeyController, script *keyScript, bar *progressbar.ProgressBar, cfg dofdemo.Config) error {
	clock := dofdemo.NewFixedStepClock(cfg.FPS)
	for frame := 0; frame < cfg.Frames; frame++ {
		script.advance(frame)
		if controller.QuitRequested() {
			dofdemo.Logger().Info("quit requested", "frame", frame)
			return nil
		}
		if err := demo.RenderFrame(clock.Elapsed(), controller.Snapshot()); err != nil {
			return err
		}
		clock.Advance()
		_ = bar.Add(1)
	}
	return nil
}

func captureTo(demo *dofdemo.Demo, path string) (*image.RGBA, error) {
	img, err := demo.Capture()
	if err != nil {
		return nil, err
	}
	if err := saveImage(path, img); err != nil {
		return nil, err
	}
	dofdemo.Logger().Info("frame saved", "path", path)
	return img, nil
}

// referenceTo saves the CPU composite of the last frame. When the GPU frame
// was captured too, the largest per-channel difference is logged.
func referenceTo(demo *dofdemo.Demo, path string, captured *image.RGBA) error {
	img, err := demo.Reference()
	if err != nil {
		return err
	}
	if err := saveImage(path, img); err != nil {
		return err
	}
	dofdemo.Logger().Info("reference saved", "path", path)
	if captured != nil {
		dofdemo.Logger().Info("reference compared", "max_diff", maxChannelDiff(captured, img))
	}
	return nil
}

// maxChannelDiff returns the largest absolute difference between matching
// channels of a and b, or -1 if their sizes differ.
func maxChannelDiff(a, b *image.RGBA) int {
	if a.Bounds().Size() != b.Bounds().Size() {
		return -1
	}
	diff := 0
	for y := 0; y < a.Bounds().Dy(); y++ {
		ra := a.Pix[y*a.Stride : y*a.Stride+a.Bounds().Dx()*4]
		rb := b.Pix[y*b.Stride : y*b.Stride+b.Bounds().Dx()*4]
		for i := range ra {
			d := int(ra[i]) - int(rb[i])
			diff = max(diff, d, -d)
		}
	}
	return diff
}

// device is an opened HAL device with the instance that owns it.
type device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string
}

func (d *device) Close() {
	d.device.Destroy()
	d.instance.Destroy()
}

// openDevice opens the first usable adapter of the named backend,
// preferring discrete and integrated GPUs.
func openDevice(name string) (*device, error) {
	backend, err := selectBackend(name)
	if err != nil {
		return nil, err
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", name, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("no %s adapters found", name)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &device{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		adapter:  selected.Info.Name,
	}, nil
}

// selectBackend maps a backend name to a HAL backend. The noop and software
// backends share a variant in the registry, so they are constructed directly.
func selectBackend(name string) (hal.Backend, error) {
	var variant gputypes.Backend
	switch name {
	case "auto":
		return hal.SelectBestBackend()
	case "noop":
		return noop.API{}, nil
	case "software":
		return software.API{}, nil
	case "vulkan":
		variant = gputypes.BackendVulkan
	case "metal":
		variant = gputypes.BackendMetal
	case "dx12":
		variant = gputypes.BackendDX12
	case "gl":
		variant = gputypes.BackendGL
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%s backend not available on this platform", name)
	}
	return backend, nil
}
