package dofdemo

import (
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dofdemo/internal/gpu"
	"github.com/gogpu/dofdemo/internal/shader"
	"github.com/gogpu/dofdemo/internal/transform"
)

// ShaderFormat selects the source handed to CreateShaderModule.
type ShaderFormat = shader.Format

// Shader source formats.
const (
	// ShaderWGSL passes validated WGSL text. Preferred by Vulkan, DX12, and Metal.
	ShaderWGSL = shader.FormatWGSL

	// ShaderSPIRV passes SPIR-V generated by naga. Preferred by the software backend.
	ShaderSPIRV = shader.FormatSPIRV
)

// Option configures a Demo during creation.
//
// Example:
//
//	demo, err := dofdemo.New(device, queue, 800, 600,
//	    dofdemo.WithGridSize(16),
//	    dofdemo.WithShaderFormat(dofdemo.ShaderSPIRV))
type Option func(*options)

// options holds optional configuration for Demo creation.
type options struct {
	grid          transform.Grid
	clearColor    gputypes.Color
	sceneFormat   gputypes.TextureFormat
	presentFormat gputypes.TextureFormat
	shaderFormat  ShaderFormat
	surface       hal.Surface
	logger        *slog.Logger
}

// defaultOptions returns the default demo options.
func defaultOptions() options {
	return options{
		grid:          transform.DefaultGrid(),
		clearColor:    gpu.DefaultClearColor,
		sceneFormat:   gputypes.TextureFormatRGBA8Unorm,
		presentFormat: gputypes.TextureFormatBGRA8Unorm,
		shaderFormat:  ShaderWGSL,
	}
}

// WithGridSize sets the number of cubes per grid side.
func WithGridSize(n int) Option {
	return func(o *options) {
		o.grid.Count = n
	}
}

// WithSpacing sets the distance between neighboring cube centers.
func WithSpacing(step float32) Option {
	return func(o *options) {
		o.grid.Step = step
	}
}

// WithClearColor sets the scene background color.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithSceneFormat sets the format of the offscreen scene color target.
func WithSceneFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.sceneFormat = f
	}
}

// WithPresentFormat sets the format of the offscreen presentation target.
// Ignored when presenting to a surface, which uses its own format.
func WithPresentFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.presentFormat = f
	}
}

// WithShaderFormat selects WGSL or SPIR-V shader modules.
func WithShaderFormat(f ShaderFormat) Option {
	return func(o *options) {
		o.shaderFormat = f
	}
}

// WithSurface presents into a window surface instead of an offscreen
// texture. The surface is configured with the present format and the
// demo size; the caller keeps ownership of the surface itself.
func WithSurface(s hal.Surface) Option {
	return func(o *options) {
		o.surface = s
	}
}

// WithLogger installs l as the package logger, as SetLogger does.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
