package dofdemo

import (
	"log/slog"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/dofdemo/internal/gpu"
	"github.com/gogpu/dofdemo/internal/transform"
)

// TestDefaultOptions tests the values used when no option is given.
func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()

	if o.grid != transform.DefaultGrid() {
		t.Errorf("grid = %+v, want %+v", o.grid, transform.DefaultGrid())
	}
	if o.clearColor != gpu.DefaultClearColor {
		t.Errorf("clearColor = %+v, want %+v", o.clearColor, gpu.DefaultClearColor)
	}
	if o.sceneFormat != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("sceneFormat = %v, want RGBA8Unorm", o.sceneFormat)
	}
	if o.presentFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("presentFormat = %v, want BGRA8Unorm", o.presentFormat)
	}
	if o.shaderFormat != ShaderWGSL {
		t.Errorf("shaderFormat = %v, want wgsl", o.shaderFormat)
	}
	if o.surface != nil {
		t.Error("surface should default to nil (offscreen)")
	}
	if o.logger != nil {
		t.Error("logger should default to nil")
	}
}

// TestOptionsApply tests that every option sets its field.
func TestOptionsApply(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	bg := gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}

	o := defaultOptions()
	for _, opt := range []Option{
		WithGridSize(8),
		WithSpacing(3),
		WithClearColor(bg),
		WithSceneFormat(gputypes.TextureFormatBGRA8Unorm),
		WithPresentFormat(gputypes.TextureFormatRGBA8Unorm),
		WithShaderFormat(ShaderSPIRV),
		WithLogger(logger),
	} {
		opt(&o)
	}

	if o.grid.Count != 8 || o.grid.Step != 3 {
		t.Errorf("grid = %+v, want {8 3}", o.grid)
	}
	if o.clearColor != bg {
		t.Errorf("clearColor = %+v, want %+v", o.clearColor, bg)
	}
	if o.sceneFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("sceneFormat = %v", o.sceneFormat)
	}
	if o.presentFormat != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("presentFormat = %v", o.presentFormat)
	}
	if o.shaderFormat != ShaderSPIRV {
		t.Errorf("shaderFormat = %v, want spirv", o.shaderFormat)
	}
	if o.logger != logger {
		t.Error("logger not applied")
	}
}

// TestOptionsLastWins tests that later options override earlier ones.
func TestOptionsLastWins(t *testing.T) {
	o := defaultOptions()
	WithGridSize(4)(&o)
	WithGridSize(12)(&o)
	if o.grid.Count != 12 {
		t.Errorf("grid.Count = %d, want 12", o.grid.Count)
	}
	if o.grid.Step != transform.DefaultStep {
		t.Errorf("grid.Step = %g, want default %g", o.grid.Step, transform.DefaultStep)
	}
}
