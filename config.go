package dofdemo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/dofdemo/internal/color"
	"github.com/gogpu/dofdemo/internal/dof"
	"github.com/gogpu/dofdemo/internal/shader"
	"github.com/gogpu/dofdemo/internal/transform"
)

// Limits enforced by Config.Validate.
const (
	maxTargetSize = 16384
	maxGridSize   = 256
)

// Backends accepted in Config.Backend.
var Backends = []string{"auto", "noop", "software", "vulkan", "metal", "dx12", "gl"}

// Config is the file form of the demo settings. Zero-valued fields left
// out of a file keep their defaults.
type Config struct {
	Width         int      `toml:"width" yaml:"width"`
	Height        int      `toml:"height" yaml:"height"`
	Backend       string   `toml:"backend" yaml:"backend"`
	Frames        int      `toml:"frames" yaml:"frames"`
	FPS           float32  `toml:"fps" yaml:"fps"`
	Grid          int      `toml:"grid" yaml:"grid"`
	Spacing       float32  `toml:"spacing" yaml:"spacing"`
	ClearColor    [3]uint8 `toml:"clear_color" yaml:"clear_color"`
	SceneFormat   string   `toml:"scene_format" yaml:"scene_format"`
	PresentFormat string   `toml:"present_format" yaml:"present_format"`
	ShaderFormat  string   `toml:"shader_format" yaml:"shader_format"`

	Effect EffectConfig `toml:"effect" yaml:"effect"`
}

// EffectConfig sets the effect mode the demo starts in.
type EffectConfig struct {
	Mode       string  `toml:"mode" yaml:"mode"` // off, fixed, or variable
	Strength   float32 `toml:"strength" yaml:"strength"`
	FocusDepth float32 `toml:"focus_depth" yaml:"focus_depth"`
}

// DefaultConfig returns the headless defaults used by cmd/dofdemo.
func DefaultConfig() Config {
	return Config{
		Width:         1280,
		Height:        720,
		Backend:       "auto",
		Frames:        120,
		FPS:           60,
		Grid:          transform.DefaultCubeCount,
		Spacing:       transform.DefaultStep,
		ClearColor:    [3]uint8{255, 135, 60},
		SceneFormat:   "rgba8unorm",
		PresentFormat: "bgra8unorm",
		ShaderFormat:  "wgsl",
		Effect: EffectConfig{
			Mode:       "off",
			Strength:   1,
			FocusDepth: dof.DefaultFocusDepth,
		},
	}
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file over the
// defaults. Unknown keys are rejected. The result is validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate range-checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Width > maxTargetSize || c.Height <= 0 || c.Height > maxTargetSize {
		errs = append(errs, fmt.Errorf("size %dx%d out of range 1..%d", c.Width, c.Height, maxTargetSize))
	}
	if !validBackend(c.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(Backends, ", ")))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames %d must not be negative", c.Frames))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %g must be positive", c.FPS))
	}
	if c.Grid <= 0 || c.Grid > maxGridSize {
		errs = append(errs, fmt.Errorf("grid %d out of range 1..%d", c.Grid, maxGridSize))
	}
	if c.Spacing <= 0 {
		errs = append(errs, fmt.Errorf("spacing %g must be positive", c.Spacing))
	}
	if _, err := parseTextureFormat(c.SceneFormat); err != nil {
		errs = append(errs, fmt.Errorf("scene_format: %w", err))
	}
	if _, err := parseTextureFormat(c.PresentFormat); err != nil {
		errs = append(errs, fmt.Errorf("present_format: %w", err))
	}
	if _, err := shader.ParseFormat(c.ShaderFormat); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Effect.params(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options converts the file settings into demo options.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sceneFormat, _ := parseTextureFormat(c.SceneFormat)
	presentFormat, _ := parseTextureFormat(c.PresentFormat)
	shaderFormat, _ := shader.ParseFormat(c.ShaderFormat)
	return []Option{
		WithGridSize(c.Grid),
		WithSpacing(c.Spacing),
		WithClearColor(color.FromRGB8(c.ClearColor[0], c.ClearColor[1], c.ClearColor[2])),
		WithSceneFormat(sceneFormat),
		WithPresentFormat(presentFormat),
		WithShaderFormat(shaderFormat),
	}, nil
}

// InitialParams returns the effect parameters the demo starts with.
func (c Config) InitialParams() EffectParams {
	p, err := c.Effect.params()
	if err != nil {
		return DefaultEffectParams()
	}
	return p
}

func (e EffectConfig) params() (EffectParams, error) {
	p := EffectParams{FocusDepth: e.FocusDepth}
	switch strings.ToLower(e.Mode) {
	case "", "off":
	case "fixed":
		p.ActivateFixed = e.Strength
	case "variable":
		p.ActivateVariable = e.Strength
	default:
		return EffectParams{}, fmt.Errorf("unknown effect mode %q (want off, fixed, or variable)", e.Mode)
	}
	if e.Strength < 0 {
		return EffectParams{}, fmt.Errorf("effect strength %g must not be negative", e.Strength)
	}
	return p, nil
}

func validBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}

func parseTextureFormat(s string) (gputypes.TextureFormat, error) {
	switch strings.ToLower(s) {
	case "rgba8unorm":
		return gputypes.TextureFormatRGBA8Unorm, nil
	case "bgra8unorm":
		return gputypes.TextureFormatBGRA8Unorm, nil
	case "rgba8unorm-srgb":
		return gputypes.TextureFormatRGBA8UnormSrgb, nil
	case "bgra8unorm-srgb":
		return gputypes.TextureFormatBGRA8UnormSrgb, nil
	default:
		return gputypes.TextureFormatUndefined, fmt.Errorf("unsupported texture format %q (want rgba8unorm, bgra8unorm, or an -srgb variant)", s)
	}
}
