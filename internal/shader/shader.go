// Package shader holds the demo's WGSL programs and turns them into
// validated shader modules.
//
// Sources are embedded and may pull shared code in with a line of the form
//
//	#include "common.wgsl"
//
// Compilation runs the naga front end (parse, lower, validate), checks the
// required entry points and generates SPIR-V, so every failure surfaces as
// a *CompilationError at initialization rather than inside a backend.
package shader

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dofdemo/internal/cache"
)

//go:embed wgsl/*.wgsl
var sources embed.FS

// Embedded shader files.
const (
	SceneFile      = "scene.wgsl"
	PostEffectFile = "post_effect.wgsl"
	CommonFile     = "common.wgsl"
)

// Entry point names shared by both programs.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// FS returns the embedded shader directory.
func FS() fs.FS {
	sub, err := fs.Sub(sources, "wgsl")
	if err != nil {
		// fs.Sub only fails for an invalid path literal.
		panic(err)
	}
	return sub
}

// Stage identifies a programmable pipeline stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

func (s Stage) ir() ir.ShaderStage {
	if s == StageFragment {
		return ir.StageFragment
	}
	return ir.StageVertex
}

// EntryPoint names a function a pipeline will call.
type EntryPoint struct {
	Name  string
	Stage Stage
}

// Format selects which representation is handed to the HAL.
type Format uint8

const (
	// FormatWGSL passes the resolved WGSL text; every backend accepts it.
	FormatWGSL Format = iota
	// FormatSPIRV passes the pre-generated SPIR-V words, skipping the
	// backend's own front end on Vulkan and the software rasterizer.
	FormatSPIRV
)

func (f Format) String() string {
	switch f {
	case FormatWGSL:
		return "wgsl"
	case FormatSPIRV:
		return "spirv"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat converts a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "wgsl":
		return FormatWGSL, nil
	case "spirv":
		return FormatSPIRV, nil
	default:
		return FormatWGSL, fmt.Errorf("unknown shader format %q", s)
	}
}

// Program is a validated shader module ready for CreateShaderModule.
type Program struct {
	Label       string
	WGSL        string
	SPIRV       []uint32
	EntryPoints []EntryPoint
}

// Source returns the HAL shader source in the requested format.
func (p *Program) Source(format Format) hal.ShaderSource {
	if format == FormatSPIRV {
		return hal.ShaderSource{SPIRV: p.SPIRV}
	}
	return hal.ShaderSource{WGSL: p.WGSL}
}

// Compile validates WGSL source and checks that every required entry point
// exists with the expected stage.
func Compile(label, source string, required ...EntryPoint) (*Program, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, newCompilationError(label, PhaseParse, required, err.Error())
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, newCompilationError(label, PhaseLower, required, err.Error())
	}

	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, newCompilationError(label, PhaseValidate, required, err.Error())
	}
	if len(verrs) > 0 {
		return nil, newCompilationError(label, PhaseValidate, required, joinValidation(verrs))
	}

	for _, ep := range required {
		if err := checkEntryPoint(module, ep); err != nil {
			return nil, &CompilationError{
				Label:      label,
				Phase:      PhaseEntryPoint,
				EntryPoint: ep.Name,
				Stage:      ep.Stage,
				Diagnostic: err.Error(),
			}
		}
	}

	spirvBytes, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, newCompilationError(label, PhaseSPIRV, required, err.Error())
	}

	return &Program{
		Label:       label,
		WGSL:        source,
		SPIRV:       words(spirvBytes),
		EntryPoints: append([]EntryPoint(nil), required...),
	}, nil
}

// CompileFile loads name from fsys, resolves includes and compiles it.
func CompileFile(fsys fs.FS, name string, required ...EntryPoint) (*Program, error) {
	src, err := Load(fsys, name)
	if err != nil {
		return nil, newCompilationError(name, PhaseInclude, required, err.Error())
	}
	return Compile(name, src, required...)
}

// programs memoizes Embedded. Programs are immutable once built.
var programs = cache.New[string, *Program](8)

// Embedded returns the compiled embedded program name with the render entry
// points checked. Each file is compiled once per process.
func Embedded(name string) (*Program, error) {
	return programs.GetOrCreate(name, func() (*Program, error) {
		return CompileFile(FS(), name, RenderEntryPoints()...)
	})
}

// EmbeddedStats reports how often Embedded was served from memory.
func EmbeddedStats() cache.Stats { return programs.Stats() }

// RenderEntryPoints is the vertex+fragment pair every program here exposes.
func RenderEntryPoints() []EntryPoint {
	return []EntryPoint{
		{Name: VertexEntry, Stage: StageVertex},
		{Name: FragmentEntry, Stage: StageFragment},
	}
}

func checkEntryPoint(module *ir.Module, want EntryPoint) error {
	for _, ep := range module.EntryPoints {
		if ep.Name != want.Name {
			continue
		}
		if ep.Stage != want.Stage.ir() {
			return fmt.Errorf("entry point %q is not a %s shader", want.Name, want.Stage)
		}
		return nil
	}
	return fmt.Errorf("entry point %q not found", want.Name)
}

// words converts little-endian SPIR-V bytes to 32-bit words.
func words(b []byte) []uint32 {
	code := make([]uint32, len(b)/4)
	for i := range code {
		code[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return code
}
