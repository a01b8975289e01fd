package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dofdemo/internal/color"
	"github.com/gogpu/dofdemo/internal/shader"
	"github.com/gogpu/dofdemo/internal/transform"
)

const (
	// SceneConstantsSize is the byte size of the WGSL SceneConstants struct:
	// three mat4x4<f32>, one f32, padded to 16-byte alignment.
	SceneConstantsSize = 208

	// uniformSlotStride is the distance between per-cube constant blocks.
	// It matches the default MinUniformBufferOffsetAlignment.
	uniformSlotStride = 256
)

// DefaultClearColor is the displayed scene background, (255, 135, 60) opaque.
var DefaultClearColor = color.FromRGB8(255, 135, 60)

// SceneConfig describes the offscreen scene pass.
type SceneConfig struct {
	Width, Height uint32
	Grid          transform.Grid
	Camera        transform.Camera
	ClearColor    gputypes.Color // as displayed; linearized for sRGB targets
	ColorFormat   gputypes.TextureFormat
	DepthFormat   gputypes.TextureFormat
	ShaderFormat  shader.Format
}

// DefaultSceneConfig returns the 32×32 grid configuration for a w×h target.
func DefaultSceneConfig(w, h uint32) SceneConfig {
	return SceneConfig{
		Width:        w,
		Height:       h,
		Grid:         transform.DefaultGrid(),
		Camera:       transform.DefaultCamera(),
		ClearColor:   DefaultClearColor,
		ColorFormat:  gputypes.TextureFormatRGBA8Unorm,
		DepthFormat:  gputypes.TextureFormatDepth32Float,
		ShaderFormat: shader.FormatWGSL,
	}
}

func (c SceneConfig) aspect() float32 {
	return float32(c.Width) / float32(c.Height)
}

// SceneConstants is the per-cube constant block.
type SceneConstants struct {
	World         transform.Mat4
	ViewProj      transform.Mat4
	WorldViewProj transform.Mat4
	Time          float32
}

// put packs c into dst, which must hold SceneConstantsSize bytes. Matrices
// are written column by column so WGSL sees the same matrix under v * M.
func (c *SceneConstants) put(dst []byte) {
	putMat4(dst[0:64], &c.World)
	putMat4(dst[64:128], &c.ViewProj)
	putMat4(dst[128:192], &c.WorldViewProj)
	binary.LittleEndian.PutUint32(dst[192:196], math.Float32bits(c.Time))
	clear(dst[196:SceneConstantsSize])
}

// Bytes returns the packed constant block.
func (c *SceneConstants) Bytes() []byte {
	buf := make([]byte, SceneConstantsSize)
	c.put(buf)
	return buf
}

func putMat4(dst []byte, m *transform.Mat4) {
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			off := (col*4 + row) * 4
			binary.LittleEndian.PutUint32(dst[off:off+4], math.Float32bits(m[4*row+col]))
		}
	}
}

// ScenePass draws the animated cube grid into an offscreen color and depth
// target pair. It owns both targets; the post pass borrows them read-only.
type ScenePass struct {
	queue hal.Queue
	cfg   SceneConfig
	res   *resourceSet

	color *RenderTarget
	depth *RenderTarget

	vertexBuf  hal.Buffer
	indexBuf   hal.Buffer
	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup
	pipeline   hal.RenderPipeline

	staging []byte
}

// NewScenePass creates the targets, mesh, uniforms, and pipeline. On failure
// every object created so far is destroyed before the error is returned.
func NewScenePass(device hal.Device, queue hal.Queue, cfg SceneConfig) (*ScenePass, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("scene pass: zero-sized target %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Grid.Count <= 0 {
		return nil, fmt.Errorf("scene pass: grid count %d must be positive", cfg.Grid.Count)
	}

	p := &ScenePass{
		queue:   queue,
		cfg:     cfg,
		res:     newResourceSet(device),
		staging: make([]byte, cfg.Grid.Len()*uniformSlotStride),
	}
	if err := p.build(); err != nil {
		p.res.release()
		return nil, err
	}
	slogger().Debug("scene pass created",
		"width", cfg.Width, "height", cfg.Height, "cubes", cfg.Grid.Len())
	return p, nil
}

func (p *ScenePass) build() error {
	rs := p.res
	var err error

	p.color, err = rs.renderTarget("scene_color", p.cfg.ColorFormat, p.cfg.Width, p.cfg.Height, gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	p.depth, err = rs.renderTarget("scene_depth", p.cfg.DepthFormat, p.cfg.Width, p.cfg.Height, gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}

	pos := cubePositions
	p.vertexBuf, err = rs.uploadBuffer(p.queue, "scene_cube_vertices", float3Bytes(pos[:]), gputypes.BufferUsageVertex)
	if err != nil {
		return err
	}
	idx := cubeIndices
	p.indexBuf, err = rs.uploadBuffer(p.queue, "scene_cube_indices", uint32Bytes(idx[:]), gputypes.BufferUsageIndex)
	if err != nil {
		return err
	}
	p.uniformBuf, err = rs.buffer(&hal.BufferDescriptor{
		Label: "scene_constants",
		Size:  uint64(len(p.staging)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	layout, err := rs.bindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "scene_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   SceneConstantsSize,
			},
		}},
	})
	if err != nil {
		return err
	}
	p.bindGroup, err = rs.bindGroup(&hal.BindGroupDescriptor{
		Label:  "scene_bind_group",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: SceneConstantsSize,
			}},
		},
	})
	if err != nil {
		return err
	}
	pipeLayout, err := rs.pipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "scene_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{layout},
	})
	if err != nil {
		return err
	}

	module, err := rs.shaderModule(shader.SceneFile, p.cfg.ShaderFormat)
	if err != nil {
		return err
	}
	p.pipeline, err = rs.renderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "scene_pipeline",
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
			Buffers:    []gputypes.VertexBufferLayout{positionLayout},
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    p.cfg.ColorFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            p.cfg.DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      keepStencil,
			StencilBack:       keepStencil,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCW,
			CullMode:  gputypes.CullModeBack,
		},
	})
	return err
}

var keepStencil = hal.StencilFaceState{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      hal.StencilOperationKeep,
	DepthFailOp: hal.StencilOperationKeep,
	PassOp:      hal.StencilOperationKeep,
}

// Color returns the offscreen color target.
func (p *ScenePass) Color() *RenderTarget { return p.color }

// Depth returns the offscreen depth target.
func (p *ScenePass) Depth() *RenderTarget { return p.depth }

// Config returns the pass configuration.
func (p *ScenePass) Config() SceneConfig { return p.cfg }

// Constants returns the constant block for cube (i, j) at time t. viewProj
// is the camera transform for the frame.
func (p *ScenePass) Constants(i, j int, t float32, viewProj transform.Mat4) SceneConstants {
	world := p.cfg.Grid.World(i, j, t)
	return SceneConstants{
		World:         world,
		ViewProj:      viewProj,
		WorldViewProj: transform.Mul(world, viewProj),
		Time:          t,
	}
}

// Upload packs every cube's constant block into its slot and writes the
// whole uniform buffer with a single queue write.
func (p *ScenePass) Upload(t float32) error {
	viewProj := p.cfg.Camera.ViewProjection(p.cfg.aspect())
	n := p.cfg.Grid.Count
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := p.Constants(i, j, t, viewProj)
			off := (i*n + j) * uniformSlotStride
			c.put(p.staging[off : off+SceneConstantsSize])
		}
	}
	if err := p.queue.WriteBuffer(p.uniformBuf, 0, p.staging); err != nil {
		return fmt.Errorf("upload scene constants: %w", err)
	}
	return nil
}

// Render uploads the constants for time t and records the scene pass. Both
// targets must already be bound writable.
func (p *ScenePass) Render(encoder hal.CommandEncoder, t float32) error {
	for _, target := range []*RenderTarget{p.color, p.depth} {
		if target.State() != Writable {
			return &BindingViolation{Target: target.Label, From: target.State(), To: Writable}
		}
	}
	if err := p.Upload(t); err != nil {
		return err
	}
	p.record(encoder)
	return nil
}

func (p *ScenePass) record(encoder hal.CommandEncoder) {
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "scene_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       p.color.WriteView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: color.ClearValue(p.cfg.ClearColor, p.cfg.ColorFormat),
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            p.depth.WriteView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	rp.SetPipeline(p.pipeline)
	rp.SetViewport(0, 0, float32(p.cfg.Width), float32(p.cfg.Height), 0, 1)
	rp.SetVertexBuffer(0, p.vertexBuf, 0)
	rp.SetIndexBuffer(p.indexBuf, gputypes.IndexFormatUint32, 0)

	n := p.cfg.Grid.Count
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			offset := uint32((i*n + j) * uniformSlotStride) //nolint:gosec // grid slots fit uint32
			rp.SetBindGroup(0, p.bindGroup, []uint32{offset})
			rp.DrawIndexed(cubeIndexCount, 1, 0, 0, 0)
		}
	}
	rp.End()
}

// Destroy releases every object owned by the pass. Safe to call twice.
func (p *ScenePass) Destroy() {
	p.res.release()
}
