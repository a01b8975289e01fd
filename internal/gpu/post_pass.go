package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dofdemo/internal/dof"
	"github.com/gogpu/dofdemo/internal/shader"
)

// PostConstantsSize is the byte size of the WGSL PostConstants struct.
const PostConstantsSize = 16

// makePostConstants packs {time, fixed, variable, focusDepth} as one vec4.
func makePostConstants(p dof.Params) []byte {
	buf := make([]byte, PostConstantsSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Time))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.ActivateFixed))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.ActivateVariable))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.FocusDepth))
	return buf
}

// PostPass composites the scene color through the depth-of-field effect
// into a destination target. The scene targets are borrowed: the pass binds
// their read views but never destroys them.
type PostPass struct {
	queue hal.Queue
	res   *resourceSet

	color *RenderTarget
	depth *RenderTarget

	positionBuf hal.Buffer
	texcoordBuf hal.Buffer
	uniformBuf  hal.Buffer
	sampler     hal.Sampler
	bindGroup   hal.BindGroup
	pipeline    hal.RenderPipeline
}

// NewPostPass creates the quad, uniforms, sampler, and pipeline for
// compositing color and depth into targets of destFormat.
func NewPostPass(device hal.Device, queue hal.Queue, color, depth *RenderTarget, destFormat gputypes.TextureFormat, format shader.Format) (*PostPass, error) {
	if color.ReadView == nil || depth.ReadView == nil {
		return nil, fmt.Errorf("post pass: scene targets have no read views")
	}
	p := &PostPass{
		queue: queue,
		res:   newResourceSet(device),
		color: color,
		depth: depth,
	}
	if err := p.build(destFormat, format); err != nil {
		p.res.release()
		return nil, err
	}
	slogger().Debug("post pass created", "format", destFormat)
	return p, nil
}

func (p *PostPass) build(destFormat gputypes.TextureFormat, format shader.Format) error {
	rs := p.res
	var err error

	pos := quadPositions
	p.positionBuf, err = rs.uploadBuffer(p.queue, "post_quad_positions", float3Bytes(pos[:]), gputypes.BufferUsageVertex)
	if err != nil {
		return err
	}
	uv := quadTexcoords
	p.texcoordBuf, err = rs.uploadBuffer(p.queue, "post_quad_texcoords", float2Bytes(uv[:]), gputypes.BufferUsageVertex)
	if err != nil {
		return err
	}
	p.uniformBuf, err = rs.buffer(&hal.BufferDescriptor{
		Label: "post_constants",
		Size:  PostConstantsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	// Linear min/mag, point mip, clamped on every axis.
	p.sampler, err = rs.sampler(&hal.SamplerDescriptor{
		Label:        "post_linear_clamp",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Compare:      gputypes.CompareFunctionNever,
		Anisotropy:   1,
	})
	if err != nil {
		return err
	}

	layout, err := rs.bindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "post_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: PostConstantsSize,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeDepth,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return err
	}
	p.bindGroup, err = rs.bindGroup(&hal.BindGroupDescriptor{
		Label:  "post_bind_group",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: PostConstantsSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: p.color.ReadView.NativeHandle()}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: p.depth.ReadView.NativeHandle()}},
			{Binding: 3, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return err
	}
	pipeLayout, err := rs.pipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "post_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{layout},
	})
	if err != nil {
		return err
	}

	module, err := rs.shaderModule(shader.PostEffectFile, format)
	if err != nil {
		return err
	}
	p.pipeline, err = rs.renderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "post_pipeline",
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
			Buffers:    []gputypes.VertexBufferLayout{positionLayout, texcoordLayout},
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    destFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
	})
	return err
}

// Run uploads the effect constants and records the composite into dest.
// color and depth must be the targets the pass was built with, bound
// readable. dest is bound writable for the pass and released afterwards.
func (p *PostPass) Run(encoder hal.CommandEncoder, color, depth, dest *RenderTarget, width, height uint32, t float32, params dof.Params) error {
	if color != p.color || depth != p.depth {
		return fmt.Errorf("post pass: scene targets differ from the bound pair")
	}
	for _, target := range []*RenderTarget{color, depth} {
		if target.State() != Readable {
			return &BindingViolation{Target: target.Label, From: target.State(), To: Readable}
		}
	}
	if err := dest.BindWritable(); err != nil {
		return err
	}
	defer dest.Release()

	params.Time = t
	if err := p.queue.WriteBuffer(p.uniformBuf, 0, makePostConstants(params)); err != nil {
		return fmt.Errorf("upload post constants: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "post_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dest.WriteView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetViewport(0, 0, float32(width), float32(height), 0, 1)
	rp.SetVertexBuffer(0, p.positionBuf, 0)
	rp.SetVertexBuffer(1, p.texcoordBuf, 0)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.Draw(quadVertexCount, 1, 0, 0)
	rp.End()
	return nil
}

// Destroy releases every object owned by the pass. The borrowed scene
// targets are left alone. Safe to call twice.
func (p *PostPass) Destroy() {
	p.res.release()
}
