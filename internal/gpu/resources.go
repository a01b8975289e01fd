package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dofdemo/internal/shader"
)

// resourceSet owns a group of GPU objects created together. Every successful
// create pushes its destroy onto a stack; release runs the stack in reverse
// creation order. Constructors build through a resourceSet and call release
// on any failure, so a partially built set never escapes.
type resourceSet struct {
	device   hal.Device
	releases []func()
}

func newResourceSet(device hal.Device) *resourceSet {
	return &resourceSet{device: device}
}

func (rs *resourceSet) push(f func()) {
	rs.releases = append(rs.releases, f)
}

// release destroys every object in reverse creation order. Calling it again
// is a no-op.
func (rs *resourceSet) release() {
	for i := len(rs.releases) - 1; i >= 0; i-- {
		rs.releases[i]()
	}
	rs.releases = nil
}

// len returns the number of live objects held by the set.
func (rs *resourceSet) len() int { return len(rs.releases) }

func (rs *resourceSet) buffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buf, err := rs.device.CreateBuffer(desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindBuffer, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyBuffer(buf) })
	return buf, nil
}

// uploadBuffer creates a buffer sized to data and fills it through the queue.
func (rs *resourceSet) uploadBuffer(queue hal.Queue, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := rs.buffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	return buf, nil
}

func (rs *resourceSet) texture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	tex, err := rs.device.CreateTexture(desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindTexture, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyTexture(tex) })
	return tex, nil
}

func (rs *resourceSet) textureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	view, err := rs.device.CreateTextureView(tex, desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindTextureView, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyTextureView(view) })
	return view, nil
}

func (rs *resourceSet) sampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	s, err := rs.device.CreateSampler(desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindSampler, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroySampler(s) })
	return s, nil
}

func (rs *resourceSet) bindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	l, err := rs.device.CreateBindGroupLayout(desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindBindGroupLayout, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyBindGroupLayout(l) })
	return l, nil
}

func (rs *resourceSet) bindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	g, err := rs.device.CreateBindGroup(desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindBindGroup, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyBindGroup(g) })
	return g, nil
}

func (rs *resourceSet) pipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	l, err := rs.device.CreatePipelineLayout(desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindPipelineLayout, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyPipelineLayout(l) })
	return l, nil
}

// shaderModule creates the module for an embedded WGSL program in the
// requested source format. The program itself is compiled once per process.
func (rs *resourceSet) shaderModule(file string, format shader.Format) (hal.ShaderModule, error) {
	prog, err := shader.Embedded(file)
	if err != nil {
		return nil, err
	}
	m, err := rs.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  prog.Label,
		Source: prog.Source(format),
	})
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindShaderModule, Label: prog.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyShaderModule(m) })
	return m, nil
}

func (rs *resourceSet) renderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	p, err := rs.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindRenderPipeline, Label: desc.Label, Err: err}
	}
	rs.push(func() { rs.device.DestroyRenderPipeline(p) })
	return p, nil
}

// renderTarget creates a single-sample 2D texture usable both as an
// attachment and as a shader input, with one view for each role. Depth
// targets get a depth-only read view.
func (rs *resourceSet) renderTarget(label string, format gputypes.TextureFormat, w, h uint32, extra gputypes.TextureUsage) (*RenderTarget, error) {
	tex, err := rs.texture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | extra,
	})
	if err != nil {
		return nil, err
	}
	t := &RenderTarget{Label: label, Texture: tex, Format: format, Width: w, Height: h}

	t.WriteView, err = rs.textureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_write_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, err
	}

	readAspect := gputypes.TextureAspectAll
	if t.isDepth() {
		readAspect = gputypes.TextureAspectDepthOnly
	}
	t.ReadView, err = rs.textureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_read_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        readAspect,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
