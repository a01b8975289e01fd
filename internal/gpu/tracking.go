package gpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/wgpu/hal"
)

// ObjectKind identifies a category of device-owned GPU object.
type ObjectKind uint8

const (
	KindBuffer ObjectKind = iota
	KindTexture
	KindTextureView
	KindSampler
	KindBindGroupLayout
	KindBindGroup
	KindPipelineLayout
	KindShaderModule
	KindRenderPipeline
	KindComputePipeline
	KindQuerySet
	KindFence
	kindCount
)

var kindNames = [kindCount]string{
	"buffer",
	"texture",
	"texture view",
	"sampler",
	"bind group layout",
	"bind group",
	"pipeline layout",
	"shader module",
	"render pipeline",
	"compute pipeline",
	"query set",
	"fence",
}

// String returns the human-readable kind name.
func (k ObjectKind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("ObjectKind(%d)", uint8(k))
}

// TrackingDevice wraps a hal.Device and counts every object it creates and
// destroys, per kind. Objects are returned to the caller unwrapped so they
// stay usable with the wrapped device's queue.
//
// Counting is by kind rather than by handle identity: backends such as noop
// hand out zero-size handles that compare equal.
type TrackingDevice struct {
	hal.Device

	mu        sync.Mutex
	created   [kindCount]int
	destroyed [kindCount]int
}

// NewTrackingDevice wraps device.
func NewTrackingDevice(device hal.Device) *TrackingDevice {
	return &TrackingDevice{Device: device}
}

// Unwrap returns the wrapped device.
func (d *TrackingDevice) Unwrap() hal.Device { return d.Device }

func (d *TrackingDevice) onCreate(kind ObjectKind, label string, err error) {
	if err != nil {
		return
	}
	d.mu.Lock()
	d.created[kind]++
	d.mu.Unlock()
	slogger().Debug("gpu object created", "kind", kind.String(), "label", label)
}

func (d *TrackingDevice) onDestroy(kind ObjectKind) {
	d.mu.Lock()
	d.destroyed[kind]++
	d.mu.Unlock()
}

// Live returns the number of live objects per kind. Kinds with no live
// objects are omitted.
func (d *TrackingDevice) Live() map[ObjectKind]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	live := make(map[ObjectKind]int)
	for k := ObjectKind(0); k < kindCount; k++ {
		if n := d.created[k] - d.destroyed[k]; n != 0 {
			live[k] = n
		}
	}
	return live
}

// LiveCount returns the total number of live objects.
func (d *TrackingDevice) LiveCount() int {
	total := 0
	for _, n := range d.Live() {
		total += n
	}
	return total
}

// Created returns how many objects of kind have been created so far.
func (d *TrackingDevice) Created(kind ObjectKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Report formats the live objects one kind per line, in kind order.
// It returns an empty string when nothing is live.
func (d *TrackingDevice) Report() string {
	live := d.Live()
	var b strings.Builder
	for k := ObjectKind(0); k < kindCount; k++ {
		if n, ok := live[k]; ok {
			fmt.Fprintf(&b, "live %s: %d\n", k, n)
		}
	}
	return b.String()
}

func (d *TrackingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	b, err := d.Device.CreateBuffer(desc)
	d.onCreate(KindBuffer, desc.Label, err)
	return b, err
}

func (d *TrackingDevice) DestroyBuffer(b hal.Buffer) {
	d.Device.DestroyBuffer(b)
	d.onDestroy(KindBuffer)
}

func (d *TrackingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	t, err := d.Device.CreateTexture(desc)
	d.onCreate(KindTexture, desc.Label, err)
	return t, err
}

func (d *TrackingDevice) DestroyTexture(t hal.Texture) {
	d.Device.DestroyTexture(t)
	d.onDestroy(KindTexture)
}

func (d *TrackingDevice) CreateTextureView(t hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	v, err := d.Device.CreateTextureView(t, desc)
	d.onCreate(KindTextureView, desc.Label, err)
	return v, err
}

func (d *TrackingDevice) DestroyTextureView(v hal.TextureView) {
	d.Device.DestroyTextureView(v)
	d.onDestroy(KindTextureView)
}

func (d *TrackingDevice) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	s, err := d.Device.CreateSampler(desc)
	d.onCreate(KindSampler, desc.Label, err)
	return s, err
}

func (d *TrackingDevice) DestroySampler(s hal.Sampler) {
	d.Device.DestroySampler(s)
	d.onDestroy(KindSampler)
}

func (d *TrackingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	l, err := d.Device.CreateBindGroupLayout(desc)
	d.onCreate(KindBindGroupLayout, desc.Label, err)
	return l, err
}

func (d *TrackingDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.Device.DestroyBindGroupLayout(l)
	d.onDestroy(KindBindGroupLayout)
}

func (d *TrackingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	g, err := d.Device.CreateBindGroup(desc)
	d.onCreate(KindBindGroup, desc.Label, err)
	return g, err
}

func (d *TrackingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.Device.DestroyBindGroup(g)
	d.onDestroy(KindBindGroup)
}

func (d *TrackingDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	l, err := d.Device.CreatePipelineLayout(desc)
	d.onCreate(KindPipelineLayout, desc.Label, err)
	return l, err
}

func (d *TrackingDevice) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.Device.DestroyPipelineLayout(l)
	d.onDestroy(KindPipelineLayout)
}

func (d *TrackingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	m, err := d.Device.CreateShaderModule(desc)
	d.onCreate(KindShaderModule, desc.Label, err)
	return m, err
}

func (d *TrackingDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.Device.DestroyShaderModule(m)
	d.onDestroy(KindShaderModule)
}

func (d *TrackingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	p, err := d.Device.CreateRenderPipeline(desc)
	d.onCreate(KindRenderPipeline, desc.Label, err)
	return p, err
}

func (d *TrackingDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.Device.DestroyRenderPipeline(p)
	d.onDestroy(KindRenderPipeline)
}

func (d *TrackingDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	p, err := d.Device.CreateComputePipeline(desc)
	d.onCreate(KindComputePipeline, desc.Label, err)
	return p, err
}

func (d *TrackingDevice) DestroyComputePipeline(p hal.ComputePipeline) {
	d.Device.DestroyComputePipeline(p)
	d.onDestroy(KindComputePipeline)
}

func (d *TrackingDevice) CreateQuerySet(desc *hal.QuerySetDescriptor) (hal.QuerySet, error) {
	q, err := d.Device.CreateQuerySet(desc)
	d.onCreate(KindQuerySet, desc.Label, err)
	return q, err
}

func (d *TrackingDevice) DestroyQuerySet(q hal.QuerySet) {
	d.Device.DestroyQuerySet(q)
	d.onDestroy(KindQuerySet)
}

func (d *TrackingDevice) CreateFence() (hal.Fence, error) {
	f, err := d.Device.CreateFence()
	d.onCreate(KindFence, "fence", err)
	return f, err
}

func (d *TrackingDevice) DestroyFence(f hal.Fence) {
	d.Device.DestroyFence(f)
	d.onDestroy(KindFence)
}
