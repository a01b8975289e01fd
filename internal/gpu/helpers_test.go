package gpu

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device on the noop backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// commandLog collects the commands recorded through recordingEncoder.
type commandLog struct {
	ops []string
}

func (l *commandLog) add(format string, args ...any) {
	l.ops = append(l.ops, fmt.Sprintf(format, args...))
}

// count returns how many recorded ops start with prefix.
func (l *commandLog) count(prefix string) int {
	n := 0
	for _, op := range l.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

// recordingEncoder logs passes and barriers before forwarding them.
type recordingEncoder struct {
	hal.CommandEncoder
	log *commandLog
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.log.add("BeginRenderPass(%s)", desc.Label)
	return &recordingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), log: e.log}
}

func (e *recordingEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	for _, b := range barriers {
		e.log.add("Transition(%d->%d)", b.Usage.OldUsage, b.Usage.NewUsage)
	}
	e.CommandEncoder.TransitionTextures(barriers)
}

type recordingPass struct {
	hal.RenderPassEncoder
	log *commandLog
}

func (p *recordingPass) End() {
	p.log.add("End")
	p.RenderPassEncoder.End()
}

func (p *recordingPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.log.add("SetPipeline")
	p.RenderPassEncoder.SetPipeline(pipeline)
}

func (p *recordingPass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.log.add("SetBindGroup(%d,%v)", index, offsets)
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *recordingPass) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	p.log.add("SetVertexBuffer(%d)", slot)
	p.RenderPassEncoder.SetVertexBuffer(slot, buffer, offset)
}

func (p *recordingPass) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	p.log.add("SetIndexBuffer")
	p.RenderPassEncoder.SetIndexBuffer(buffer, format, offset)
}

func (p *recordingPass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	p.log.add("SetViewport(%g,%g)", w, h)
	p.RenderPassEncoder.SetViewport(x, y, w, h, minDepth, maxDepth)
}

func (p *recordingPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.log.add("Draw(%d,%d,%d,%d)", vertexCount, instanceCount, firstVertex, firstInstance)
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *recordingPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.log.add("DrawIndexed(%d,%d,%d,%d,%d)", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// recordingDevice hands out recording encoders sharing one log.
type recordingDevice struct {
	hal.Device
	log *commandLog
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &recordingEncoder{CommandEncoder: enc, log: d.log}, nil
}

// newRecordingEncoder returns a begun encoder whose commands land in log.
func newRecordingEncoder(t *testing.T, device hal.Device, log *commandLog) hal.CommandEncoder {
	t.Helper()
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "test_encoder"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	if err := enc.BeginEncoding("test"); err != nil {
		t.Fatalf("BeginEncoding failed: %v", err)
	}
	return &recordingEncoder{CommandEncoder: enc, log: log}
}

type bufferWrite struct {
	offset uint64
	data   []byte
}

// recordingQueue keeps a copy of every buffer upload.
type recordingQueue struct {
	hal.Queue
	writes []bufferWrite
}

func (q *recordingQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.writes = append(q.writes, bufferWrite{offset: offset, data: append([]byte(nil), data...)})
	return q.Queue.WriteBuffer(buffer, offset, data)
}

// failingDevice fails the failAt-th object creation with an out-of-memory
// error. Calls are counted across every kind.
type failingDevice struct {
	hal.Device
	failAt int
	calls  int
}

func (d *failingDevice) step() error {
	d.calls++
	if d.calls == d.failAt {
		return fmt.Errorf("injected failure %d: %w", d.calls, hal.ErrDeviceOutOfMemory)
	}
	return nil
}

func (d *failingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateBuffer(desc)
}

func (d *failingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateTexture(desc)
}

func (d *failingDevice) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateTextureView(tex, desc)
}

func (d *failingDevice) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateSampler(desc)
}

func (d *failingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *failingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroup(desc)
}

func (d *failingDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreatePipelineLayout(desc)
}

func (d *failingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateShaderModule(desc)
}

func (d *failingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if err := d.step(); err != nil {
		return nil, err
	}
	return d.Device.CreateRenderPipeline(desc)
}

// smallSceneConfig returns a 2×2 grid on a 64×32 target.
func smallSceneConfig() SceneConfig {
	cfg := DefaultSceneConfig(64, 32)
	cfg.Grid.Count = 2
	return cfg
}

// laggingQueue never reports a submission as complete on its own: work
// counts as in flight until the device waits for idle.
type laggingQueue struct {
	hal.Queue
	submitted int
	inFlight  bool
}

func (q *laggingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	idx, err := q.Queue.Submit(cmds)
	if err == nil {
		q.submitted++
		q.inFlight = true
	}
	return idx, err
}

func (q *laggingQueue) PollCompleted() uint64 { return 0 }

// idleDevice completes the laggingQueue's work on WaitIdle and counts the
// texture views destroyed while a submission was still in flight.
type idleDevice struct {
	hal.Device
	queue          *laggingQueue
	viewsInFlight  int
	waitIdleCalled int
}

func (d *idleDevice) WaitIdle() error {
	d.waitIdleCalled++
	d.queue.inFlight = false
	return d.Device.WaitIdle()
}

func (d *idleDevice) DestroyTextureView(v hal.TextureView) {
	if d.queue.inFlight {
		d.viewsInFlight++
	}
	d.Device.DestroyTextureView(v)
}

// endFailingDevice hands out encoders whose EndEncoding fails.
type endFailingDevice struct {
	hal.Device
	discarded int
}

func (d *endFailingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &endFailingEncoder{CommandEncoder: enc, device: d}, nil
}

type endFailingEncoder struct {
	hal.CommandEncoder
	device *endFailingDevice
}

func (e *endFailingEncoder) EndEncoding() (hal.CommandBuffer, error) {
	return nil, hal.ErrDeviceLost
}

func (e *endFailingEncoder) DiscardEncoding() {
	e.device.discarded++
	e.CommandEncoder.DiscardEncoding()
}
