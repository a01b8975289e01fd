package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the BytesPerRow alignment WebGPU and DX12 require
// for texture-to-buffer copies.
const copyPitchAlignment = 256

// readTexture copies a 4-byte-per-texel target into a staging buffer, waits
// for the GPU, and returns the texels with rows packed tightly. The target
// must be Unbound and in attachment usage; it is left that way.
func readTexture(device hal.Device, queue hal.Queue, t *RenderTarget) ([]byte, error) {
	if t.State() != Unbound {
		return nil, &BindingViolation{Target: t.Label, From: t.State(), To: Unbound}
	}
	const texelSize = 4
	w, h := t.Width, t.Height
	bytesPerRow := w * texelSize
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)
	label := t.Label + "_staging"

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &ResourceCreationError{Kind: KindBuffer, Label: label, Err: err}
	}
	defer device.DestroyBuffer(staging)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: t.Label + "_readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	aspect := gputypes.TextureAspectAll
	if t.isDepth() {
		aspect = gputypes.TextureAspectDepthOnly
	}
	transitionTargets(encoder, gputypes.TextureUsageRenderAttachment, gputypes.TextureUsageCopySrc, t)
	encoder.CopyTextureToBuffer(t.Texture, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.Texture, MipLevel: 0, Aspect: aspect},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	transitionTargets(encoder, gputypes.TextureUsageCopySrc, gputypes.TextureUsageRenderAttachment, t)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	idx, err := queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if queue.PollCompleted() < idx {
		if err := device.WaitIdle(); err != nil {
			return nil, fmt.Errorf("wait for GPU: %w", err)
		}
	}

	mapping, err := device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	defer func() { _ = device.UnmapBuffer(staging) }()
	readback := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)

	out := make([]byte, int(bytesPerRow)*int(h))
	for row := uint32(0); row < h; row++ {
		copy(out[row*bytesPerRow:(row+1)*bytesPerRow], readback[row*alignedBytesPerRow:])
	}
	return out, nil
}

// readColor reads a color target as RGBA.
func readColor(device hal.Device, queue hal.Queue, t *RenderTarget) (*image.RGBA, error) {
	pix, err := readTexture(device, queue, t)
	if err != nil {
		return nil, err
	}
	if isBGRA(t.Format) {
		swapRedBlue(pix)
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: int(t.Width) * 4,
		Rect:   image.Rect(0, 0, int(t.Width), int(t.Height)),
	}, nil
}

// readDepth reads a Depth32Float target as one value per pixel, row-major.
func readDepth(device hal.Device, queue hal.Queue, t *RenderTarget) ([]float32, error) {
	if t.Format != gputypes.TextureFormatDepth32Float {
		return nil, fmt.Errorf("read %s: depth format %v is not copyable", t.Label, t.Format)
	}
	raw, err := readTexture(device, queue, t)
	if err != nil {
		return nil, err
	}
	depth := make([]float32, len(raw)/4)
	for i := range depth {
		depth[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return depth, nil
}

func isBGRA(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}

// swapRedBlue converts BGRA pixels to RGBA in place.
func swapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
