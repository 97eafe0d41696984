package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/value"
)

const fenceTimeout = 5 * time.Second

// Result carries a finished dispatch: the output raster or the error
// that stopped it.
type Result struct {
	Raster *value.Raster
	Err    error
}

// Dispatch executes the unit against src and delivers the result
// through the returned channel, which receives exactly one Result.
// Device failures fall back to the unit's CPU mirror, so an error is
// only reported when the inputs themselves are unusable. Params carry
// every stage's scalars flattened in order and must match the unit's
// ParamCount.
func (b *Backend) Dispatch(ctx context.Context, unit *CompiledUnit, src *value.Raster, params []float64) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		out <- b.dispatch(ctx, unit, src, params)
	}()
	return out
}

func (b *Backend) dispatch(ctx context.Context, unit *CompiledUnit, src *value.Raster, params []float64) Result {
	if len(params) != unit.ParamCount {
		return Result{Err: fmt.Errorf("dispatch: got %d params, unit wants %d", len(params), unit.ParamCount)}
	}
	if src == nil || len(src.Pix) == 0 {
		return Result{Err: fmt.Errorf("dispatch: empty source raster")}
	}
	if !b.Available() || b.queue == nil || unit.pipeline == nil {
		return Result{Raster: unit.Mirror(src, params)}
	}
	raster, err := b.execute(unit, src, params)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Device dispatch failed, using CPU mirror.", "error", err)
		return Result{Raster: unit.Mirror(src, params)}
	}
	return Result{Raster: raster}
}

func (b *Backend) execute(unit *CompiledUnit, src *value.Raster, params []float64) (*value.Raster, error) {
	w, h := uint32(src.Width), uint32(src.Height)
	bufSize := uint64(len(src.Pix)) * 16

	globalsBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "span_globals", Size: globalsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create globals buffer: %w", err)
	}
	defer b.device.DestroyBuffer(globalsBuf)

	srcBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "span_src", Size: bufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create source buffer: %w", err)
	}
	defer b.device.DestroyBuffer(srcBuf)

	dstBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "span_dst", Size: bufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create destination buffer: %w", err)
	}
	defer b.device.DestroyBuffer(dstBuf)

	stagingBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "span_staging", Size: bufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(stagingBuf)

	b.queue.WriteBuffer(globalsBuf, 0, packGlobals(w, h))
	b.queue.WriteBuffer(srcBuf, 0, packPixels(src))

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: globalsBuf.NativeHandle(), Offset: 0, Size: globalsSize}},
		{Binding: 1, Resource: gputypes.BufferBinding{Buffer: srcBuf.NativeHandle(), Offset: 0, Size: bufSize}},
		{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dstBuf.NativeHandle(), Offset: 0, Size: bufSize}},
	}
	var paramsBuf hal.Buffer
	if unit.ParamCount > 0 {
		packed := packParams(params)
		paramsBuf, err = b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "span_params", Size: uint64(len(packed)),
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("create params buffer: %w", err)
		}
		defer b.device.DestroyBuffer(paramsBuf)
		b.queue.WriteBuffer(paramsBuf, 0, packed)
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: 3, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: uint64(len(packed))},
		})
	}

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "span_bind", Layout: unit.bindLayout, Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "span_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("span"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "span_pass"})
	pass.SetPipeline(unit.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch((w+7)/8, (h+7)/8, 1)
	pass.End()
	encoder.CopyBufferToBuffer(dstBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: bufSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)
	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return nil, fmt.Errorf("wait for device: ok=%v err=%v", ok, err)
	}

	readback := make([]byte, bufSize)
	if err := b.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return unpackPixels(readback, src.Width, src.Height)
}

const globalsSize = 16

func packGlobals(w, h uint32) []byte {
	out := make([]byte, globalsSize)
	binary.LittleEndian.PutUint32(out[0:], w)
	binary.LittleEndian.PutUint32(out[4:], h)
	return out
}

// packPixels serializes linear float channels to the vec4<f32> layout
// the fused shader reads.
func packPixels(r *value.Raster) []byte {
	out := make([]byte, len(r.Pix)*16)
	for i, c := range r.Pix {
		o := i * 16
		binary.LittleEndian.PutUint32(out[o:], math.Float32bits(float32(c.R)))
		binary.LittleEndian.PutUint32(out[o+4:], math.Float32bits(float32(c.G)))
		binary.LittleEndian.PutUint32(out[o+8:], math.Float32bits(float32(c.B)))
		binary.LittleEndian.PutUint32(out[o+12:], math.Float32bits(float32(c.A)))
	}
	return out
}

func unpackPixels(data []byte, width, height int) (*value.Raster, error) {
	r, err := value.NewRaster(width, height)
	if err != nil {
		return nil, err
	}
	for i := range r.Pix {
		o := i * 16
		r.Pix[i] = value.Color{
			R: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[o:]))),
			G: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[o+4:]))),
			B: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[o+8:]))),
			A: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[o+12:]))),
		}
	}
	return r, nil
}

func packParams(params []float64) []byte {
	out := make([]byte, len(params)*4)
	for i, p := range params {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(p)))
	}
	return out
}
