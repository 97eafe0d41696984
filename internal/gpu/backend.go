package gpu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/value"
)

// Backend fuses raster spans into compute pipelines on an injected hal
// device and executes them. Units are cached by span fingerprint, so
// editing constants upstream never recompiles a shader. A nil Backend
// (or one without a device) reports ErrUnavailable from Compile, which
// keeps callers on the CPU path without special-casing.
type Backend struct {
	device hal.Device
	queue  hal.Queue

	mu    sync.RWMutex
	units map[value.Digest]*CompiledUnit

	hits   atomic.Uint64
	misses atomic.Uint64
}

// BackendStats is a point-in-time snapshot of the unit cache.
type BackendStats struct {
	Units  int
	Hits   uint64
	Misses uint64
}

// New wraps an open device/queue pair, typically from Acquire. The
// device stays owned by the caller.
func New(device hal.Device, queue hal.Queue) *Backend {
	return &Backend{
		device: device,
		queue:  queue,
		units:  make(map[value.Digest]*CompiledUnit),
	}
}

// Available reports whether a device is attached.
func (b *Backend) Available() bool {
	return b != nil && b.device != nil
}

// Compile fuses the span's kernels into one compute shader, translates
// it to SPIR-V and builds the device pipeline. The returned unit is
// cached by the span's structural fingerprint. Failure to express the
// span on the device is reported as ErrUnavailable.
func (b *Backend) Compile(ctx context.Context, span Span) (*CompiledUnit, error) {
	if len(span.Stages) == 0 {
		return nil, fmt.Errorf("compile: empty span")
	}
	if !b.Available() {
		return nil, fmt.Errorf("%w: no device attached", ErrUnavailable)
	}

	fp := span.Fingerprint()

	b.mu.RLock()
	unit, ok := b.units[fp]
	b.mu.RUnlock()
	if ok {
		b.hits.Add(1)
		return unit, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if unit, ok := b.units[fp]; ok {
		b.hits.Add(1)
		return unit, nil
	}
	b.misses.Add(1)

	unit, err := b.build(ctx, span, fp)
	if err != nil {
		return nil, err
	}
	b.units[fp] = unit
	return unit, nil
}

func (b *Backend) build(ctx context.Context, span Span, fp value.Digest) (*CompiledUnit, error) {
	wgsl, err := fuseWGSL(span)
	if err != nil {
		return nil, fmt.Errorf("%w: fuse span: %w", ErrUnavailable, err)
	}

	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: translate fused shader: %w", ErrUnavailable, err)
	}
	// SPIR-V is little-endian 32-bit words.
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	kernels := make([]*Kernel, len(span.Stages))
	for i, st := range span.Stages {
		kernels[i] = st.Kernel
	}
	unit := &CompiledUnit{
		Fingerprint: fp,
		WGSL:        wgsl,
		EntryPoint:  "main",
		ParamCount:  span.ParamCount(),
		kernels:     kernels,
		spirv:       spirv,
	}

	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "span_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create shader module: %w", ErrUnavailable, err)
	}
	unit.module = module

	entries := []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
	}
	if unit.ParamCount > 0 {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding: 3, Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		})
	}
	bindLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "span_bind_layout",
		Entries: entries,
	})
	if err != nil {
		unit.destroy(b.device)
		return nil, fmt.Errorf("%w: create bind group layout: %w", ErrUnavailable, err)
	}
	unit.bindLayout = bindLayout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "span_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		unit.destroy(b.device)
		return nil, fmt.Errorf("%w: create pipeline layout: %w", ErrUnavailable, err)
	}
	unit.pipeLayout = pipeLayout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "span_pipeline", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: unit.EntryPoint},
	})
	if err != nil {
		unit.destroy(b.device)
		return nil, fmt.Errorf("%w: create compute pipeline: %w", ErrUnavailable, err)
	}
	unit.pipeline = pipeline

	ctxlog.FromContext(ctx).Debug("Compiled raster span.",
		"kernels", len(kernels),
		"params", unit.ParamCount,
		"spirvWords", len(spirv))
	return unit, nil
}

// Close releases every cached unit's device resources. The device
// itself belongs to the caller.
func (b *Backend) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for fp, unit := range b.units {
		unit.destroy(b.device)
		delete(b.units, fp)
	}
}

// Stats returns a snapshot of the unit cache counters.
func (b *Backend) Stats() BackendStats {
	if b == nil {
		return BackendStats{}
	}
	b.mu.RLock()
	n := len(b.units)
	b.mu.RUnlock()
	return BackendStats{Units: n, Hits: b.hits.Load(), Misses: b.misses.Load()}
}
