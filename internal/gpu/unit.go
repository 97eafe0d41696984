package gpu

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/vk/rastergraph/internal/value"
)

// CompiledUnit is a span compiled for execution: the fused shader, its
// SPIR-V translation, and the device pipeline objects. Units are
// immutable after Compile and safe to share across dispatches.
type CompiledUnit struct {
	// Fingerprint is the structural identity of the span the unit was
	// compiled from.
	Fingerprint value.Digest

	// WGSL is the fused shader source.
	WGSL string

	// EntryPoint is the compute entry point name.
	EntryPoint string

	// ParamCount is the number of scalars a dispatch must supply.
	ParamCount int

	kernels []*Kernel

	spirv      []uint32
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// Mirror applies the unit's kernels on the CPU. It is the reference
// implementation of the fused shader and the fallback used when the
// device cannot execute a dispatch. Params carry every stage's scalars
// flattened in order.
func (u *CompiledUnit) Mirror(src *value.Raster, params []float64) *value.Raster {
	out := src.Clone()
	offset := 0
	for _, k := range u.kernels {
		p := params[offset : offset+len(k.Params)]
		offset += len(k.Params)
		for i := range out.Pix {
			out.Pix[i] = k.Apply(out.Pix[i], p)
		}
	}
	return out
}

// destroy releases device resources in reverse creation order.
func (u *CompiledUnit) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if u.pipeline != nil {
		device.DestroyComputePipeline(u.pipeline)
	}
	if u.pipeLayout != nil {
		device.DestroyPipelineLayout(u.pipeLayout)
	}
	if u.bindLayout != nil {
		device.DestroyBindGroupLayout(u.bindLayout)
	}
	if u.module != nil {
		device.DestroyShaderModule(u.module)
	}
	u.pipeline = nil
	u.pipeLayout = nil
	u.bindLayout = nil
	u.module = nil
}
