package gpu

import "github.com/vk/rastergraph/internal/value"

// Kernel is the device-side implementation of a raster node: one complete
// WGSL function plus the CPU mirror used whenever no device can execute
// the fused shader.
type Kernel struct {
	// Name is the WGSL function name, unique across the registry.
	Name string

	// Params names the node's scalar inputs in the order the WGSL
	// function receives them after the pixel argument.
	Params []string

	// WGSL is a complete function definition of the shape
	//
	//	fn <Name>(c: vec4<f32>, <param>: f32, ...) -> vec4<f32>
	//
	// Helper functions from the shared prelude (to_gamma, to_linear,
	// srgb_channel, linear_channel) are available to the body.
	WGSL string

	// Apply mirrors the WGSL function on the CPU. Params arrive in the
	// order declared by Params.
	Apply func(c value.Color, params []float64) value.Color
}
