package gpu

import (
	"fmt"
	"strings"
)

// fusePrelude mirrors value.SRGBToLinear/LinearToSRGB so kernels whose
// formulas are defined in gamma space agree with their CPU mirrors.
const fusePrelude = `fn srgb_channel(x: f32) -> f32 {
    if (x <= 0.0031308) {
        return x * 12.92;
    }
    return 1.055 * pow(x, 1.0 / 2.4) - 0.055;
}

fn linear_channel(x: f32) -> f32 {
    if (x <= 0.04045) {
        return x / 12.92;
    }
    return pow((x + 0.055) / 1.055, 2.4);
}

fn to_gamma(c: vec4<f32>) -> vec4<f32> {
    return vec4<f32>(srgb_channel(c.r), srgb_channel(c.g), srgb_channel(c.b), c.a);
}

fn to_linear(c: vec4<f32>) -> vec4<f32> {
    return vec4<f32>(linear_channel(c.r), linear_channel(c.g), linear_channel(c.b), c.a);
}
`

// fuseWGSL builds the span's compute shader: bindings, the shared
// prelude, one definition per distinct kernel, and an entry point that
// applies the stages in order. Pixels are vec4<f32> in linear light;
// scalar parameters arrive flattened in stage order through the params
// buffer. The params binding is omitted when no stage takes any.
func fuseWGSL(span Span) (string, error) {
	var b strings.Builder
	b.WriteString("struct Globals {\n")
	b.WriteString("    width: u32,\n")
	b.WriteString("    height: u32,\n")
	b.WriteString("    pad0: u32,\n")
	b.WriteString("    pad1: u32,\n")
	b.WriteString("}\n\n")
	b.WriteString("@group(0) @binding(0) var<uniform> globals: Globals;\n")
	b.WriteString("@group(0) @binding(1) var<storage, read> src: array<vec4<f32>>;\n")
	b.WriteString("@group(0) @binding(2) var<storage, read_write> dst: array<vec4<f32>>;\n")
	if span.ParamCount() > 0 {
		b.WriteString("@group(0) @binding(3) var<storage, read> params: array<f32>;\n")
	}
	b.WriteString("\n")
	b.WriteString(fusePrelude)

	seen := make(map[string]string)
	for _, st := range span.Stages {
		k := st.Kernel
		if prev, ok := seen[k.Name]; ok {
			if prev != k.WGSL {
				return "", fmt.Errorf("kernel %q has conflicting definitions", k.Name)
			}
			continue
		}
		seen[k.Name] = k.WGSL
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(k.WGSL, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n@compute @workgroup_size(8, 8)\n")
	b.WriteString("fn main(@builtin(global_invocation_id) gid: vec3<u32>) {\n")
	b.WriteString("    if (gid.x >= globals.width || gid.y >= globals.height) {\n")
	b.WriteString("        return;\n")
	b.WriteString("    }\n")
	b.WriteString("    let i = gid.y * globals.width + gid.x;\n")
	b.WriteString("    var c = src[i];\n")
	offset := 0
	for _, st := range span.Stages {
		args := make([]string, 0, 1+len(st.Kernel.Params))
		args = append(args, "c")
		for range st.Kernel.Params {
			args = append(args, fmt.Sprintf("params[%du]", offset))
			offset++
		}
		fmt.Fprintf(&b, "    c = %s(%s);\n", st.Kernel.Name, strings.Join(args, ", "))
	}
	b.WriteString("    dst[i] = c;\n")
	b.WriteString("}\n")
	return b.String(), nil
}
