// Package gpu compiles fused WGSL kernel spans into compute pipelines
// and dispatches them against an injected device. When no device is
// available every entry point degrades to ErrUnavailable or to the
// span's CPU mirror, so callers never need a device to get a result.
package gpu
