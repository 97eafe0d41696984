// Package value defines the concrete values that flow between nodes.
//
// Scalar values (numbers, strings, booleans) are ordinary cty values.
// Domain objects that have no useful cty structure (raster images, vector
// paths, graphic groups, colors, affine transforms) are wrapped in cty
// capsule types so they can travel through the same pipeline as scalars
// while keeping their native Go representation.
//
// The package also provides canonical content digests for any value the
// engine may cache, which is what makes memoization keys stable across
// recompilations.
package value
