// Package engine executes compiled networks. It walks the requested
// node's ancestor closure with a bounded worker pool, memoizes node
// results through the cache layer, and routes runs of device-eligible
// raster nodes through the GPU backend with a native CPU fallback.
package engine
