// Package hcldoc loads graph documents authored in HCL. The format
// mirrors the document model directly: `node "<type>" "<name>"` blocks
// instantiate registered node types or locally declared subgraphs,
// literal argument expressions become stored constants, and
// `node.<name>.<output>` references become connections. `subgraph`
// blocks declare reusable nested graphs with `import` entry points and
// `export` result nodes; a file-scope `export` marks a document export.
package hcldoc
