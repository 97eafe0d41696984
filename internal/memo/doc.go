// Package memo is the evaluation cache: a sharded LRU keyed by a
// node's stable identity plus the digest of its resolved inputs.
// Concurrent computations for one key coalesce onto a single flight,
// and a recompilation prunes entries whose identity no longer exists.
package memo
