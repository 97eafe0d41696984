package memo

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/singleflight"

	"github.com/vk/rastergraph/internal/proto"
	"github.com/vk/rastergraph/internal/value"
)

const (
	// shardCount must be a power of two so shard selection is a mask.
	shardCount = 16
	shardMask  = shardCount - 1

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 256
)

// Key identifies one memoized result: the producing node's stable
// identity plus the digest of everything that reached its inputs.
type Key struct {
	Identity proto.Identity
	Inputs   value.Digest
}

func (k Key) String() string {
	return string(k.Identity) + "@" + k.Inputs.String()
}

func (k Key) hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.Identity))
	_, _ = h.Write(k.Inputs[:])
	return h.Sum64()
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Len        int
	Capacity   int
	Hits       uint64
	Misses     uint64
	HitRate    float64
	Evictions  uint64
	Pruned     uint64
	Generation uint64
}

type cacheEntry struct {
	value      cty.Value
	generation uint64
	node       *lruNode
}

type shard struct {
	mu      sync.RWMutex
	entries map[Key]*cacheEntry
	lru     *lruList
}

// Cache is a sharded, memoizing LRU for evaluated node outputs. Reads
// and writes contend only within a shard; concurrent computations for
// one key collapse onto a single flight.
type Cache struct {
	shards   [shardCount]*shard
	capacity int

	generation atomic.Uint64
	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	pruned     atomic.Uint64

	group singleflight.Group
}

// New creates a cache with the given per-shard capacity. If capacity
// is not positive, DefaultCapacity is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &shard{
			entries: make(map[Key]*cacheEntry),
			lru:     &lruList{},
		}
	}
	return c
}

func (c *Cache) getShard(key Key) *shard {
	return c.shards[key.hash()&shardMask]
}

// Get retrieves a cached value. A hit refreshes the entry's recency.
func (c *Cache) Get(key Key) (cty.Value, bool) {
	s := c.getShard(key)

	s.mu.RLock()
	_, exists := s.entries[key]
	s.mu.RUnlock()
	if !exists {
		c.misses.Add(1)
		return cty.NilVal, false
	}

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		return cty.NilVal, false
	}
	s.lru.MoveToFront(entry.node)
	v := entry.value
	s.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// peek reads without touching counters or recency. Flights use it to
// re-check after winning the race for a key.
func (c *Cache) peek(key Key) (cty.Value, bool) {
	s := c.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return cty.NilVal, false
	}
	return entry.value, true
}

// Put stores a computed value. Storing a value whose type disagrees with
// the existing entry for the same key panics: the key space has collided
// across incompatible computations, and serving either value would be
// silently wrong.
func (c *Cache) Put(key Key, v cty.Value) {
	s := c.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok {
		if !existing.value.Type().Equals(v.Type()) {
			panic(fmt.Sprintf("memo: key collision at %s: cached %#v, computed %#v",
				key, existing.value.Type(), v.Type()))
		}
		existing.value = v
		existing.generation = c.generation.Load()
		s.lru.MoveToFront(existing.node)
		return
	}

	for s.lru.Len() >= c.capacity {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}

	node := s.lru.PushFront(key)
	s.entries[key] = &cacheEntry{
		value:      v,
		generation: c.generation.Load(),
		node:       node,
	}
}

// Do returns the cached value for key, computing it at most once even
// under concurrent callers. The computation runs detached from the
// caller's cancellation: a canceled caller returns early with ctx.Err()
// while the flight finishes and populates the cache for the next
// request. Failed computations are not cached.
func (c *Cache) Do(ctx context.Context, key Key, compute func(context.Context) (cty.Value, error)) (cty.Value, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// An earlier flight may have landed between the miss above
		// and this call.
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return cty.NilVal, err
		}
		c.Put(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return cty.NilVal, res.Err
		}
		return res.Val.(cty.Value), nil
	case <-ctx.Done():
		return cty.NilVal, ctx.Err()
	}
}

// Advance moves the cache to a new compilation. Entries whose identity
// survives in the network stay and are restamped; everything else is
// pruned. Returns the number of pruned entries.
//
// A flight that was already running may re-insert a dead identity after
// Advance returns; the next Advance removes it.
func (c *Cache) Advance(network *proto.Network) int {
	live := make(map[proto.Identity]bool, len(network.Nodes))
	for _, n := range network.Nodes {
		live[n.Identity] = true
	}
	gen := c.generation.Add(1)

	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, entry := range s.entries {
			if live[key.Identity] {
				entry.generation = gen
				continue
			}
			s.lru.Remove(entry.node)
			delete(s.entries, key)
			removed++
		}
		s.mu.Unlock()
	}
	c.pruned.Add(uint64(removed))
	return removed
}

// Clear removes all entries.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[Key]*cacheEntry)
		s.lru = &lruList{}
		s.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Len:        c.Len(),
		Capacity:   c.capacity,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
		Evictions:  c.evictions.Load(),
		Pruned:     c.pruned.Load(),
		Generation: c.generation.Load(),
	}
}
