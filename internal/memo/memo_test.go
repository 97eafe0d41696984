package memo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/proto"
	"github.com/vk/rastergraph/internal/value"
)

func testKey(t *testing.T, identity string) Key {
	t.Helper()
	d, err := value.DigestValue(cty.StringVal(identity))
	require.NoError(t, err)
	return Key{Identity: proto.Identity(identity), Inputs: d}
}

// sameShardKeys generates keys that all land in shard 0, so per-shard
// LRU behavior is observable.
func sameShardKeys(t *testing.T, n int) []Key {
	t.Helper()
	var keys []Key
	for i := 0; len(keys) < n; i++ {
		k := testKey(t, fmt.Sprintf("node-%d", i))
		if k.hash()&shardMask == 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestGetMissThenHit(t *testing.T) {
	c := New(0)
	k := testKey(t, "1")

	_, ok := c.Get(k)
	require.False(t, ok)

	c.Put(k, cty.NumberIntVal(42))
	v, ok := c.Get(k)
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(42)))

	st := c.Stats()
	assert.EqualValues(t, 1, st.Hits)
	assert.EqualValues(t, 1, st.Misses)
	assert.Equal(t, 1, st.Len)
	assert.InDelta(t, 0.5, st.HitRate, 0.001)
}

func TestLRUEvictsColdestEntry(t *testing.T) {
	c := New(2)
	keys := sameShardKeys(t, 3)

	c.Put(keys[0], cty.NumberIntVal(0))
	c.Put(keys[1], cty.NumberIntVal(1))

	// Refresh keys[0] so keys[1] is the coldest.
	_, ok := c.Get(keys[0])
	require.True(t, ok)

	c.Put(keys[2], cty.NumberIntVal(2))

	_, ok = c.Get(keys[1])
	assert.False(t, ok, "the coldest entry must be evicted")
	_, ok = c.Get(keys[0])
	assert.True(t, ok)
	_, ok = c.Get(keys[2])
	assert.True(t, ok)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestPutOverwritesSameType(t *testing.T) {
	c := New(0)
	k := testKey(t, "1")
	c.Put(k, cty.NumberIntVal(1))
	c.Put(k, cty.NumberIntVal(2))

	v, ok := c.Get(k)
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(2)))
	assert.Equal(t, 1, c.Len())
}

func TestPutPanicsOnTypeCollision(t *testing.T) {
	c := New(0)
	k := testKey(t, "1")
	c.Put(k, cty.NumberIntVal(1))

	require.Panics(t, func() {
		c.Put(k, cty.StringVal("not a number"))
	})
}

func TestDoCoalescesConcurrentCallers(t *testing.T) {
	c := New(0)
	k := testKey(t, "7")
	gate := make(chan struct{})
	var computes atomic.Int32

	const callers = 8
	results := make([]cty.Value, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Do(context.Background(), k, func(context.Context) (cty.Value, error) {
				computes.Add(1)
				<-gate
				return cty.NumberIntVal(42), nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.EqualValues(t, 1, computes.Load(), "concurrent callers must share one computation")
	for i, v := range results {
		assert.True(t, v.RawEquals(cty.NumberIntVal(42)), "caller %d", i)
	}
}

func TestDoDetachesFromCancellation(t *testing.T) {
	c := New(0)
	k := testKey(t, "9")
	gate := make(chan struct{})
	started := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.Do(ctx, k, func(context.Context) (cty.Value, error) {
			close(started)
			<-gate
			return cty.NumberIntVal(7), nil
		})
		done <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled, "the canceled caller returns immediately")

	close(gate)
	require.Eventually(t, func() bool {
		_, ok := c.peek(k)
		return ok
	}, time.Second, 5*time.Millisecond, "the detached flight must still populate the cache")

	v, ok := c.Get(k)
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(7)))
}

func TestDoDoesNotCacheFailures(t *testing.T) {
	c := New(0)
	k := testKey(t, "3")
	boom := errors.New("boom")
	var computes atomic.Int32
	compute := func(context.Context) (cty.Value, error) {
		computes.Add(1)
		return cty.NilVal, boom
	}

	_, err := c.Do(context.Background(), k, compute)
	require.ErrorIs(t, err, boom)
	_, err = c.Do(context.Background(), k, compute)
	require.ErrorIs(t, err, boom)

	assert.EqualValues(t, 2, computes.Load(), "failures must be recomputed")
	assert.Equal(t, 0, c.Len())
}

func TestAdvancePrunesDeadIdentities(t *testing.T) {
	c := New(0)
	kept := testKey(t, "1")
	keptOther := Key{Identity: "1", Inputs: testKey(t, "other-inputs").Inputs}
	dead := testKey(t, "2")
	deadInlined := testKey(t, "2/5")

	c.Put(kept, cty.NumberIntVal(1))
	c.Put(keptOther, cty.NumberIntVal(2))
	c.Put(dead, cty.NumberIntVal(3))
	c.Put(deadInlined, cty.NumberIntVal(4))

	network := &proto.Network{Nodes: []*proto.Node{{Identity: "1"}}}
	removed := c.Advance(network)
	assert.Equal(t, 2, removed)

	_, ok := c.Get(kept)
	assert.True(t, ok, "entries keyed by surviving identities keep hitting")
	_, ok = c.Get(keptOther)
	assert.True(t, ok)
	_, ok = c.Get(dead)
	assert.False(t, ok)
	_, ok = c.Get(deadInlined)
	assert.False(t, ok)

	st := c.Stats()
	assert.EqualValues(t, 2, st.Pruned)
	assert.EqualValues(t, 1, st.Generation)
}

func TestClear(t *testing.T) {
	c := New(0)
	c.Put(testKey(t, "1"), cty.NumberIntVal(1))
	c.Put(testKey(t, "2"), cty.NumberIntVal(2))
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(testKey(t, "1"))
	assert.False(t, ok)
}
