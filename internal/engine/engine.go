package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/gpu"
	"github.com/vk/rastergraph/internal/memo"
	"github.com/vk/rastergraph/internal/proto"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/value"
)

// Engine evaluates compiled networks. Evaluation is demand-driven (only
// the requested node's ancestor closure runs), memoized through the
// cache layer, and concurrent: independent subtrees are walked by a
// bounded worker pool over the ready frontier.
type Engine struct {
	reg     *registry.Registry
	cache   *memo.Cache
	backend *gpu.Backend
	workers int
}

// New builds an engine. A nil cache gets a default-capacity one, a nil
// backend keeps every node on its native handler, workers <= 0 selects
// GOMAXPROCS.
func New(reg *registry.Registry, cache *memo.Cache, backend *gpu.Backend, workers int) *Engine {
	if cache == nil {
		cache = memo.New(memo.DefaultCapacity)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{reg: reg, cache: cache, backend: backend, workers: workers}
}

// Cache exposes the evaluation cache, for recompilation pruning and
// stats reporting.
func (e *Engine) Cache() *memo.Cache { return e.cache }

// Evaluate computes the value of a root-level document node. Failures
// inside node implementations surface as *EvalError naming the failed
// node; nodes independent of the failure still complete and populate
// the cache.
func (e *Engine) Evaluate(ctx context.Context, network *proto.Network, request document.NodeID) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	idx, ok := network.Index(request)
	if !ok {
		return cty.NilVal, fmt.Errorf("node %d is not part of the compiled network", request)
	}

	r, err := e.plan(network, idx)
	if err != nil {
		return cty.NilVal, err
	}
	logger.Debug("Planned evaluation.", "request", request, "tasks", len(r.tasks), "spans", r.spans)

	readyChan := make(chan *task, len(r.tasks))
	var wg sync.WaitGroup
	wg.Add(len(r.tasks))
	for _, t := range r.tasks {
		if t.depCount.Load() == 0 {
			readyChan <- t
		}
	}

	workers := e.workers
	if workers > len(r.tasks) {
		workers = len(r.tasks)
	}
	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx, r, readyChan, &wg, i)
	}
	wg.Wait()
	close(readyChan)

	if ctx.Err() != nil {
		return cty.NilVal, ctx.Err()
	}
	if r.target.err != nil {
		return cty.NilVal, r.target.err
	}
	return r.target.result, nil
}

// worker is the processing loop for one pool worker.
func (e *Engine) worker(ctx context.Context, r *run, readyChan chan *task, wg *sync.WaitGroup, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)

	for t := range readyChan {
		taskLogger := logger.With("node", t.node.Identity)

		if ctx.Err() != nil {
			t.skipOnce.Do(func() {
				taskLogger.Warn("Context canceled, skipping node evaluation.")
				t.err = ctx.Err()
				wg.Done()
				e.skipDependents(ctx, t, wg)
			})
			continue
		}

		taskLogger.Debug("Worker picked up node.")
		v, err := e.compute(ctx, r, t)
		if err != nil {
			if _, ok := err.(*EvalError); !ok {
				err = &EvalError{Node: t.node.Identity, Cause: err}
			}
			taskLogger.Error("Node evaluation failed.", "error", err)
			t.err = err
			e.skipDependents(ctx, t, wg)
			wg.Done()
			continue
		}

		t.result = v
		for _, dep := range t.dependents {
			if dep.depCount.Add(-1) == 0 {
				readyChan <- dep
			}
		}
		wg.Done()
	}
}

// skipDependents marks every downstream task failed with the upstream
// root cause. A failed task never decrements its dependents, so a
// skipped task cannot also reach the ready channel.
func (e *Engine) skipDependents(ctx context.Context, t *task, wg *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx)
	for _, dep := range t.dependents {
		dep.skipOnce.Do(func() {
			logger.Warn("Skipping node due to upstream failure.", "node", dep.node.Identity, "upstream", t.node.Identity)
			dep.err = t.err
			wg.Done()
			e.skipDependents(ctx, dep, wg)
		})
	}
}

// compute produces one task's value, consulting the cache first.
func (e *Engine) compute(ctx context.Context, r *run, t *task) (cty.Value, error) {
	if t.span != nil {
		return e.computeSpan(ctx, r, t)
	}

	resolved, err := e.resolveInputs(r, t.node)
	if err != nil {
		return cty.NilVal, err
	}
	digest, err := value.DigestValues(resolved)
	if err != nil {
		return cty.NilVal, fmt.Errorf("hashing inputs: %w", err)
	}

	key := memo.Key{Identity: t.node.Identity, Inputs: digest}
	return e.cache.Do(ctx, key, func(ctx context.Context) (cty.Value, error) {
		return e.reg.Invoke(ctx, t.reg, resolved)
	})
}

func (e *Engine) resolveInputs(r *run, node *proto.Node) ([]cty.Value, error) {
	resolved := make([]cty.Value, len(node.Inputs))
	for i, in := range node.Inputs {
		v, err := e.resolveValue(r, in)
		if err != nil {
			return nil, err
		}
		resolved[i] = v
	}
	return resolved, nil
}

// resolveValue materializes one frozen input: the literal, or the
// producer's output slot with the input's implicit conversion applied.
func (e *Engine) resolveValue(r *run, in proto.Input) (cty.Value, error) {
	if in.IsLiteral() {
		return in.Literal, nil
	}
	producer := r.tasks[in.Ref.Index]
	if producer == nil {
		return cty.NilVal, fmt.Errorf("reference to unscheduled node %d", in.Ref.Index)
	}
	v := producer.result
	if len(producer.node.OutputTypes) > 1 {
		v = v.Index(cty.NumberIntVal(int64(in.Ref.Output)))
	}
	if in.Convert != "" {
		conv, ok := e.reg.Conversions.LookupName(in.Convert)
		if !ok {
			return cty.NilVal, fmt.Errorf("unknown conversion %q", in.Convert)
		}
		converted, err := conv.Fn(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("applying conversion %q: %w", in.Convert, err)
		}
		v = converted
	}
	return v, nil
}
