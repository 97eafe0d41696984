package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/proto"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/value"
)

// task is one schedulable unit of a request: a single node, or a whole
// fused span executed at its terminal node. Interior span members are
// never scheduled.
type task struct {
	index int
	node  *proto.Node
	reg   *registry.RegisteredNode
	span  *spanPlan

	dependents []*task
	depCount   atomic.Int32
	skipOnce   sync.Once

	result cty.Value
	err    error
}

// spanPlan describes a maximal run of adjacent device-eligible nodes.
// members are network indices in application order; paramSlots maps each
// member's kernel parameters to its input slots.
type spanPlan struct {
	members    []int
	regs       []*registry.RegisteredNode
	paramSlots [][]int
}

// run is the per-request state: the scheduled tasks of the demand
// closure, keyed by network index.
type run struct {
	network *proto.Network
	tasks   map[int]*task
	target  *task
	spans   int
}

// plan builds the schedule for one request: the target's ancestor
// closure, with adjacent device-eligible raster chains fused into spans
// and dependency edges rewired around the fused interiors.
func (e *Engine) plan(network *proto.Network, target int) (*run, error) {
	closure := network.Closure(target)

	regs := make([]*registry.RegisteredNode, len(network.Nodes))
	slots := make([][]int, len(network.Nodes))
	for _, i := range closure {
		rn, err := e.reg.Lookup(network.Nodes[i].Type)
		if err != nil {
			return nil, fmt.Errorf("planning node %s: %w", network.Nodes[i].Identity, err)
		}
		regs[i] = rn
		slots[i] = kernelParamSlots(rn)
	}

	// Reference counts within the closure. A producer consumed more than
	// once must materialize, so it always ends a span.
	consumers := make(map[int]int, len(closure))
	for _, i := range closure {
		for _, in := range network.Nodes[i].Inputs {
			if in.Ref != nil {
				consumers[in.Ref.Index]++
			}
		}
	}

	fusible := func(i int) bool {
		rn := regs[i]
		if rn == nil || rn.Kernel == nil || !e.backend.Available() {
			return false
		}
		node := network.Nodes[i]
		if len(node.OutputTypes) != 1 || !node.OutputTypes[0].Equals(value.RasterType) {
			return false
		}
		if len(node.Inputs) != 1+len(rn.Kernel.Params) || slots[i] == nil {
			return false
		}
		return node.Inputs[0].Type.Equals(value.RasterType)
	}

	// fusePrev[i] is the member preceding i in its span, -1 when i
	// starts one. The raster edge must be unconverted and i must be its
	// producer's only consumer.
	fusePrev := make(map[int]int, len(closure))
	absorbed := make(map[int]bool, len(closure))
	for _, i := range closure {
		fusePrev[i] = -1
		if !fusible(i) {
			continue
		}
		in := network.Nodes[i].Inputs[0]
		if in.Ref == nil || in.Convert != "" || in.Ref.Output != 0 {
			continue
		}
		p := in.Ref.Index
		if fusible(p) && consumers[p] == 1 {
			fusePrev[i] = p
			absorbed[p] = true
		}
	}

	r := &run{network: network, tasks: make(map[int]*task, len(closure))}
	for _, i := range closure {
		if absorbed[i] {
			continue
		}
		t := &task{index: i, node: network.Nodes[i], reg: regs[i]}
		if fusible(i) {
			members := []int{i}
			for p := fusePrev[i]; p >= 0; p = fusePrev[p] {
				members = append(members, p)
			}
			for l, h := 0, len(members)-1; l < h; l, h = l+1, h-1 {
				members[l], members[h] = members[h], members[l]
			}
			sp := &spanPlan{members: members}
			for _, m := range members {
				sp.regs = append(sp.regs, regs[m])
				sp.paramSlots = append(sp.paramSlots, slots[m])
			}
			t.span = sp
			r.spans++
		}
		r.tasks[i] = t
	}

	for _, t := range r.tasks {
		for _, d := range taskDeps(network, t) {
			producer, ok := r.tasks[d]
			if !ok {
				return nil, fmt.Errorf("planning node %s: dependency %d is not scheduled", t.node.Identity, d)
			}
			producer.dependents = append(producer.dependents, t)
			t.depCount.Add(1)
		}
	}

	r.target = r.tasks[target]
	return r, nil
}

// taskDeps lists the distinct scheduled producers a task waits on. For a
// span terminal that is every non-interior reference of every member;
// interior raster edges resolve inside the span itself.
func taskDeps(network *proto.Network, t *task) []int {
	seen := make(map[int]bool)
	var deps []int
	add := func(in proto.Input) {
		if in.Ref != nil && !seen[in.Ref.Index] {
			seen[in.Ref.Index] = true
			deps = append(deps, in.Ref.Index)
		}
	}
	if t.span == nil {
		for _, in := range t.node.Inputs {
			add(in)
		}
		return deps
	}
	for mi, m := range t.span.members {
		for slot, in := range network.Nodes[m].Inputs {
			if mi > 0 && slot == 0 {
				continue
			}
			add(in)
		}
	}
	return deps
}

// kernelParamSlots maps a kernel's parameters to signature input slots.
// Registry validation guarantees every parameter names a declared number
// input; nil means the node carries no kernel.
func kernelParamSlots(rn *registry.RegisteredNode) []int {
	if rn.Kernel == nil {
		return nil
	}
	slots := make([]int, 0, len(rn.Kernel.Params))
	for _, name := range rn.Kernel.Params {
		for i, p := range rn.Signature.Inputs {
			if p.Name == name {
				slots = append(slots, i)
				break
			}
		}
	}
	if len(slots) != len(rn.Kernel.Params) {
		return nil
	}
	return slots
}
