package compile

import (
	"sort"

	"github.com/vk/rastergraph/internal/proto"
)

// orderFlat sorts flat nodes topologically. Ties break on the originating
// node-id path, so a given document state always orders identically.
// References to nodes that were never emitted are ignored; freezing
// poisons their dependents.
func orderFlat(nodes []*flatNode) []*flatNode {
	sort.SliceStable(nodes, func(i, j int) bool { return pathLess(nodes[i].key, nodes[j].key) })

	index := make(map[proto.Identity]int, len(nodes))
	for i, n := range nodes {
		index[n.identity] = i
	}

	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, n := range nodes {
		for _, in := range n.inputs {
			if in.ref == nil {
				continue
			}
			p, ok := index[in.ref.identity]
			if !ok {
				continue
			}
			indegree[i]++
			dependents[p] = append(dependents[p], i)
		}
	}

	out := make([]*flatNode, 0, len(nodes))
	done := make([]bool, len(nodes))
	for len(out) < len(nodes) {
		picked := -1
		for i := range nodes {
			if !done[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked == -1 {
			break
		}
		done[picked] = true
		out = append(out, nodes[picked])
		for _, d := range dependents[picked] {
			indegree[d]--
		}
	}
	return out
}

func pathLess(a, b []uint64) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
