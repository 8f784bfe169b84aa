package compile

import (
	"cmp"
	"slices"

	"github.com/chazu/patchbay/pkg/graph"
)

// depths assigns each node its distance from the output endpoint, walking
// backward along patches breadth first. A node's depth is one more than the
// deepest node it feeds directly. Unreached nodes keep depth -1.
//
// Relaxation is bounded by the node count: on an acyclic graph no depth can
// exceed it, so a node that does is on a cycle.
func depths(g *graph.Instrument) ([]int, error) {
	n := len(g.Nodes)
	depth := make([]int, n)
	for i := range depth {
		depth[i] = -1
	}
	at := func(i int) int {
		if i == graph.OutputNode {
			return 0
		}
		return depth[i]
	}

	queue := []int{graph.OutputNode}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, p := range g.Patches {
			if p.ToNode != current || p.FromNode < 0 {
				continue
			}
			d := at(current) + 1
			if d <= depth[p.FromNode] {
				continue
			}
			if d > n {
				nodes := graph.FindCycle(g)
				if len(nodes) == 0 {
					nodes = []int{p.FromNode}
				}
				return nil, &CycleError{Nodes: nodes}
			}
			depth[p.FromNode] = d
			queue = append(queue, p.FromNode)
		}
	}
	return depth, nil
}

// order returns the reached nodes by descending depth, ties broken by node
// index, so every producer runs before its consumers.
func order(depth []int) []int {
	var nodes []int
	for i, d := range depth {
		if d >= 0 {
			nodes = append(nodes, i)
		}
	}
	slices.SortFunc(nodes, func(a, b int) int {
		if c := cmp.Compare(depth[b], depth[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return nodes
}
