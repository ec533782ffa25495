package graphutil

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// TopologicalSort returns a stable topological ordering of g, breaking ties
// between ready vertices with less. Unlike graph.StableTopologicalSort it
// reports an error naming the stuck vertices when the graph has a cycle
// instead of silently picking one.
func TopologicalSort[K comparable, T any](g graph.Graph[K, T], less func(a, b K) bool) ([]K, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	remaining := make(map[K]int, len(pred))
	for v, vp := range pred {
		remaining[v] = len(vp)
	}

	var ready []K
	for v, count := range remaining {
		if count == 0 {
			ready = append(ready, v)
		}
	}

	order := make([]K, 0, len(remaining))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		current := ready[0]
		ready = ready[1:]

		order = append(order, current)
		delete(remaining, current)

		for succ := range adj[current] {
			remaining[succ]--
			if remaining[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(remaining) > 0 {
		stuck := make([]K, 0, len(remaining))
		for v := range remaining {
			stuck = append(stuck, v)
		}
		sort.Slice(stuck, func(i, j int) bool { return less(stuck[i], stuck[j]) })
		return nil, fmt.Errorf("graph has a cycle through %v", stuck)
	}
	return order, nil
}
