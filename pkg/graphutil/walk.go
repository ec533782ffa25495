package graphutil

import (
	"errors"

	"github.com/dominikbraun/graph"

	"github.com/stackwright/stackwright/pkg/set"
)

type WalkFunc[K comparable] func(k K, nerr error) error

var (
	StopWalk = errors.New("stop walk")
	SkipPath = errors.New("skip path")
)

// WalkUp visits the transitive predecessors of start in BFS order.
func WalkUp[K comparable, T any](g graph.Graph[K, T], start K, f WalkFunc[K]) error {
	pred, err := g.PredecessorMap()
	if err != nil {
		return err
	}
	return walk(start, f, pred)
}

// WalkDown visits the transitive successors of start in BFS order.
func WalkDown[K comparable, T any](g graph.Graph[K, T], start K, f WalkFunc[K]) error {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}
	return walk(start, f, adj)
}

func walk[K comparable](start K, f WalkFunc[K], deps map[K]map[K]graph.Edge[K]) error {
	visited := set.Of(start)
	queue := make([]K, 0, len(deps[start]))
	for d := range deps[start] {
		queue = append(queue, d)
	}

	var err error
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited.Add(current)

		nerr := f(current, err)
		if errors.Is(nerr, StopWalk) {
			return err
		}
		if errors.Is(nerr, SkipPath) {
			continue
		}
		err = nerr

		for d := range deps[current] {
			if !visited.Contains(d) {
				queue = append(queue, d)
			}
		}
	}
	return err
}
