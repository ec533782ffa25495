package construct

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/stackwright/stackwright/pkg/graphutil"
	"github.com/stackwright/stackwright/pkg/set"
)

// AddDependency records that `from` must be handled before `to` may depend
// on it (an edge from -> to in the tree's dependency graph). Both constructs
// must belong to the same tree. Cycles are rejected at add time.
func AddDependency(from, to *Construct) error {
	root := from.Root()
	if root != to.Root() {
		return fmt.Errorf("cannot depend across trees: %q and %q", from.Path(), to.Path())
	}
	err := root.deps.AddEdge(from.Path(), to.Path())
	switch {
	case errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("dependency %q -> %q would create a cycle: %w", from.Path(), to.Path(), err)
	}
	return err
}

// WalkDependencies visits the transitive prerequisites of c in breadth-first
// order, nearest first. fn may return [graphutil.SkipPath] to stop descending
// below a node, or [graphutil.StopWalk] to end the walk.
func WalkDependencies(c *Construct, fn func(*Construct, error) error) error {
	return walkDeps(c, fn, graphutil.WalkUp[string, *Construct])
}

// WalkDependents visits the constructs that transitively depend on c, with
// the same control sentinels as [WalkDependencies].
func WalkDependents(c *Construct, fn func(*Construct, error) error) error {
	return walkDeps(c, fn, graphutil.WalkDown[string, *Construct])
}

func walkDeps(
	c *Construct,
	fn func(*Construct, error) error,
	walk func(graph.Graph[string, *Construct], string, graphutil.WalkFunc[string]) error,
) error {
	root := c.Root()
	return walk(root.deps, c.Path(), func(path string, nerr error) error {
		node := root
		if path != "" {
			found, ok := root.FindPath(path)
			if !ok {
				return fmt.Errorf("dependency graph references unknown construct %q", path)
			}
			node = found
		}
		return fn(node, nerr)
	})
}

// Dependencies returns what c directly depends on (its prerequisites),
// sorted by path.
func Dependencies(c *Construct) ([]*Construct, error) {
	return direct(c, WalkDependencies)
}

// Dependents returns the constructs that directly depend on c, sorted by
// path.
func Dependents(c *Construct) ([]*Construct, error) {
	return direct(c, WalkDependents)
}

// direct collects the first level of a walk: skipping below every visited
// node leaves exactly the immediate neighbors.
func direct(c *Construct, walk func(*Construct, func(*Construct, error) error) error) ([]*Construct, error) {
	paths := set.Set[string]{}
	err := walk(c, func(n *Construct, nerr error) error {
		if nerr != nil {
			return nerr
		}
		paths.Add(n.Path())
		return graphutil.SkipPath
	})
	if err != nil {
		return nil, err
	}
	return byPath(c.Root(), set.Sorted(paths, func(a, b string) bool { return a < b }))
}

// DependencyOrder returns every construct registered in the tree in a stable
// topological order of the dependency graph: a construct always appears
// before anything that depends on it.
func DependencyOrder(root *Construct) ([]*Construct, error) {
	order, err := graphutil.TopologicalSort(root.deps, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, err
	}
	return byPath(root, order)
}

// byPath maps paths back to nodes, preserving the given order.
func byPath(root *Construct, paths []string) ([]*Construct, error) {
	out := make([]*Construct, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			out = append(out, root)
			continue
		}
		c, ok := root.FindPath(p)
		if !ok {
			return nil, fmt.Errorf("dependency graph references unknown construct %q", p)
		}
		out = append(out, c)
	}
	return out, nil
}
