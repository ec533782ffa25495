// Package construct implements the in-memory tree that infrastructure is
// declared into: scoped nodes with stable paths, an explicit dependency
// graph, and a validation walk that runs after the tree is fully built.
package construct

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dominikbraun/graph"
)

type (
	// Construct is one node of the tree. Nodes are created with [New] under
	// a parent scope and never move; a node's path is its identity for the
	// rest of the library (dependency edges, logical IDs).
	Construct struct {
		id       string
		parent   *Construct
		children []*Construct
		byID     map[string]*Construct

		validations []func() error

		// deps is only populated on the root.
		deps graph.Graph[string, *Construct]
	}

	// ValidationError tags a failed validation with the offending node.
	ValidationError struct {
		Path  string
		Cause error
	}
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// NewRoot creates the anonymous root scope of a tree.
func NewRoot() *Construct {
	root := &Construct{
		byID: make(map[string]*Construct),
	}
	root.deps = graph.New(
		func(c *Construct) string { return c.Path() },
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	)
	// The root participates in the graph so walks can start anywhere.
	_ = root.deps.AddVertex(root)
	return root
}

// New adds a child with the given scope-local id. IDs must be unique within
// their scope; `/` is reserved as the path separator.
func New(scope *Construct, id string) (*Construct, error) {
	if scope == nil {
		return nil, fmt.Errorf("construct %q: nil scope", id)
	}
	if !idPattern.MatchString(id) {
		return nil, fmt.Errorf("invalid construct id %q (must match %s)", id, idPattern)
	}
	if _, ok := scope.byID[id]; ok {
		return nil, fmt.Errorf("construct %q already exists in scope %q", id, scope.Path())
	}

	c := &Construct{
		id:     id,
		parent: scope,
		byID:   make(map[string]*Construct),
	}
	scope.children = append(scope.children, c)
	scope.byID[id] = c

	if err := c.Root().deps.AddVertex(c); err != nil {
		return nil, fmt.Errorf("could not register %q: %w", c.Path(), err)
	}
	return c, nil
}

func (c *Construct) ID() string {
	return c.id
}

func (c *Construct) Parent() *Construct {
	return c.parent
}

func (c *Construct) Root() *Construct {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Path returns the `/`-joined ids from the root down to c. The root itself
// has an empty path.
func (c *Construct) Path() string {
	if c.parent == nil {
		return ""
	}
	parent := c.parent.Path()
	if parent == "" {
		return c.id
	}
	return parent + "/" + c.id
}

// Children returns a copy of c's children in declaration order.
func (c *Construct) Children() []*Construct {
	return append([]*Construct{}, c.children...)
}

func (c *Construct) Child(id string) (*Construct, bool) {
	child, ok := c.byID[id]
	return child, ok
}

// FindPath descends from c along a `/`-separated path.
func (c *Construct) FindPath(path string) (*Construct, bool) {
	current := c
	for _, part := range strings.Split(path, "/") {
		next, ok := current.byID[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Walk visits c and every descendant in breadth-first declaration order.
// Returning an error from fn stops the walk.
func (c *Construct) Walk(fn func(*Construct) error) error {
	queue := []*Construct{c}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if err := fn(current); err != nil {
			return err
		}
		queue = append(queue, current.children...)
	}
	return nil
}

// AddValidation registers fn to run during [ValidateTree]. Validations run
// after the tree is complete, so they may inspect state that was unset when
// the node was created.
func (c *Construct) AddValidation(fn func() error) {
	c.validations = append(c.validations, fn)
}

// ValidateTree runs every validation in the tree rooted at root and joins
// the failures, one [ValidationError] per offending construct.
func ValidateTree(root *Construct) error {
	var errs []error
	_ = root.Walk(func(c *Construct) error {
		for _, fn := range c.validations {
			if err := fn(); err != nil {
				errs = append(errs, &ValidationError{Path: c.Path(), Cause: err})
			}
		}
		return nil
	})
	return errors.Join(errs...)
}

func (e *ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("validation failed for %s: %v", path, e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
