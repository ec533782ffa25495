// Package synth runs the synthesis pass: it walks a fully built construct
// tree, wires cross-stack references, resolves every deferred value against
// a fresh resolution context, and emits one template per stack plus an
// assembly manifest.
package synth

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stackwright/stackwright/pkg/cfn"
	"github.com/stackwright/stackwright/pkg/construct"
	"github.com/stackwright/stackwright/pkg/graphutil"
	"github.com/stackwright/stackwright/pkg/set"
	"github.com/stackwright/stackwright/pkg/stack"
	"github.com/stackwright/stackwright/pkg/token"
)

type Options struct {
	// Format is yaml (default) or json.
	Format string
}

// Synthesize runs one pass over app. The pass is single-threaded and owns
// its resolution context; concurrent passes over one app are unsupported and
// must be serialized by the caller. On any error the partial assembly is
// discarded.
func Synthesize(app *stack.App, opts Options) (*Assembly, error) {
	log := zap.S().With("op", "synth")

	ext, render, err := renderer(opts.Format)
	if err != nil {
		return nil, err
	}

	// The tree must be complete before anything resolves; validations run
	// first so producers never observe an invalid tree.
	if err := construct.ValidateTree(app.Node()); err != nil {
		return nil, err
	}
	if err := app.WireReferences(); err != nil {
		return nil, err
	}

	ordered, err := deployOrder(app)
	if err != nil {
		return nil, err
	}

	asm := newAssembly(uuid.NewString())
	ctx := token.NewContext()

	for _, s := range ordered {
		resolved, err := s.Template().Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not resolve stack %q: %w", s.Name(), err)
		}
		for _, id := range resolved.SortedLogicalIDs() {
			if token.ContainsDeferred(resolved.Resources[id].Properties) {
				return nil, fmt.Errorf("stack %q resource %q still has deferred values after resolution", s.Name(), id)
			}
		}

		env := s.Environment()
		account, err := ctx.Resolve(env.Account)
		if err != nil {
			return nil, fmt.Errorf("could not resolve account for stack %q: %w", s.Name(), err)
		}
		region, err := ctx.Resolve(env.Region)
		if err != nil {
			return nil, fmt.Errorf("could not resolve region for stack %q: %w", s.Name(), err)
		}

		content, err := render(resolved)
		if err != nil {
			return nil, fmt.Errorf("could not render stack %q: %w", s.Name(), err)
		}

		file := s.Name() + ".template." + ext
		asm.stage(file, content)

		prereqs, err := stackDependencies(app, s)
		if err != nil {
			return nil, err
		}
		asm.Manifest.Stacks = append(asm.Manifest.Stacks, StackArtifact{
			Name:         s.Name(),
			TemplateFile: file,
			Account:      fmt.Sprint(account),
			Region:       fmt.Sprint(region),
			DependsOn:    prereqs,
		})
		log.Debugf("synthesized %s (%d resources)", s.Name(), len(resolved.Resources))
	}

	if err := asm.finalize(); err != nil {
		return nil, err
	}
	log.Infof("synthesized %d stacks", len(ordered))
	return asm, nil
}

func renderer(format string) (string, func(*cfn.Template) ([]byte, error), error) {
	switch format {
	case "", "yaml":
		return "yaml", (*cfn.Template).RenderYAML, nil
	case "json":
		return "json", (*cfn.Template).RenderJSON, nil
	default:
		return "", nil, fmt.Errorf("unknown template format %q (expected yaml or json)", format)
	}
}

// deployOrder filters the tree-wide dependency order down to stacks: a stack
// always appears after every stack it imports values from.
func deployOrder(app *stack.App) ([]*stack.Stack, error) {
	byPath := make(map[string]*stack.Stack)
	for _, s := range app.Stacks() {
		byPath[s.Node().Path()] = s
	}

	order, err := construct.DependencyOrder(app.Node())
	if err != nil {
		return nil, fmt.Errorf("could not order stacks: %w", err)
	}

	ordered := make([]*stack.Stack, 0, len(byPath))
	for _, node := range order {
		if s, ok := byPath[node.Path()]; ok {
			ordered = append(ordered, s)
		}
	}
	if len(ordered) != len(byPath) {
		return nil, fmt.Errorf("dependency order lost stacks: expected %d, got %d", len(byPath), len(ordered))
	}
	return ordered, nil
}

// stackDependencies lists the nearest prerequisite stacks of s: the walk up
// the dependency graph stops descending at the first stack it reaches, so a
// manifest entry names only the stacks it must wait for directly, not their
// whole ancestry.
func stackDependencies(app *stack.App, s *stack.Stack) ([]string, error) {
	stacksByPath := make(map[string]*stack.Stack)
	for _, other := range app.Stacks() {
		if other != s {
			stacksByPath[other.Node().Path()] = other
		}
	}

	found := set.Set[string]{}
	err := construct.WalkDependencies(s.Node(), func(c *construct.Construct, nerr error) error {
		if nerr != nil {
			return nerr
		}
		if dep, ok := stacksByPath[c.Path()]; ok {
			found.Add(dep.Name())
			return graphutil.SkipPath
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found.Len() == 0 {
		return nil, nil
	}
	return set.Sorted(found, func(a, b string) bool { return a < b }), nil
}
