package appdef

import (
	"fmt"
	"strings"

	"github.com/stackwright/stackwright/pkg/stack"
)

// refKey is the single-key map form that marks a reference in a property
// bag: {$ref: stackName/resourceID} or {$ref: stackName/resourceID#Attr}.
const refKey = "$ref"

// Build constructs the app: all stacks and resources first, then reference
// binding and explicit orderings in a second pass, so definitions may refer
// forward freely.
func (def *Definition) Build() (*stack.App, error) {
	app := stack.NewApp(stack.AppProps{Context: def.Context})

	type pending struct {
		stackDef StackDef
		stk      *stack.Stack
		defs     []ResourceDef
	}

	resources := make(map[string]*stack.Resource)
	var all []pending

	for _, sd := range def.Stacks {
		stk, err := stack.NewStack(app, sd.Name, stack.StackProps{
			Description: sd.Description,
			Account:     sd.Account,
			Region:      sd.Region,
		})
		if err != nil {
			return nil, err
		}
		defs, err := sd.resourceDefs()
		if err != nil {
			return nil, fmt.Errorf("stack %q: %w", sd.Name, err)
		}
		for _, rd := range defs {
			r, err := stk.AddResource(rd.ID, rd.Type, nil)
			if err != nil {
				return nil, fmt.Errorf("stack %q: %w", sd.Name, err)
			}
			resources[sd.Name+"/"+rd.ID] = r
		}
		all = append(all, pending{stackDef: sd, stk: stk, defs: defs})
	}

	for _, p := range all {
		for _, rd := range p.defs {
			r := resources[p.stackDef.Name+"/"+rd.ID]
			for key, value := range rd.Properties {
				bound, err := bindRefs(value, resources)
				if err != nil {
					return nil, fmt.Errorf("stack %q resource %q property %q: %w",
						p.stackDef.Name, rd.ID, key, err)
				}
				r.SetProperty(key, bound)
			}
			for _, depID := range rd.DependsOn {
				dep, ok := resources[p.stackDef.Name+"/"+depID]
				if !ok {
					return nil, fmt.Errorf("stack %q resource %q dependsOn unknown resource %q",
						p.stackDef.Name, rd.ID, depID)
				}
				if err := r.DependsOn(dep); err != nil {
					return nil, err
				}
			}
		}

		for name, od := range p.stackDef.Outputs {
			bound, err := bindRefs(od.Value, resources)
			if err != nil {
				return nil, fmt.Errorf("stack %q output %q: %w", p.stackDef.Name, name, err)
			}
			if err := p.stk.AddOutput(name, bound, od.Description); err != nil {
				return nil, err
			}
		}
	}
	return app, nil
}

// bindRefs walks a property value and replaces every {$ref: ...} marker with
// the deferred value handed out by the referenced resource.
func bindRefs(v any, resources map[string]*stack.Resource) (any, error) {
	switch v := v.(type) {
	case map[string]any:
		if target, ok := refTarget(v); ok {
			return lookupRef(target, resources)
		}
		out := make(map[string]any, len(v))
		for key, elem := range v {
			bound, err := bindRefs(elem, resources)
			if err != nil {
				return nil, err
			}
			out[key] = bound
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			bound, err := bindRefs(elem, resources)
			if err != nil {
				return nil, err
			}
			out[i] = bound
		}
		return out, nil
	}
	return v, nil
}

func refTarget(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	raw, ok := m[refKey]
	if !ok {
		return "", false
	}
	target, ok := raw.(string)
	return target, ok
}

func lookupRef(target string, resources map[string]*stack.Resource) (any, error) {
	path, attribute, _ := strings.Cut(target, "#")
	r, ok := resources[path]
	if !ok {
		return nil, fmt.Errorf("reference %q does not match any stack/resource", target)
	}
	if attribute == "" {
		return r.Ref(), nil
	}
	return r.GetAtt(attribute), nil
}
