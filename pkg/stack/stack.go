package stack

import (
	"fmt"

	"github.com/stackwright/stackwright/pkg/cfn"
	"github.com/stackwright/stackwright/pkg/construct"
	"github.com/stackwright/stackwright/pkg/token"
)

type (
	// Stack is a deployable unit: a direct child of the App owning one
	// CloudFormation template.
	Stack struct {
		app      *App
		node     *construct.Construct
		template *cfn.Template
		env      Environment
	}

	StackProps struct {
		Description string
		// Account and Region pin the environment; leave empty to defer to
		// the app's deployment context at synthesis time.
		Account string
		Region  string
	}

	// Resource is a construct that renders as one template resource.
	Resource struct {
		stack     *Stack
		node      *construct.Construct
		logicalID string
		res       *cfn.Resource
	}
)

func NewStack(app *App, id string, props StackProps) (*Stack, error) {
	node, err := construct.New(app.Node(), id)
	if err != nil {
		return nil, err
	}

	env := contextEnvironment(app)
	if props.Account != "" {
		env.Account = token.Concrete(props.Account)
	}
	if props.Region != "" {
		env.Region = token.Concrete(props.Region)
	}

	s := &Stack{
		app:      app,
		node:     node,
		template: cfn.NewTemplate(props.Description),
		env:      env,
	}
	app.stacks = append(app.stacks, s)
	return s, nil
}

func (s *Stack) Name() string {
	return s.node.ID()
}

func (s *Stack) Node() *construct.Construct {
	return s.node
}

func (s *Stack) App() *App {
	return s.app
}

func (s *Stack) Environment() Environment {
	return s.env
}

// Template exposes the unresolved template; synthesis resolves a copy.
func (s *Stack) Template() *cfn.Template {
	return s.template
}

// AddResource declares a resource in this stack. Its logical ID is derived
// from the construct path, so the same id under different parents never
// collides.
func (s *Stack) AddResource(id, resourceType string, properties map[string]any) (*Resource, error) {
	if resourceType == "" {
		return nil, fmt.Errorf("resource %q: empty type", id)
	}
	node, err := construct.New(s.node, id)
	if err != nil {
		return nil, err
	}
	if properties == nil {
		properties = make(map[string]any)
	}

	r := &Resource{
		stack:     s,
		node:      node,
		logicalID: construct.LogicalID(node),
		res:       &cfn.Resource{Type: resourceType, Properties: properties},
	}
	if err := s.template.AddResource(r.logicalID, r.res); err != nil {
		return nil, err
	}
	return r, nil
}

// AddOutput declares a plain (non-exported) template output.
func (s *Stack) AddOutput(name string, value any, description string) error {
	return s.template.AddOutput(name, &cfn.Output{Value: value, Description: description})
}

func (r *Resource) LogicalID() string {
	return r.logicalID
}

func (r *Resource) Node() *construct.Construct {
	return r.node
}

func (r *Resource) Stack() *Stack {
	return r.stack
}

// SetProperty sets a top-level property. Values may be concrete or deferred.
func (r *Resource) SetProperty(key string, value any) {
	r.res.Properties[key] = value
}

// Ref returns a deferred value that resolves to {"Ref": <logical id>}. When
// consumed by another stack it is rewritten to an import during synthesis.
func (r *Resource) Ref() token.Value {
	v := cfn.Ref(r.logicalID)
	r.stack.app.registerRef(v, &refInfo{resource: r})
	return v
}

// GetAtt returns a deferred value for one of the resource's runtime
// attributes, e.g. "Arn".
func (r *Resource) GetAtt(attribute string) token.Value {
	v := cfn.GetAtt(r.logicalID, attribute)
	r.stack.app.registerRef(v, &refInfo{resource: r, attribute: attribute})
	return v
}

// DependsOn records an explicit same-stack ordering in the template and the
// construct dependency graph. Cross-stack ordering comes from reference
// wiring, not from DependsOn.
func (r *Resource) DependsOn(other *Resource) error {
	if other.stack != r.stack {
		return fmt.Errorf("%s and %s are in different stacks; use a reference instead of DependsOn",
			r.node.Path(), other.node.Path())
	}
	if err := construct.AddDependency(other.node, r.node); err != nil {
		return err
	}
	r.res.DependsOn = appendUnique(r.res.DependsOn, other.logicalID)
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
