// Package stack provides the App and Stack constructs: deployable units that
// own a CloudFormation template each and may reference values across stack
// boundaries. Cross-stack references are wired into export/import pairs at
// synthesis time, gated on the two stacks deploying to compatible
// environments.
package stack

import (
	"fmt"

	"github.com/stackwright/stackwright/pkg/construct"
	"github.com/stackwright/stackwright/pkg/token"
)

type (
	// App is the root of a construct tree. It owns the deployment context
	// (account/region fallbacks) and the registry that maps deferred
	// reference values back to the resource that produced them.
	App struct {
		node    *construct.Construct
		stacks  []*Stack
		context map[string]string
		refs    map[uint64]*refInfo
	}

	AppProps struct {
		// Context supplies deployment-time attributes that environment
		// producers fall back to, keyed by ContextAccount / ContextRegion.
		Context map[string]string
	}

	// refInfo records where a handed-out reference value came from, so
	// synthesis can recognize a value from stack A sitting in stack B's
	// template.
	refInfo struct {
		resource  *Resource
		attribute string // empty for a Ref
	}
)

const (
	ContextAccount = "account"
	ContextRegion  = "region"
)

func NewApp(props AppProps) *App {
	app := &App{
		node:    construct.NewRoot(),
		context: props.Context,
		refs:    make(map[uint64]*refInfo),
	}
	if app.context == nil {
		app.context = make(map[string]string)
	}
	return app
}

func (a *App) Node() *construct.Construct {
	return a.node
}

// Stacks returns the app's stacks in declaration order.
func (a *App) Stacks() []*Stack {
	return append([]*Stack{}, a.stacks...)
}

// Context returns the deployment context value for key, if set.
func (a *App) Context(key string) (string, bool) {
	v, ok := a.context[key]
	return v, ok
}

func (a *App) registerRef(v token.Value, info *refInfo) {
	id, ok := v.ID()
	if !ok {
		panic(fmt.Errorf("registerRef called with concrete value %v", v))
	}
	a.refs[id] = info
}

// refFor looks up the origin of a deferred value, if it is a reference this
// app handed out.
func (a *App) refFor(v token.Value) (*refInfo, bool) {
	id, ok := v.ID()
	if !ok {
		return nil, false
	}
	info, ok := a.refs[id]
	return info, ok
}
