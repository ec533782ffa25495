package stack

import (
	"fmt"

	"github.com/stackwright/stackwright/pkg/token"
)

// Environment is where a stack deploys: an account and a region, each either
// known at construction time or deferred until synthesis reads the
// deployment context.
type Environment struct {
	Account token.Value
	Region  token.Value
}

const (
	// UnknownAccount and UnknownRegion are what context-derived environment
	// attributes resolve to when the deployment context does not supply a
	// value. The template itself is environment-agnostic; these only appear
	// in the assembly manifest.
	UnknownAccount = "unknown-account"
	UnknownRegion  = "unknown-region"
)

// contextEnvironment defers both attributes to the app's deployment context.
func contextEnvironment(app *App) Environment {
	return Environment{
		Account: token.Defer(token.KindScalar, func() (any, error) {
			if v, ok := app.Context(ContextAccount); ok {
				return v, nil
			}
			return UnknownAccount, nil
		}),
		Region: token.Defer(token.KindScalar, func() (any, error) {
			if v, ok := app.Context(ContextRegion); ok {
				return v, nil
			}
			return UnknownRegion, nil
		}),
	}
}

// Compatible reports whether two environments can share references. The
// asymmetric unresolved policy is deliberate:
//
//   - any attribute knowably different: not compatible;
//   - exactly one side unresolved: assumed compatible, but the ambiguity is
//     reported back as a warning for the caller to surface;
//   - both sides unresolved: assumed compatible silently, since two stacks
//     that both defer to the deployment context will land in the same place.
func Compatible(a, b Environment) (bool, []string) {
	var warnings []string
	for _, attr := range []struct {
		name string
		x, y token.Value
	}{
		{"account", a.Account, b.Account},
		{"region", a.Region, b.Region},
	} {
		switch token.Compare(attr.x, attr.y) {
		case token.Different:
			return false, nil
		case token.OneUnresolved:
			warnings = append(warnings, fmt.Sprintf(
				"one %s is unresolved; assuming both environments use %s", attr.name,
				concreteOf(attr.x, attr.y)))
		}
	}
	return true, warnings
}

func concreteOf(x, y token.Value) string {
	if !x.IsDeferred() {
		return x.String()
	}
	return y.String()
}
