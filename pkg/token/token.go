// Package token implements deferred values: placeholders whose concrete
// content is computed by a producer during a later resolution pass, after the
// tree that feeds the producer has been fully built. Deferred values may be
// compared for equality before resolution without forcing it, which is what
// lets callers branch on "are these the same?" while the answer is still
// unknowable (see [Compare]).
package token

import (
	"fmt"

	"go.uber.org/atomic"
)

type (
	// Kind declares the shape a deferred value must resolve to.
	Kind string

	// Producer computes the concrete content of a deferred value. It is
	// invoked with no arguments, at most once per [Context], and must not
	// mutate the tree it reads from.
	Producer func() (any, error)

	// Value is either a concrete Go value or a deferred placeholder.
	// The zero Value is concrete nil.
	Value struct {
		concrete any
		def      *deferred
	}

	deferred struct {
		id      uint64
		kind    Kind
		produce Producer
	}
)

const (
	KindScalar  Kind = "scalar"
	KindList    Kind = "list"
	KindMapping Kind = "mapping"
)

var nextID atomic.Uint64

// Defer registers produce as the computation backing a new deferred value.
// The returned Value carries an identifier unique within the process, used
// for memoization and cycle detection during resolution.
func Defer(kind Kind, produce Producer) Value {
	return Value{def: &deferred{
		id:      nextID.Add(1),
		kind:    kind,
		produce: produce,
	}}
}

// Concrete wraps v as an already-known value. Wrapping a Value returns it
// unchanged so callers can normalize without double-wrapping.
func Concrete(v any) Value {
	if tv, ok := v.(Value); ok {
		return tv
	}
	return Value{concrete: v}
}

// IsDeferred reports whether v's content is still unknown.
func (v Value) IsDeferred() bool {
	return v.def != nil
}

// ID returns the placeholder identifier, or false if v is concrete.
func (v Value) ID() (uint64, bool) {
	if v.def == nil {
		return 0, false
	}
	return v.def.id, true
}

// Kind returns the declared kind for deferred values. Concrete values report
// KindScalar regardless of their content; the kind contract only exists to
// check producers.
func (v Value) Kind() Kind {
	if v.def == nil {
		return KindScalar
	}
	return v.def.kind
}

func (v Value) String() string {
	if v.def != nil {
		return fmt.Sprintf("${Deferred#%d[%s]}", v.def.id, v.def.kind)
	}
	return fmt.Sprintf("%v", v.concrete)
}

// ContainsDeferred reports whether v is a deferred Value or a map/list with a
// deferred Value anywhere inside it.
func ContainsDeferred(v any) bool {
	switch v := v.(type) {
	case Value:
		if v.IsDeferred() {
			return true
		}
		return ContainsDeferred(v.concrete)
	case map[string]any:
		for _, elem := range v {
			if ContainsDeferred(elem) {
				return true
			}
		}
	case []any:
		for _, elem := range v {
			if ContainsDeferred(elem) {
				return true
			}
		}
	}
	return false
}
