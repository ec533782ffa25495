package token

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/stackwright/stackwright/pkg/set"
)

type (
	// Context owns the state of one resolution pass: the memoization cache
	// and the stack of in-flight producers used for cycle detection. It is
	// deliberately an explicit object rather than ambient package state so
	// independent passes can run in one process without interference.
	// A Context is single-threaded; callers serialize passes.
	Context struct {
		cache   map[uint64]any
		active  []uint64
		onStack set.Set[uint64]
	}

	// CycleError is returned when a producer's own identifier reappears on
	// the active resolution stack. Chain lists the identifiers from the
	// first occurrence down to the repeat.
	CycleError struct {
		Chain []uint64
	}

	// ProduceError tags a producer failure with the identifier of the
	// deferred value whose computation failed.
	ProduceError struct {
		ID    uint64
		Cause error
	}
)

func NewContext() *Context {
	return &Context{
		cache:   make(map[uint64]any),
		onStack: make(set.Set[uint64]),
	}
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return "cyclic resolution: " + strings.Join(parts, " -> ")
}

func (e *ProduceError) Error() string {
	return fmt.Sprintf("producer for deferred value #%d failed: %v", e.ID, e.Cause)
}

func (e *ProduceError) Unwrap() error {
	return e.Cause
}

// Resolve returns the concrete content of v. Concrete values pass through
// unchanged. Deferred values invoke their producer, memoized under the
// value's identifier for the remainder of this Context; if the producer
// itself returns a deferred value, resolution continues until a concrete
// value is reached or a cycle is detected.
func (ctx *Context) Resolve(v Value) (any, error) {
	if v.def == nil {
		return v.concrete, nil
	}
	d := v.def

	if cached, ok := ctx.cache[d.id]; ok {
		return cached, nil
	}
	if ctx.onStack.Contains(d.id) {
		return nil, &CycleError{Chain: append(chainFrom(ctx.active, d.id), d.id)}
	}

	ctx.active = append(ctx.active, d.id)
	ctx.onStack.Add(d.id)
	defer func() {
		ctx.active = ctx.active[:len(ctx.active)-1]
		ctx.onStack.Remove(d.id)
	}()

	produced, err := ctx.produce(d)
	if err != nil {
		return nil, err
	}

	if inner, ok := produced.(Value); ok {
		produced, err = ctx.Resolve(inner)
		if err != nil {
			return nil, err
		}
	}
	if err := checkKind(d, produced); err != nil {
		return nil, err
	}

	ctx.cache[d.id] = produced
	return produced, nil
}

// ResolveAny resolves v and, when v is (or resolves to) a map or list,
// resolves every element depth-first. The result contains no Value anywhere.
func (ctx *Context) ResolveAny(v any) (any, error) {
	if tv, ok := v.(Value); ok {
		resolved, err := ctx.Resolve(tv)
		if err != nil {
			return nil, err
		}
		v = resolved
	}

	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			resolved, err := ctx.ResolveAny(elem)
			if err != nil {
				return nil, fmt.Errorf("in key %q: %w", key, err)
			}
			out[key] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			resolved, err := ctx.ResolveAny(elem)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil
	}
	return v, nil
}

func (ctx *Context) produce(d *deferred) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				rerr = fmt.Errorf("panic: %v", r)
			}
			err = &ProduceError{ID: d.id, Cause: rerr}
		}
	}()

	result, perr := d.produce()
	if perr != nil {
		// Keep CycleErrors from nested Resolve calls intact so the
		// outermost caller sees the full chain.
		if _, isCycle := perr.(*CycleError); isCycle {
			return nil, perr
		}
		if _, isProduce := perr.(*ProduceError); isProduce {
			return nil, perr
		}
		return nil, &ProduceError{ID: d.id, Cause: perr}
	}
	return result, nil
}

func checkKind(d *deferred, resolved any) error {
	rv := reflect.ValueOf(resolved)
	var actual Kind
	switch rv.Kind() {
	case reflect.Map:
		actual = KindMapping
	case reflect.Slice, reflect.Array:
		actual = KindList
	default:
		actual = KindScalar
	}
	if actual != d.kind {
		return &ProduceError{
			ID:    d.id,
			Cause: fmt.Errorf("declared kind %s but produced %s (%T)", d.kind, actual, resolved),
		}
	}
	return nil
}

func chainFrom(active []uint64, id uint64) []uint64 {
	for i, a := range active {
		if a == id {
			return append([]uint64{}, active[i:]...)
		}
	}
	return append([]uint64{}, active...)
}
