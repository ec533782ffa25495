package token

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_concretePassthrough(t *testing.T) {
	ctx := NewContext()
	for _, v := range []any{nil, "us-east-1", 42, []any{"a"}, map[string]any{"k": "v"}} {
		got, err := ctx.Resolve(Concrete(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestResolve_scalar(t *testing.T) {
	ctx := NewContext()
	v := Defer(KindScalar, func() (any, error) {
		return "arn:aws:iam::123456789012:role/X", nil
	})
	got, err := ctx.Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:role/X", got)
}

func TestResolve_memoizesWithinPass(t *testing.T) {
	calls := 0
	v := Defer(KindScalar, func() (any, error) {
		calls++
		return fmt.Sprintf("call-%d", calls), nil
	})

	ctx := NewContext()
	first, err := ctx.Resolve(v)
	require.NoError(t, err)
	second, err := ctx.Resolve(v)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "producer must be invoked exactly once per pass")
	assert.Equal(t, first, second)

	// A fresh context is a fresh pass: no cross-pass leakage.
	again, err := NewContext().Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "call-2", again)
}

func TestResolve_chainsThroughDeferred(t *testing.T) {
	inner := Defer(KindScalar, func() (any, error) { return "leaf", nil })
	outer := Defer(KindScalar, func() (any, error) { return inner, nil })

	got, err := NewContext().Resolve(outer)
	require.NoError(t, err)
	assert.Equal(t, "leaf", got)
}

func TestResolve_cycle(t *testing.T) {
	ctx := NewContext()
	var self Value
	self = Defer(KindScalar, func() (any, error) {
		return ctx.Resolve(self)
	})

	_, err := ctx.Resolve(self)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	id, _ := self.ID()
	assert.Contains(t, cycleErr.Chain, id)
}

func TestResolve_indirectCycle(t *testing.T) {
	ctx := NewContext()
	var a, b Value
	a = Defer(KindScalar, func() (any, error) { return ctx.Resolve(b) })
	b = Defer(KindScalar, func() (any, error) { return ctx.Resolve(a) })

	_, err := ctx.Resolve(a)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	aID, _ := a.ID()
	bID, _ := b.ID()
	assert.Contains(t, cycleErr.Chain, aID)
	assert.Contains(t, cycleErr.Chain, bID)
}

func TestResolve_producerError(t *testing.T) {
	boom := errors.New("boom")
	v := Defer(KindScalar, func() (any, error) { return nil, boom })

	_, err := NewContext().Resolve(v)
	var perr *ProduceError
	require.ErrorAs(t, err, &perr)
	id, _ := v.ID()
	assert.Equal(t, id, perr.ID)
	assert.ErrorIs(t, err, boom)
}

func TestResolve_producerPanic(t *testing.T) {
	v := Defer(KindScalar, func() (any, error) { panic("unset property") })

	_, err := NewContext().Resolve(v)
	var perr *ProduceError
	require.ErrorAs(t, err, &perr)
	id, _ := v.ID()
	assert.Equal(t, id, perr.ID)
	assert.Contains(t, perr.Error(), "unset property")
}

func TestResolve_kindMismatch(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		produced any
		wantErr  bool
	}{
		{name: "scalar ok", kind: KindScalar, produced: "x"},
		{name: "list ok", kind: KindList, produced: []any{"x"}},
		{name: "mapping ok", kind: KindMapping, produced: map[string]any{"k": "v"}},
		{name: "scalar got list", kind: KindScalar, produced: []any{"x"}, wantErr: true},
		{name: "list got scalar", kind: KindList, produced: "x", wantErr: true},
		{name: "mapping got list", kind: KindMapping, produced: []any{"x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Defer(tt.kind, func() (any, error) { return tt.produced, nil })
			_, err := NewContext().Resolve(v)
			if tt.wantErr {
				var perr *ProduceError
				assert.ErrorAs(t, err, &perr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveAny_nested(t *testing.T) {
	region := Defer(KindScalar, func() (any, error) { return "eu-west-1", nil })
	props := map[string]any{
		"Region": region,
		"Tags": []any{
			map[string]any{"Key": "env", "Value": Concrete("prod")},
		},
	}

	got, err := NewContext().ResolveAny(props)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"Region": "eu-west-1",
		"Tags": []any{
			map[string]any{"Key": "env", "Value": "prod"},
		},
	}, got)
	assert.False(t, ContainsDeferred(got))
}

func TestResolveAny_errorNamesLocation(t *testing.T) {
	v := Defer(KindScalar, func() (any, error) { return nil, errors.New("nope") })
	_, err := NewContext().ResolveAny(map[string]any{"RoleArn": v})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"RoleArn"`)
}

func TestContainsDeferred(t *testing.T) {
	d := Defer(KindScalar, func() (any, error) { return "x", nil })
	assert.True(t, ContainsDeferred(d))
	assert.True(t, ContainsDeferred(map[string]any{"a": []any{d}}))
	assert.False(t, ContainsDeferred("plain"))
	assert.False(t, ContainsDeferred(Concrete("plain")))
}
