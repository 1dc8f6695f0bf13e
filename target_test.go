package wasgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasgen/wasgen/internal/wasm"
)

func TestTarget_LabelArity(t *testing.T) {
	i32, i64 := wasm.ValueTypeI32, wasm.ValueTypeI64

	loop := target{kind: ScopeLoop, params: []wasm.ValueType{i32}, results: []wasm.ValueType{i64}}
	require.Equal(t, []wasm.ValueType{i32}, loop.labelArity())

	block := target{kind: ScopeBlock, params: []wasm.ValueType{i32}, results: []wasm.ValueType{i64}}
	require.Equal(t, []wasm.ValueType{i64}, block.labelArity())

	cond := target{kind: ScopeConditional, params: []wasm.ValueType{i32}, results: []wasm.ValueType{i64}}
	require.Equal(t, []wasm.ValueType{i64}, cond.labelArity())
}

func TestSink_ResolveRejectsOtherSink(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)

	fn1, err := m.DeclareFunction("f1", proto, Exchange{})
	require.NoError(t, err)
	fn2, err := m.DeclareFunction("f2", proto, Exchange{})
	require.NoError(t, err)

	s1, err := m.OpenSink(fn1)
	require.NoError(t, err)
	s2, err := m.OpenSink(fn2)
	require.NoError(t, err)

	h1, err := s1.Block("", nil, nil)
	require.NoError(t, err)

	_, err = s2.resolve(h1)
	require.ErrorContains(t, err, "different sink")

	require.NoError(t, s1.PopScope(h1))
	require.NoError(t, s1.Close())
	require.NoError(t, s2.Close())
}

func TestSink_TopReflectsInnermostScope(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	_, ok := s.top()
	require.False(t, ok)

	outer, err := s.Block("outer", nil, nil)
	require.NoError(t, err)
	top, ok := s.top()
	require.True(t, ok)
	require.Equal(t, outer, top)

	inner, err := s.Block("inner", nil, nil)
	require.NoError(t, err)
	top, ok = s.top()
	require.True(t, ok)
	require.Equal(t, inner, top)

	require.NoError(t, s.PopScope(inner))
	top, ok = s.top()
	require.True(t, ok)
	require.Equal(t, outer, top)

	require.NoError(t, s.PopScope(outer))
	_, ok = s.top()
	require.False(t, ok)
	require.NoError(t, s.Close())
}

func TestSink_PopScope_OnlyInnermost(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	outer, err := s.Block("outer", nil, nil)
	require.NoError(t, err)
	_, err = s.Block("inner", nil, nil)
	require.NoError(t, err)

	err = s.PopScope(outer)
	require.ErrorContains(t, err, "not the innermost open scope")
}
