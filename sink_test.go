package wasgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasgen/wasgen/internal/wasm"
)

func newTestModule(t *testing.T) (*Module, *BinaryBackend) {
	t.Helper()
	bb := NewBinaryBackend()
	return NewModule(bb), bb
}

func TestSink_IdentityFunction(t *testing.T) {
	m, _ := newTestModule(t)
	i32 := wasm.ValueTypeI32
	proto, err := m.DeclareNamedPrototype("id", []Param{{Type: i32, Name: "x"}}, []wasm.ValueType{i32})
	require.NoError(t, err)
	fn, err := m.DeclareFunction("id", proto, Exchange{Exported: true})
	require.NoError(t, err)

	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	idx, err := s.LocalByName("x")
	require.NoError(t, err)
	require.Equal(t, wasm.Index(0), idx)

	require.NoError(t, s.LocalGet(idx))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_TypeMismatchOnReturn(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, []wasm.ValueType{wasm.ValueTypeI32})
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)

	s, err := m.OpenSink(fn)
	require.NoError(t, err)
	require.NoError(t, s.I64Const(1))

	err = s.Close()
	require.Error(t, err)
}

func TestSink_Local_DuplicateID(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	_, err = s.Local(wasm.ValueTypeI32, "tmp")
	require.NoError(t, err)
	_, err = s.Local(wasm.ValueTypeI32, "tmp")
	require.ErrorContains(t, err, "already declared")
}

func TestSink_BlockWithResult(t *testing.T) {
	m, _ := newTestModule(t)
	i32 := wasm.ValueTypeI32
	proto := m.DeclarePrototype(nil, []wasm.ValueType{i32})
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	h, err := s.Block("", nil, []wasm.ValueType{i32})
	require.NoError(t, err)
	require.NoError(t, s.I32Const(7))
	require.NoError(t, s.PopScope(h))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_LoopBranchesToParams(t *testing.T) {
	m, _ := newTestModule(t)
	i32 := wasm.ValueTypeI32
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	_, err = s.Local(i32, "i")
	require.NoError(t, err)

	require.NoError(t, s.I32Const(0))
	h, err := s.Loop("top", []wasm.ValueType{i32}, nil)
	require.NoError(t, err)

	require.NoError(t, s.I32Const(0))
	require.NoError(t, s.BrIf(h))
	require.NoError(t, s.Drop())
	require.NoError(t, s.PopScope(h))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_IfElse(t *testing.T) {
	m, _ := newTestModule(t)
	i32 := wasm.ValueTypeI32
	proto := m.DeclarePrototype(nil, []wasm.ValueType{i32})
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	require.NoError(t, s.I32Const(1))
	h, err := s.If("", nil, []wasm.ValueType{i32})
	require.NoError(t, err)
	require.NoError(t, s.I32Const(1))
	require.NoError(t, s.ToggleElse(h))
	require.NoError(t, s.I32Const(0))
	require.NoError(t, s.PopScope(h))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_ToggleElse_OnlyOnce(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	require.NoError(t, s.I32Const(1))
	h, err := s.If("", nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.ToggleElse(h))
	require.ErrorContains(t, s.ToggleElse(h), "already toggled")
}

func TestSink_BrTable(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	outer, err := s.Block("outer", nil, nil)
	require.NoError(t, err)
	inner, err := s.Block("inner", nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.I32Const(0))
	require.NoError(t, s.BrTable([]TargetHandle{inner}, outer))

	require.NoError(t, s.PopScope(inner))
	require.NoError(t, s.PopScope(outer))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_StaleTargetHandle(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	h, err := s.Block("", nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.PopScope(h))

	h2, err := s.Block("", nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, h.stamp, h2.stamp)

	err = s.Br(h)
	require.ErrorContains(t, err, "stale")
	require.NoError(t, s.PopScope(h2))
}

func TestSink_Call(t *testing.T) {
	m, _ := newTestModule(t)
	i32 := wasm.ValueTypeI32
	proto := m.DeclarePrototype([]wasm.ValueType{i32}, []wasm.ValueType{i32})
	callee, err := m.DeclareFunction("callee", proto, Exchange{})
	require.NoError(t, err)
	calleeSink, err := m.OpenSink(callee)
	require.NoError(t, err)
	require.NoError(t, calleeSink.LocalGet(0))
	require.NoError(t, calleeSink.Close())

	caller, err := m.DeclareFunction("caller", proto, Exchange{Exported: true})
	require.NoError(t, err)
	callerSink, err := m.OpenSink(caller)
	require.NoError(t, err)
	require.NoError(t, callerSink.LocalGet(0))
	require.NoError(t, callerSink.Call(callee))
	require.NoError(t, callerSink.Close())

	require.NoError(t, m.Close())
}

func TestSink_ReturnCall_ResultMismatch(t *testing.T) {
	m, _ := newTestModule(t)
	i32, i64 := wasm.ValueTypeI32, wasm.ValueTypeI64
	calleeProto := m.DeclarePrototype(nil, []wasm.ValueType{i64})
	callee, err := m.DeclareFunction("callee", calleeProto, Exchange{})
	require.NoError(t, err)
	calleeSink, err := m.OpenSink(callee)
	require.NoError(t, err)
	require.NoError(t, calleeSink.I64Const(0))
	require.NoError(t, calleeSink.Close())

	callerProto := m.DeclarePrototype(nil, []wasm.ValueType{i32})
	caller, err := m.DeclareFunction("caller", callerProto, Exchange{})
	require.NoError(t, err)
	callerSink, err := m.OpenSink(caller)
	require.NoError(t, err)

	err = callerSink.ReturnCall(callee)
	require.ErrorContains(t, err, "tail call")
}

func TestSink_SelectUntyped_InfersTypeFromStack(t *testing.T) {
	m, _ := newTestModule(t)
	i32 := wasm.ValueTypeI32
	proto := m.DeclarePrototype(nil, []wasm.ValueType{i32})
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	require.NoError(t, s.I32Const(1))
	require.NoError(t, s.I32Const(2))
	require.NoError(t, s.I32Const(1))
	require.NoError(t, s.Select())
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_Unreachable_MakesSubsequentPopsPermissive(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, []wasm.ValueType{wasm.ValueTypeI32})
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	require.NoError(t, s.Unreachable())
	// No i32 was ever pushed, but after unreachable the close-time result
	// check must not fail.
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_MemoryOps(t *testing.T) {
	m, _ := newTestModule(t)
	mem, err := m.DeclareMemory("mem", &wasm.Limit{Min: 1}, Exchange{Exported: true})
	require.NoError(t, err)

	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)

	require.NoError(t, s.I32Const(0))
	require.NoError(t, s.I32Const(42))
	require.NoError(t, s.Store(wasm.OpcodeI32Store, mem, 2, 0, wasm.ValueTypeI32))
	require.NoError(t, s.I32Const(0))
	require.NoError(t, s.Load(wasm.OpcodeI32Load, mem, 2, 0, wasm.ValueTypeI32))
	require.NoError(t, s.Drop())
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())
}

func TestSink_CloseIdempotent(t *testing.T) {
	m, _ := newTestModule(t)
	proto := m.DeclarePrototype(nil, nil)
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
