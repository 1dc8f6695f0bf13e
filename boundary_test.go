package wasgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasgen/wasgen/internal/wasm"
)

// These mirror the six literal boundary scenarios this library's behavior is
// pinned against: build a module, close it, and check the exact bytes (or
// exact failure) produced.

func TestBoundary_EmptyModule(t *testing.T) {
	bb := NewBinaryBackend()
	m := NewModule(bb)
	require.NoError(t, m.Close())
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, bb.Output())
}

func TestBoundary_IdentityI32Function(t *testing.T) {
	bb := NewBinaryBackend()
	m := NewModule(bb)
	i32 := wasm.ValueTypeI32
	proto, err := m.DeclareNamedPrototype("id", []Param{{Type: i32, Name: "x"}}, []wasm.ValueType{i32})
	require.NoError(t, err)
	fn, err := m.DeclareFunction("id", proto, Exchange{})
	require.NoError(t, err)

	s, err := m.OpenSink(fn)
	require.NoError(t, err)
	require.NoError(t, s.LocalGet(0))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())

	expected := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, // magic, version
		0x01, 0x06, 0x01, 0x60, 0x01, 0x7F, 0x01, 0x7F, // type section: (i32)->(i32)
		0x03, 0x02, 0x01, 0x00, // function section: one func, type 0
		0x0A, 0x06, 0x01, 0x04, 0x00, 0x20, 0x00, 0x0B, // code section: 0 locals, local.get 0, end
	}
	require.Equal(t, expected, bb.Output())
}

func TestBoundary_ExportedConstantFunction(t *testing.T) {
	bb := NewBinaryBackend()
	m := NewModule(bb)
	i32 := wasm.ValueTypeI32
	proto := m.DeclarePrototype(nil, []wasm.ValueType{i32})
	fn, err := m.DeclareFunction("k", proto, Exchange{Exported: true})
	require.NoError(t, err)

	s, err := m.OpenSink(fn)
	require.NoError(t, err)
	require.NoError(t, s.I32Const(42))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())

	expected := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7F, // type section: ()->(i32)
		0x03, 0x02, 0x01, 0x00, // function section
		0x07, 0x05, 0x01, 0x01, 0x6B, 0x00, 0x00, // export section: "k", func, index 0
		0x0A, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2A, 0x0B, // code section: i32.const 42, end
	}
	require.Equal(t, expected, bb.Output())
}

func TestBoundary_BlockWithResult(t *testing.T) {
	bb := NewBinaryBackend()
	m := NewModule(bb)
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

	require.Equal(t, []byte{0x02, 0x7F, 0x41, 0x07, 0x0B, 0x0B}, bb.module.CodeSection[0].Body)
}

func TestBoundary_BrTable(t *testing.T) {
	bb := NewBinaryBackend()
	m := NewModule(bb)
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
	require.NoError(t, s.BrTable([]TargetHandle{inner, outer}, outer))

	require.NoError(t, s.PopScope(inner))
	require.NoError(t, s.PopScope(outer))
	require.NoError(t, s.Close())
	require.NoError(t, m.Close())

	body := bb.module.CodeSection[0].Body
	require.Equal(t, []byte{0x41, 0x00, 0x0E, 0x02, 0x00, 0x01, 0x01}, body[4:11])
}

func TestBoundary_DeferredLimitAndCloseFailure(t *testing.T) {
	bb := NewBinaryBackend()
	m := NewModule(bb)
	_, err := m.DeclareMemory("mem", nil, Exchange{})
	require.NoError(t, err)

	err = m.Close()
	require.ErrorContains(t, err, "requires a limit to be set")
	require.Nil(t, bb.Output())
}
