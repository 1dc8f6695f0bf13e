package wasgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasgen/wasgen/internal/wasm"
)

func TestModule_DeclareMemory(t *testing.T) {
	m := NewModule(NewBinaryBackend())

	limit := wasm.Limit{Min: 1, HasMax: true, Max: 2}
	h, err := m.DeclareMemory("mem", &limit, Exchange{})
	require.NoError(t, err)
	require.Equal(t, wasm.Index(0), h.Index())

	_, err = m.DeclareMemory("mem", &limit, Exchange{})
	require.ErrorContains(t, err, "id already declared")
}

func TestModule_DeclareMemory_DeferredLimitRequiredAtClose(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	_, err := m.DeclareMemory("mem", nil, Exchange{})
	require.NoError(t, err)

	require.ErrorContains(t, m.Close(), "memory requires a limit to be set")
}

func TestModule_SetMemoryLimit_Deferred(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	h, err := m.DeclareMemory("mem", nil, Exchange{})
	require.NoError(t, err)

	require.NoError(t, m.SetMemoryLimit(h, wasm.Limit{Min: 1}))
	require.ErrorContains(t, m.SetMemoryLimit(h, wasm.Limit{Min: 2}), "limit already set")
	require.NoError(t, m.Close())
}

func TestModule_ImportMemoryRequiresLimit(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	_, err := m.DeclareMemory("mem", nil, Exchange{Imported: true, ImportModule: "env"})
	require.ErrorContains(t, err, "imported memory requires a limit")
}

func TestModule_ImportExportRequiresID(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	_, err := m.DeclareMemory("", nil, Exchange{Exported: true})
	require.ErrorContains(t, err, "requires an id")
}

func TestModule_ImportsMustPrecedeNonImports(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	_, err := m.DeclareMemory("mem0", &wasm.Limit{Min: 1}, Exchange{})
	require.NoError(t, err)

	_, err = m.DeclareMemory("mem1", &wasm.Limit{Min: 1}, Exchange{Imported: true, ImportModule: "env"})
	require.ErrorContains(t, err, "imports section already closed")
}

func TestModule_DeclareGlobal_AssignAndClose(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	g, err := m.DeclareGlobal("g", wasm.ValueTypeI32, true, Exchange{})
	require.NoError(t, err)

	require.ErrorContains(t, m.Close(), "global requires a value to be assigned")

	require.NoError(t, m.AssignGlobal(g, I32Const(42)))
	require.ErrorContains(t, m.AssignGlobal(g, I32Const(1)), "already assigned")
}

func TestModule_AssignGlobal_TypeMismatch(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	g, err := m.DeclareGlobal("g", wasm.ValueTypeI32, false, Exchange{})
	require.NoError(t, err)

	err = m.AssignGlobal(g, I64Const(1))
	require.Error(t, err)
	var be *BuilderError
	require.ErrorAs(t, err, &be)
}

func TestModule_AssignGlobal_ReferencingMutableImportFails(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	imported, err := m.DeclareGlobal("imported", wasm.ValueTypeI32, true, Exchange{Imported: true, ImportModule: "env"})
	require.NoError(t, err)

	g, err := m.DeclareGlobal("g", wasm.ValueTypeI32, false, Exchange{})
	require.NoError(t, err)

	err = m.AssignGlobal(g, GlobalGetValue(imported, wasm.ValueTypeI32))
	require.ErrorContains(t, err, "imported immutable global")
}

func TestModule_AssignGlobal_ReferencingImportedImmutableSucceeds(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	imported, err := m.DeclareGlobal("imported", wasm.ValueTypeI32, false, Exchange{Imported: true, ImportModule: "env"})
	require.NoError(t, err)

	g, err := m.DeclareGlobal("g", wasm.ValueTypeI32, false, Exchange{})
	require.NoError(t, err)

	require.NoError(t, m.AssignGlobal(g, GlobalGetValue(imported, wasm.ValueTypeI32)))
}

func TestModule_DeclareFunction_ProtoMustBeSameModule(t *testing.T) {
	m1 := NewModule(NewBinaryBackend())
	m2 := NewModule(NewBinaryBackend())
	proto := m1.DeclarePrototype(nil, nil)

	_, err := m2.DeclareFunction("f", proto, Exchange{})
	require.ErrorContains(t, err, "different module")
}

func TestModule_OpenSink_RejectsImportedOrDoubleOpen(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	proto := m.DeclarePrototype(nil, nil)

	imported, err := m.DeclareFunction("imp", proto, Exchange{Imported: true, ImportModule: "env"})
	require.NoError(t, err)
	_, err = m.OpenSink(imported)
	require.ErrorContains(t, err, "imported functions have no body")

	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)
	s, err := m.OpenSink(fn)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = m.OpenSink(fn)
	require.ErrorContains(t, err, "already has a sink")
}

func TestModule_Close_SynthesizesBodyForUnboundFunctions(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	proto := m.DeclarePrototype(nil, nil)
	_, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)

	require.NoError(t, m.Close())
}

func TestModule_Close_SynthesizedBodyFailsNonEmptyResults(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	proto := m.DeclarePrototype(nil, []wasm.ValueType{wasm.ValueTypeI32})
	_, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)

	require.Error(t, m.Close())
}

func TestModule_Close_Idempotent(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestModule_Close_CascadesStillOpenSink(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	proto := m.DeclarePrototype(nil, []wasm.ValueType{wasm.ValueTypeI32})
	fn, err := m.DeclareFunction("f", proto, Exchange{})
	require.NoError(t, err)

	s, err := m.OpenSink(fn)
	require.NoError(t, err)
	require.NoError(t, s.I32Const(1))

	require.NoError(t, m.Close())
}

func TestPrototype_Dedup(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	i32 := wasm.ValueTypeI32
	p1 := m.DeclarePrototype([]wasm.ValueType{i32}, []wasm.ValueType{i32})
	p2 := m.DeclarePrototype([]wasm.ValueType{i32}, []wasm.ValueType{i32})
	require.Equal(t, p1.Index(), p2.Index())

	p3 := m.DeclarePrototype([]wasm.ValueType{i32}, nil)
	require.NotEqual(t, p1.Index(), p3.Index())
}

func TestPrototype_NamedDuplicateParamName(t *testing.T) {
	m := NewModule(NewBinaryBackend())
	_, err := m.DeclareNamedPrototype("add", []Param{{Type: wasm.ValueTypeI32, Name: "x"}, {Type: wasm.ValueTypeI32, Name: "x"}}, nil)
	require.ErrorContains(t, err, "duplicate parameter name")
}

func TestModule_Export_WithImportedEntityEmitsBoth(t *testing.T) {
	bb := NewBinaryBackend()
	m := NewModule(bb)
	_, err := m.DeclareMemory("mem", &wasm.Limit{Min: 1}, Exchange{Imported: true, ImportModule: "env", Exported: true})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	require.Len(t, bb.module.ImportSection, 1)
	require.Len(t, bb.module.ExportSection, 1)
	require.Empty(t, bb.module.MemorySection)
}
