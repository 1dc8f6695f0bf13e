package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

// ModuleBackend is notified of every accepted module-level mutation, in the
// order the spec's ordering guarantees promise: add_* events in index order
// within their kind, prototype adds before any reference to them, and
// close() only after every other event for that module.
type ModuleBackend interface {
	Sink(fn FunctionHandle) SinkBackend

	AddPrototype(index wasm.Index, proto wasm.FunctionType)

	// AddXxx events fire for non-imported entities; AddXxxImport events fire
	// for imported ones. Both share the module's single index namespace per
	// kind (imports precede non-imports, spec invariant 2), so index is the
	// same counter either way.
	AddMemory(index wasm.Index, mem wasm.Memory)
	AddTable(index wasm.Index, tbl wasm.Table)
	AddGlobal(index wasm.Index, global wasm.Global)
	AddFunction(index wasm.Index, typeIndex wasm.Index)

	AddMemoryImport(index wasm.Index, moduleName, name string, mem wasm.Memory)
	AddTableImport(index wasm.Index, moduleName, name string, tbl wasm.Table)
	AddGlobalImport(index wasm.Index, moduleName, name string, gt wasm.GlobalType)
	AddFunctionImport(index wasm.Index, moduleName, name string, typeIndex wasm.Index)

	AddExport(name string, kind wasm.ExternType, index wasm.Index)

	SetMemoryLimit(index wasm.Index, mem wasm.Memory)
	SetTableLimit(index wasm.Index, tbl wasm.Table)
	SetStartup(index wasm.Index)
	SetValue(index wasm.Index, value wasm.ConstantExpression)

	WriteData(segment wasm.DataSegment)
	WriteElements(segment wasm.ElementSegment)

	Close()
}

// SinkBackend is notified of every accepted event within one function
// body, in source order.
type SinkBackend interface {
	PushScope(kind ScopeKind, blockType wasm.BlockType)
	PopScope(kind ScopeKind)
	ToggleConditional()

	AddLocal(valType wasm.ValueType)
	AddComment(text string) // text backend only; binary backend ignores
	AddInstruction(inst Instruction)

	Close()
}
