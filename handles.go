package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

// PrototypeHandle references a function signature declared on a Module.
type PrototypeHandle struct {
	module *Module
	index  wasm.Index
}

// Index returns the prototype's stable index within the module.
func (h PrototypeHandle) Index() wasm.Index { return h.index }

// MemoryHandle references a memory declared on a Module.
type MemoryHandle struct {
	module *Module
	index  wasm.Index
}

func (h MemoryHandle) Index() wasm.Index { return h.index }

// TableHandle references a table declared on a Module.
type TableHandle struct {
	module *Module
	index  wasm.Index
}

func (h TableHandle) Index() wasm.Index { return h.index }

// GlobalHandle references a global declared on a Module.
type GlobalHandle struct {
	module *Module
	index  wasm.Index
}

func (h GlobalHandle) Index() wasm.Index { return h.index }

// FunctionHandle references a function declared on a Module.
type FunctionHandle struct {
	module *Module
	index  wasm.Index
}

func (h FunctionHandle) Index() wasm.Index { return h.index }

// sameModule reports whether h was produced by m; used throughout to
// enforce invariant 4 (every referenced entity originates from the same
// module).
func sameModule(m *Module, owner *Module) bool { return m == owner }
