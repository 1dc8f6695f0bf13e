package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

// Split implements both ModuleBackend and SinkBackend by forwarding every
// event to each of its children, in declaration order (spec.md §4.5). It
// lets one build emit to several formats — e.g. the binary encoder and a
// text backend — concurrently.
type Split struct {
	children []ModuleBackend
}

// NewSplit fans out to the given backends, in the order given.
func NewSplit(children ...ModuleBackend) *Split {
	return &Split{children: children}
}

func (s *Split) AddPrototype(index wasm.Index, proto wasm.FunctionType) {
	for _, c := range s.children {
		c.AddPrototype(index, proto)
	}
}

func (s *Split) AddMemory(index wasm.Index, mem wasm.Memory) {
	for _, c := range s.children {
		c.AddMemory(index, mem)
	}
}

func (s *Split) SetMemoryLimit(index wasm.Index, mem wasm.Memory) {
	for _, c := range s.children {
		c.SetMemoryLimit(index, mem)
	}
}

func (s *Split) AddMemoryImport(index wasm.Index, moduleName, name string, mem wasm.Memory) {
	for _, c := range s.children {
		c.AddMemoryImport(index, moduleName, name, mem)
	}
}

func (s *Split) AddTable(index wasm.Index, tbl wasm.Table) {
	for _, c := range s.children {
		c.AddTable(index, tbl)
	}
}

func (s *Split) AddTableImport(index wasm.Index, moduleName, name string, tbl wasm.Table) {
	for _, c := range s.children {
		c.AddTableImport(index, moduleName, name, tbl)
	}
}

func (s *Split) SetTableLimit(index wasm.Index, tbl wasm.Table) {
	for _, c := range s.children {
		c.SetTableLimit(index, tbl)
	}
}

func (s *Split) AddGlobal(index wasm.Index, global wasm.Global) {
	for _, c := range s.children {
		c.AddGlobal(index, global)
	}
}

func (s *Split) AddGlobalImport(index wasm.Index, moduleName, name string, gt wasm.GlobalType) {
	for _, c := range s.children {
		c.AddGlobalImport(index, moduleName, name, gt)
	}
}

func (s *Split) SetValue(index wasm.Index, value wasm.ConstantExpression) {
	for _, c := range s.children {
		c.SetValue(index, value)
	}
}

func (s *Split) AddFunction(index wasm.Index, typeIndex wasm.Index) {
	for _, c := range s.children {
		c.AddFunction(index, typeIndex)
	}
}

func (s *Split) AddFunctionImport(index wasm.Index, moduleName, name string, typeIndex wasm.Index) {
	for _, c := range s.children {
		c.AddFunctionImport(index, moduleName, name, typeIndex)
	}
}

func (s *Split) AddExport(name string, kind wasm.ExternType, index wasm.Index) {
	for _, c := range s.children {
		c.AddExport(name, kind, index)
	}
}

func (s *Split) SetStartup(index wasm.Index) {
	for _, c := range s.children {
		c.SetStartup(index)
	}
}

func (s *Split) WriteData(segment wasm.DataSegment) {
	for _, c := range s.children {
		c.WriteData(segment)
	}
}

func (s *Split) WriteElements(segment wasm.ElementSegment) {
	for _, c := range s.children {
		c.WriteElements(segment)
	}
}

func (s *Split) Sink(fn FunctionHandle) SinkBackend {
	sinks := make([]SinkBackend, len(s.children))
	for i, c := range s.children {
		sinks[i] = c.Sink(fn)
	}
	return &splitSink{sinks: sinks}
}

func (s *Split) Close() {
	for _, c := range s.children {
		c.Close()
	}
}

type splitSink struct {
	sinks []SinkBackend
}

func (s *splitSink) PushScope(kind ScopeKind, blockType wasm.BlockType) {
	for _, c := range s.sinks {
		c.PushScope(kind, blockType)
	}
}

func (s *splitSink) PopScope(kind ScopeKind) {
	for _, c := range s.sinks {
		c.PopScope(kind)
	}
}

func (s *splitSink) ToggleConditional() {
	for _, c := range s.sinks {
		c.ToggleConditional()
	}
}

func (s *splitSink) AddLocal(valType wasm.ValueType) {
	for _, c := range s.sinks {
		c.AddLocal(valType)
	}
}

func (s *splitSink) AddComment(text string) {
	for _, c := range s.sinks {
		c.AddComment(text)
	}
}

func (s *splitSink) AddInstruction(inst Instruction) {
	for _, c := range s.sinks {
		c.AddInstruction(inst)
	}
}

func (s *splitSink) Close() {
	for _, c := range s.sinks {
		c.Close()
	}
}
