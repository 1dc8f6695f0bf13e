package wasgen

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/testing/binaryencoding"
	"github.com/wasgen/wasgen/internal/wasm"
)

// BinaryBackend is the ModuleBackend/SinkBackend pair that assembles an
// internal/wasm.Module incrementally from builder events and, once the
// module closes, serializes it to the WebAssembly binary format (spec.md
// §4.4).
//
// Deferred slots (spec.md §9: memories/tables/globals/code whose contents
// arrive across multiple events) are modeled the direct way: each slot is
// allocated at declaration time and later events fill in only that slot (the
// limits of a memory or table at set_limit, the initializer of a global at
// set_value, the code entry at sink close); other slots are left untouched.
type BinaryBackend struct {
	module *wasm.Module
	output []byte

	// codeSlot/memSlot/tblSlot/globalSlot map an entity's module-global index
	// (shared across imports and defined entities, per invariant 2) to its
	// position in the corresponding wire section, which holds only defined
	// (non-imported) entities.
	codeSlot   map[wasm.Index]wasm.Index
	memSlot    map[wasm.Index]wasm.Index
	tblSlot    map[wasm.Index]wasm.Index
	globalSlot map[wasm.Index]wasm.Index
}

// NewBinaryBackend creates an empty backend ready to be passed to NewModule.
func NewBinaryBackend() *BinaryBackend {
	return &BinaryBackend{
		module:     &wasm.Module{},
		codeSlot:   map[wasm.Index]wasm.Index{},
		memSlot:    map[wasm.Index]wasm.Index{},
		tblSlot:    map[wasm.Index]wasm.Index{},
		globalSlot: map[wasm.Index]wasm.Index{},
	}
}

func (b *BinaryBackend) AddPrototype(index wasm.Index, proto wasm.FunctionType) {
	b.module.TypeSection = append(b.module.TypeSection, proto)
}

func (b *BinaryBackend) AddMemory(index wasm.Index, mem wasm.Memory) {
	b.memSlot[index] = wasm.Index(len(b.module.MemorySection))
	b.module.MemorySection = append(b.module.MemorySection, mem)
}

func (b *BinaryBackend) AddMemoryImport(index wasm.Index, moduleName, name string, mem wasm.Memory) {
	b.module.ImportSection = append(b.module.ImportSection, wasm.Import{
		Module: moduleName, Name: name, Type: wasm.ExternTypeMemory, DescMem: &mem,
	})
}

func (b *BinaryBackend) AddTableImport(index wasm.Index, moduleName, name string, tbl wasm.Table) {
	b.module.ImportSection = append(b.module.ImportSection, wasm.Import{
		Module: moduleName, Name: name, Type: wasm.ExternTypeTable, DescTable: tbl,
	})
}

func (b *BinaryBackend) AddGlobalImport(index wasm.Index, moduleName, name string, gt wasm.GlobalType) {
	b.module.ImportSection = append(b.module.ImportSection, wasm.Import{
		Module: moduleName, Name: name, Type: wasm.ExternTypeGlobal, DescGlobal: gt,
	})
}

func (b *BinaryBackend) AddFunctionImport(index wasm.Index, moduleName, name string, typeIndex wasm.Index) {
	b.module.ImportSection = append(b.module.ImportSection, wasm.Import{
		Module: moduleName, Name: name, Type: wasm.ExternTypeFunc, DescFunc: typeIndex,
	})
}

func (b *BinaryBackend) AddExport(name string, kind wasm.ExternType, index wasm.Index) {
	b.module.ExportSection = append(b.module.ExportSection, wasm.Export{Name: name, Type: kind, Index: index})
}

func (b *BinaryBackend) SetMemoryLimit(index wasm.Index, mem wasm.Memory) {
	b.module.MemorySection[b.memSlot[index]] = mem
}

func (b *BinaryBackend) AddTable(index wasm.Index, tbl wasm.Table) {
	b.tblSlot[index] = wasm.Index(len(b.module.TableSection))
	b.module.TableSection = append(b.module.TableSection, tbl)
}

func (b *BinaryBackend) SetTableLimit(index wasm.Index, tbl wasm.Table) {
	b.module.TableSection[b.tblSlot[index]] = tbl
}

func (b *BinaryBackend) AddGlobal(index wasm.Index, global wasm.Global) {
	b.globalSlot[index] = wasm.Index(len(b.module.GlobalSection))
	b.module.GlobalSection = append(b.module.GlobalSection, global)
}

func (b *BinaryBackend) SetValue(index wasm.Index, value wasm.ConstantExpression) {
	b.module.GlobalSection[b.globalSlot[index]].Init = value
}

func (b *BinaryBackend) AddFunction(index wasm.Index, typeIndex wasm.Index) {
	b.codeSlot[index] = wasm.Index(len(b.module.FunctionSection))
	b.module.FunctionSection = append(b.module.FunctionSection, typeIndex)
	b.module.CodeSection = append(b.module.CodeSection, wasm.Code{})
}

func (b *BinaryBackend) SetStartup(index wasm.Index) {
	idx := index
	b.module.StartSection = &idx
}

func (b *BinaryBackend) WriteData(segment wasm.DataSegment) {
	b.module.DataSection = append(b.module.DataSection, segment)
}

func (b *BinaryBackend) WriteElements(segment wasm.ElementSegment) {
	b.module.ElementSection = append(b.module.ElementSection, segment)
}

func (b *BinaryBackend) Sink(fn FunctionHandle) SinkBackend {
	return &binarySinkBackend{backend: b, funcIndex: b.codeSlot[fn.index]}
}

func (b *BinaryBackend) Close() {
	b.output = binaryencoding.EncodeModule(b.module)
}

// Output returns the encoded module. Valid only after the owning Module has
// been closed (spec.md §6.2).
func (b *BinaryBackend) Output() []byte {
	return b.output
}

// binarySinkBackend accumulates one function's locals and instruction bytes
// into the pre-allocated Code slot at funcIndex, populating it in full when
// the sink closes.
type binarySinkBackend struct {
	backend   *BinaryBackend
	funcIndex wasm.Index
	locals    []wasm.ValueType
	body      []byte
}

func (s *binarySinkBackend) PushScope(kind ScopeKind, blockType wasm.BlockType) {
	var op wasm.Opcode
	switch kind {
	case ScopeBlock:
		op = wasm.OpcodeBlock
	case ScopeLoop:
		op = wasm.OpcodeLoop
	case ScopeConditional:
		op = wasm.OpcodeIf
	}
	s.body = append(s.body, byte(op))
	s.body = append(s.body, encodeBlockType(blockType)...)
}

func (s *binarySinkBackend) PopScope(kind ScopeKind) {
	s.body = append(s.body, byte(wasm.OpcodeEnd))
}

func (s *binarySinkBackend) ToggleConditional() {
	s.body = append(s.body, byte(wasm.OpcodeElse))
}

func (s *binarySinkBackend) AddLocal(valType wasm.ValueType) {
	s.locals = append(s.locals, valType)
}

func (s *binarySinkBackend) AddComment(text string) {
	// Binary backend carries no comments; a text backend, fanned out via
	// Split, is where comments surface (spec.md §6.1).
}

func (s *binarySinkBackend) AddInstruction(inst Instruction) {
	s.body = encodeInstruction(s.body, inst)
}

func (s *binarySinkBackend) Close() {
	s.body = append(s.body, byte(wasm.OpcodeEnd))
	s.backend.module.CodeSection[s.funcIndex] = wasm.Code{LocalTypes: s.locals, Body: s.body}
}

func encodeBlockType(bt wasm.BlockType) []byte {
	switch {
	case bt.Empty:
		return []byte{0x40}
	case bt.HasValType:
		return []byte{bt.ValType}
	default:
		return leb128.EncodeInt32(int32(bt.TypeIndex))
	}
}
