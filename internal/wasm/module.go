package wasm

// Module is the accumulated wire-level form of a WebAssembly module: one
// slice or pointer per binary section, in section order. The builder
// (package wasgen) populates a Module as it processes events, and the
// encoder (internal/testing/binaryencoding) turns it into bytes; nothing in this package
// enforces the builder's own ordering or uniqueness invariants; those are
// the builder's job.
type Module struct {
	TypeSection     []FunctionType
	ImportSection   []Import
	FunctionSection []Index // index into TypeSection, one per defined function
	TableSection    []Table
	// MemorySection is a vector of memory types. The MVP allows at most
	// one; multi-memory modules may declare more.
	MemorySection []Memory
	GlobalSection   []Global
	ExportSection   []Export
	StartSection    *Index
	ElementSection  []ElementSegment
	CodeSection     []Code
	DataSection     []DataSegment
	NameSection     *NameSection
}

// ImportFuncCount returns the number of function imports, i.e. the number
// of module-level function indices that refer to an import rather than a
// locally defined function.
func (m *Module) ImportFuncCount() int {
	n := 0
	for _, imp := range m.ImportSection {
		if imp.Type == ExternTypeFunc {
			n++
		}
	}
	return n
}

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Type   ExternType

	DescFunc   Index // valid when Type == ExternTypeFunc: index into TypeSection
	DescTable  Table // valid when Type == ExternTypeTable
	DescMem    *Memory
	DescGlobal GlobalType
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Type  ExternType
	Index Index
}

// Memory is a memory's limits, matching the wire encoding: Max is only
// written when IsMaxEncoded is set, otherwise the decoder-side default of
// MemoryLimitPages applies.
type Memory struct {
	Min          uint32
	Max          uint32
	IsMaxEncoded bool
}

// Table is a table's element type and limits. A nil Max means the table
// declares no maximum.
type Table struct {
	Min  uint32
	Max  *uint32
	Type RefType
}

// Global is one entry of the global section: its type and its
// (already-encoded) constant initializer expression.
type Global struct {
	Type GlobalType
	Init ConstantExpression
}

// ConstantExpression is a constant initializer expression used by globals,
// and by element/data segment offsets: a single constant instruction
// (i32.const, i64.const, f32.const, f64.const, global.get or ref.null/
// ref.func) followed by an implicit end, stored pre-encoded.
type ConstantExpression struct {
	Opcode Opcode
	Data   []byte
}

// Code is one entry of the code section: a function body.
type Code struct {
	// LocalTypes is the expanded list of declared local types (beyond the
	// function's parameters), in declaration order.
	LocalTypes []ValueType
	// Body is the pre-encoded instruction stream, terminated by an
	// explicit OpcodeEnd.
	Body []byte
}

// DataSegment is one entry of the data section.
type DataSegment struct {
	// Passive is true for a passive segment (no MemoryIndex/Offset, only
	// usable via memory.init).
	Passive bool
	// MemoryIndex is the target memory for an active segment.
	MemoryIndex Index
	// OffsetExpression is the active segment's constant offset expression.
	OffsetExpression ConstantExpression
	Init             []byte
}

// ElementSegment is one entry of the element section.
type ElementSegment struct {
	Passive bool
	// Declarative marks a segment that is never instantiated into a
	// table, used only to declare that a function may be referenced by
	// ref.func.
	Declarative bool
	TableIndex  Index
	// OffsetExpression is the active segment's constant offset expression.
	OffsetExpression ConstantExpression
	Type             RefType
	// Init is the element list, either function indices (funcref table,
	// the MVP encoding) or constant expressions (general reference init
	// exprs).
	Init       []Index
	InitExprs  []ConstantExpression
	UsesExprs  bool
}

// NameSection is the parsed form of the "name" custom section.
type NameSection struct {
	ModuleName    string
	FunctionNames NameMap
	LocalNames    IndirectNameMap
}

// NameAssoc associates an index with a name.
type NameAssoc struct {
	Index Index
	Name  string
}

// NameMap is a sequence of index-to-name associations, sorted by index in
// the binary encoding.
type NameMap []NameAssoc

// NameMapAssoc associates an outer index (e.g. a function index) with its
// own NameMap (e.g. that function's local names).
type NameMapAssoc struct {
	Index   Index
	NameMap NameMap
}

// IndirectNameMap is a sequence of NameMapAssoc, used for local names
// (one NameMap per function).
type IndirectNameMap []NameMapAssoc
