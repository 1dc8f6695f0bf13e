package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

type variable struct {
	typ wasm.ValueType
	id  string
}

// Sink builds the body of one function: its locals, its stack of open
// control-flow scopes, and the instruction stream, validating the operand
// stack inline as each instruction is accepted (spec §4.2/§4.3).
type Sink struct {
	module *Module
	fn     FunctionHandle
	proto  *prototypeEntity

	backend SinkBackend

	vars   []variable
	varIDs map[string]int

	funcResults     []wasm.ValueType
	funcUnreachable bool

	targets []target
	stamp   uint64

	operand []wasm.ValueType

	closed bool
}

func newSink(m *Module, fn FunctionHandle, proto *prototypeEntity, backend SinkBackend) *Sink {
	s := &Sink{
		module:      m,
		fn:          fn,
		proto:       proto,
		backend:     backend,
		varIDs:      map[string]int{},
		funcResults: proto.results,
	}
	// Parameters are locals 0..len(params)-1 implicitly, carried by the
	// function's type signature; only additional locals (via Sink.Local) are
	// ever reported to the backend (wasm.Code.LocalTypes is "beyond the
	// function's parameters").
	for _, p := range proto.params {
		idx := len(s.vars)
		s.vars = append(s.vars, variable{typ: p.Type})
		if p.Name != "" {
			s.varIDs[p.Name] = idx
		}
	}
	return s
}

// Local declares a new local variable of the given type, optionally named.
// Fails if id is non-empty and already used within this sink.
func (s *Sink) Local(typ wasm.ValueType, id string) (wasm.Index, error) {
	if err := s.module.checkDeferred(); err != nil {
		return 0, err
	}
	if s.closed {
		return 0, errf("local", "", "sink is closed")
	}
	if id != "" {
		if _, exists := s.varIDs[id]; exists {
			return 0, errf("local", entityName(id, 0), "id already declared in this sink")
		}
	}
	index := wasm.Index(len(s.vars))
	s.vars = append(s.vars, variable{typ: typ, id: id})
	if id != "" {
		s.varIDs[id] = int(index)
	}
	s.backend.AddLocal(typ)
	return index, nil
}

// LocalByName looks up a parameter or local by its declared name (the
// supplemented lookup carried over from the original's wasm-prototype.h).
func (s *Sink) LocalByName(name string) (wasm.Index, error) {
	idx, ok := s.varIDs[name]
	if !ok {
		return 0, errf("local by name", entityName(name, 0), "no such local or parameter")
	}
	return wasm.Index(idx), nil
}

func (s *Sink) localType(index wasm.Index) (wasm.ValueType, error) {
	if int(index) >= len(s.vars) {
		return 0, errf("local", entityName("", index), "no such local")
	}
	return s.vars[index].typ, nil
}

// --- operand stack -------------------------------------------------------

func (s *Sink) curUnreachable() bool {
	if n := len(s.targets); n > 0 {
		return s.targets[n-1].unreachable
	}
	return s.funcUnreachable
}

func (s *Sink) setUnreachable() {
	if n := len(s.targets); n > 0 {
		s.targets[n-1].unreachable = true
		return
	}
	s.funcUnreachable = true
}

func (s *Sink) curEntryDepth() int {
	if n := len(s.targets); n > 0 {
		return s.targets[n-1].entryDepth
	}
	return 0
}

func (s *Sink) push(types ...wasm.ValueType) {
	s.operand = append(s.operand, types...)
}

// pop consumes expected, top-of-stack-last (i.e. expected[len-1] is popped
// first), enforcing type equality unless the current scope is unreachable,
// in which case pops are permissive (spec §4.3 unreachable semantics).
func (s *Sink) pop(op string, expected ...wasm.ValueType) error {
	entry := s.curEntryDepth()
	unreachable := s.curUnreachable()
	for i := len(expected) - 1; i >= 0; i-- {
		if len(s.operand) <= entry {
			if unreachable {
				continue
			}
			return typeMismatch(op, "", valueTypeNames(expected), valueTypeNames(s.operand[entry:]))
		}
		top := s.operand[len(s.operand)-1]
		s.operand = s.operand[:len(s.operand)-1]
		if top != expected[i] && !unreachable {
			return typeMismatch(op, "", valueTypeNames(expected), []string{wasm.ValueTypeName(top)})
		}
	}
	return nil
}

func valueTypeNames(ts []wasm.ValueType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = wasm.ValueTypeName(t)
	}
	return out
}

// emit type-checks a fixed-arity instruction against the opType tables,
// pushes its result, forwards it to the backend, and marks nothing
// unreachable (only control instructions do that).
func (s *Sink) emit(op string, ty opType, inst Instruction) error {
	if err := s.pop(op, ty.pop...); err != nil {
		return err
	}
	s.push(ty.push...)
	s.backend.AddInstruction(inst)
	return nil
}

func (s *Sink) guard(op string) error {
	if err := s.module.checkDeferred(); err != nil {
		return err
	}
	if s.closed {
		return errf(op, "", "sink is closed")
	}
	return nil
}

// --- simple / constant / numeric instructions ----------------------------

// Op emits any fixed-arity instruction whose contract appears in the
// numeric/conversion opcode tables (arithmetic, comparison, conversion,
// reinterpretation, sign-extension). Use the dedicated methods below for
// everything else (locals, globals, memory, control, calls).
func (s *Sink) Op(opcode wasm.Opcode) error {
	if err := s.guard("op"); err != nil {
		return err
	}
	ty, ok := simpleOpTypes[opcode]
	if !ok {
		return errf("op", "", "opcode %#x is not a simple numeric instruction", opcode)
	}
	return s.emit("op", ty, Instruction{Op: opcode})
}

func (s *Sink) TruncSat(sub uint16) error {
	if err := s.guard("trunc_sat"); err != nil {
		return err
	}
	ty, ok := truncSatOpTypes[sub]
	if !ok {
		return errf("trunc_sat", "", "unknown trunc_sat sub-opcode %#x", sub)
	}
	return s.emit("trunc_sat", ty, Instruction{Op: wasm.MiscOpcode(sub)})
}

func (s *Sink) I32Const(v int32) error {
	if err := s.guard("i32.const"); err != nil {
		return err
	}
	return s.emit("i32.const", opType{push: []wasm.ValueType{i32}}, Instruction{Op: wasm.OpcodeI32Const, I32: v})
}

func (s *Sink) I64Const(v int64) error {
	if err := s.guard("i64.const"); err != nil {
		return err
	}
	return s.emit("i64.const", opType{push: []wasm.ValueType{i64}}, Instruction{Op: wasm.OpcodeI64Const, I64: v})
}

func (s *Sink) F32Const(bits uint32) error {
	if err := s.guard("f32.const"); err != nil {
		return err
	}
	return s.emit("f32.const", opType{push: []wasm.ValueType{f32}}, Instruction{Op: wasm.OpcodeF32Const, F32: bits})
}

func (s *Sink) F64Const(bits uint64) error {
	if err := s.guard("f64.const"); err != nil {
		return err
	}
	return s.emit("f64.const", opType{push: []wasm.ValueType{f64}}, Instruction{Op: wasm.OpcodeF64Const, F64: bits})
}

// --- locals / globals -----------------------------------------------------

func (s *Sink) LocalGet(index wasm.Index) error {
	if err := s.guard("local.get"); err != nil {
		return err
	}
	t, err := s.localType(index)
	if err != nil {
		return err
	}
	return s.emit("local.get", opType{push: []wasm.ValueType{t}}, Instruction{Op: wasm.OpcodeLocalGet, LocalIndex: index})
}

func (s *Sink) LocalSet(index wasm.Index) error {
	if err := s.guard("local.set"); err != nil {
		return err
	}
	t, err := s.localType(index)
	if err != nil {
		return err
	}
	return s.emit("local.set", opType{pop: []wasm.ValueType{t}}, Instruction{Op: wasm.OpcodeLocalSet, LocalIndex: index})
}

func (s *Sink) LocalTee(index wasm.Index) error {
	if err := s.guard("local.tee"); err != nil {
		return err
	}
	t, err := s.localType(index)
	if err != nil {
		return err
	}
	return s.emit("local.tee", opType{pop: []wasm.ValueType{t}, push: []wasm.ValueType{t}}, Instruction{Op: wasm.OpcodeLocalTee, LocalIndex: index})
}

func (s *Sink) globalType(g GlobalHandle) (wasm.ValueType, bool, error) {
	if !sameModule(s.module, g.module) {
		return 0, false, errf("global", entityName("", g.index), "global belongs to a different module")
	}
	e := &s.module.globals[g.index]
	return e.valType, e.mutable, nil
}

func (s *Sink) GlobalGet(g GlobalHandle) error {
	if err := s.guard("global.get"); err != nil {
		return err
	}
	t, _, err := s.globalType(g)
	if err != nil {
		return err
	}
	return s.emit("global.get", opType{push: []wasm.ValueType{t}}, Instruction{Op: wasm.OpcodeGlobalGet, GlobalIndex: g.index})
}

func (s *Sink) GlobalSet(g GlobalHandle) error {
	if err := s.guard("global.set"); err != nil {
		return err
	}
	t, mutable, err := s.globalType(g)
	if err != nil {
		return err
	}
	if !mutable {
		return errf("global.set", entityName("", g.index), "global is immutable")
	}
	return s.emit("global.set", opType{pop: []wasm.ValueType{t}}, Instruction{Op: wasm.OpcodeGlobalSet, GlobalIndex: g.index})
}

// --- memory -----------------------------------------------------------

func (s *Sink) checkMemory(mem MemoryHandle) error {
	if !sameModule(s.module, mem.module) {
		return errf("memory", entityName("", mem.index), "memory belongs to a different module")
	}
	return nil
}

// Load emits a memory load of opcode op (one of the OpcodeI32Load... family)
// at the given alignment/offset against mem, pushing the operand type.
func (s *Sink) Load(op wasm.Opcode, mem MemoryHandle, align, offset uint32, result wasm.ValueType) error {
	if err := s.guard("load"); err != nil {
		return err
	}
	if err := s.checkMemory(mem); err != nil {
		return err
	}
	return s.emit("load", opType{pop: []wasm.ValueType{i32}, push: []wasm.ValueType{result}},
		Instruction{Op: op, MemoryIndex: mem.index, Align: align, Offset: offset})
}

// Store emits a memory store of opcode op against mem, popping the address
// then the operand type.
func (s *Sink) Store(op wasm.Opcode, mem MemoryHandle, align, offset uint32, operand wasm.ValueType) error {
	if err := s.guard("store"); err != nil {
		return err
	}
	if err := s.checkMemory(mem); err != nil {
		return err
	}
	return s.emit("store", opType{pop: []wasm.ValueType{i32, operand}},
		Instruction{Op: op, MemoryIndex: mem.index, Align: align, Offset: offset})
}

func (s *Sink) MemorySize(mem MemoryHandle) error {
	if err := s.guard("memory.size"); err != nil {
		return err
	}
	if err := s.checkMemory(mem); err != nil {
		return err
	}
	return s.emit("memory.size", opType{push: []wasm.ValueType{i32}}, Instruction{Op: wasm.OpcodeMemorySize, MemoryIndex: mem.index})
}

func (s *Sink) MemoryGrow(mem MemoryHandle) error {
	if err := s.guard("memory.grow"); err != nil {
		return err
	}
	if err := s.checkMemory(mem); err != nil {
		return err
	}
	return s.emit("memory.grow", opType{pop: []wasm.ValueType{i32}, push: []wasm.ValueType{i32}}, Instruction{Op: wasm.OpcodeMemoryGrow, MemoryIndex: mem.index})
}

func (s *Sink) MemoryCopy(dst, src MemoryHandle) error {
	if err := s.guard("memory.copy"); err != nil {
		return err
	}
	if err := s.checkMemory(dst); err != nil {
		return err
	}
	if err := s.checkMemory(src); err != nil {
		return err
	}
	return s.emit("memory.copy", opType{pop: []wasm.ValueType{i32, i32, i32}},
		Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeMemoryCopy), DstIndex: dst.index, MemoryIndex: src.index})
}

func (s *Sink) MemoryFill(mem MemoryHandle) error {
	if err := s.guard("memory.fill"); err != nil {
		return err
	}
	if err := s.checkMemory(mem); err != nil {
		return err
	}
	return s.emit("memory.fill", opType{pop: []wasm.ValueType{i32, i32, i32}},
		Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeMemoryFill), MemoryIndex: mem.index})
}

func (s *Sink) MemoryInit(mem MemoryHandle, segment wasm.Index) error {
	if err := s.guard("memory.init"); err != nil {
		return err
	}
	if err := s.checkMemory(mem); err != nil {
		return err
	}
	return s.emit("memory.init", opType{pop: []wasm.ValueType{i32, i32, i32}},
		Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeMemoryInit), MemoryIndex: mem.index, SegmentIndex: segment})
}

func (s *Sink) DataDrop(segment wasm.Index) error {
	if err := s.guard("data.drop"); err != nil {
		return err
	}
	s.backend.AddInstruction(Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeDataDrop), SegmentIndex: segment})
	return nil
}

// --- table -----------------------------------------------------------

func (s *Sink) checkTable(tbl TableHandle) (wasm.RefType, error) {
	if !sameModule(s.module, tbl.module) {
		return 0, errf("table", entityName("", tbl.index), "table belongs to a different module")
	}
	return s.module.tables[tbl.index].refType, nil
}

func (s *Sink) TableGet(tbl TableHandle) error {
	if err := s.guard("table.get"); err != nil {
		return err
	}
	rt, err := s.checkTable(tbl)
	if err != nil {
		return err
	}
	return s.emit("table.get", opType{pop: []wasm.ValueType{i32}, push: []wasm.ValueType{wasm.ValueType(rt)}},
		Instruction{Op: wasm.OpcodeTableGet, TableIndex: tbl.index})
}

func (s *Sink) TableSet(tbl TableHandle) error {
	if err := s.guard("table.set"); err != nil {
		return err
	}
	rt, err := s.checkTable(tbl)
	if err != nil {
		return err
	}
	return s.emit("table.set", opType{pop: []wasm.ValueType{i32, wasm.ValueType(rt)}},
		Instruction{Op: wasm.OpcodeTableSet, TableIndex: tbl.index})
}

func (s *Sink) TableGrow(tbl TableHandle) error {
	if err := s.guard("table.grow"); err != nil {
		return err
	}
	rt, err := s.checkTable(tbl)
	if err != nil {
		return err
	}
	return s.emit("table.grow", opType{pop: []wasm.ValueType{wasm.ValueType(rt), i32}, push: []wasm.ValueType{i32}},
		Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeTableGrow), TableIndex: tbl.index})
}

func (s *Sink) TableSize(tbl TableHandle) error {
	if err := s.guard("table.size"); err != nil {
		return err
	}
	if _, err := s.checkTable(tbl); err != nil {
		return err
	}
	return s.emit("table.size", opType{push: []wasm.ValueType{i32}}, Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeTableSize), TableIndex: tbl.index})
}

func (s *Sink) TableFill(tbl TableHandle) error {
	if err := s.guard("table.fill"); err != nil {
		return err
	}
	rt, err := s.checkTable(tbl)
	if err != nil {
		return err
	}
	return s.emit("table.fill", opType{pop: []wasm.ValueType{i32, wasm.ValueType(rt), i32}},
		Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeTableFill), TableIndex: tbl.index})
}

func (s *Sink) TableCopy(dst, src TableHandle) error {
	if err := s.guard("table.copy"); err != nil {
		return err
	}
	if _, err := s.checkTable(dst); err != nil {
		return err
	}
	if _, err := s.checkTable(src); err != nil {
		return err
	}
	return s.emit("table.copy", opType{pop: []wasm.ValueType{i32, i32, i32}},
		Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeTableCopy), DstIndex: dst.index, TableIndex: src.index})
}

func (s *Sink) TableInit(tbl TableHandle, segment wasm.Index) error {
	if err := s.guard("table.init"); err != nil {
		return err
	}
	if _, err := s.checkTable(tbl); err != nil {
		return err
	}
	return s.emit("table.init", opType{pop: []wasm.ValueType{i32, i32, i32}},
		Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeTableInit), TableIndex: tbl.index, SegmentIndex: segment})
}

func (s *Sink) ElemDrop(segment wasm.Index) error {
	if err := s.guard("elem.drop"); err != nil {
		return err
	}
	s.backend.AddInstruction(Instruction{Op: wasm.MiscOpcode(wasm.MiscOpcodeElemDrop), SegmentIndex: segment})
	return nil
}

// --- drop / select / ref -----------------------------------------------

func (s *Sink) Drop() error {
	if err := s.guard("drop"); err != nil {
		return err
	}
	if len(s.operand) <= s.curEntryDepth() && !s.curUnreachable() {
		return errf("drop", "", "operand stack is empty")
	}
	if len(s.operand) > s.curEntryDepth() {
		s.operand = s.operand[:len(s.operand)-1]
	}
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeDrop})
	return nil
}

// Select emits an untyped select: the two value operands must share a
// type, inferred from the stack (spec §4.3 "select (untyped)").
func (s *Sink) Select() error {
	if err := s.guard("select"); err != nil {
		return err
	}
	entry := s.curEntryDepth()
	if len(s.operand)-entry < 3 && !s.curUnreachable() {
		return errf("select", "", "operand stack has fewer than 3 values")
	}
	var t wasm.ValueType
	if len(s.operand)-entry >= 2 {
		t = s.operand[len(s.operand)-2]
	}
	if err := s.pop("select", t, t, i32); err != nil {
		return err
	}
	s.push(t)
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeSelect})
	return nil
}

func (s *Sink) SelectTyped(t wasm.ValueType) error {
	if err := s.guard("select"); err != nil {
		return err
	}
	if err := s.pop("select", t, t, i32); err != nil {
		return err
	}
	s.push(t)
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeSelectT, SelectType: t})
	return nil
}

func (s *Sink) RefNull(rt wasm.RefType) error {
	if err := s.guard("ref.null"); err != nil {
		return err
	}
	vt := wasm.ValueTypeFuncref
	if rt == wasm.RefTypeExternref {
		vt = wasm.ValueTypeExternref
	}
	return s.emit("ref.null", opType{push: []wasm.ValueType{vt}}, Instruction{Op: wasm.OpcodeRefNull, RefType: rt})
}

func (s *Sink) RefIsNull() error {
	if err := s.guard("ref.is_null"); err != nil {
		return err
	}
	entry := s.curEntryDepth()
	var t wasm.ValueType = wasm.ValueTypeFuncref
	if len(s.operand) > entry {
		t = s.operand[len(s.operand)-1]
	}
	if err := s.pop("ref.is_null", t); err != nil {
		return err
	}
	s.push(i32)
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeRefIsNull})
	return nil
}

func (s *Sink) RefFunc(fn FunctionHandle) error {
	if err := s.guard("ref.func"); err != nil {
		return err
	}
	if !sameModule(s.module, fn.module) {
		return errf("ref.func", entityName("", fn.index), "function belongs to a different module")
	}
	return s.emit("ref.func", opType{push: []wasm.ValueType{wasm.ValueTypeFuncref}}, Instruction{Op: wasm.OpcodeRefFunc, FuncIndex: fn.index})
}

// --- calls -----------------------------------------------------------

func (s *Sink) Call(fn FunctionHandle) error {
	if err := s.guard("call"); err != nil {
		return err
	}
	if !sameModule(s.module, fn.module) {
		return errf("call", entityName("", fn.index), "function belongs to a different module")
	}
	proto := &s.module.prototypes[s.module.functions[fn.index].proto]
	return s.emit("call", opType{pop: proto.paramTypes(), push: proto.results}, Instruction{Op: wasm.OpcodeCall, FuncIndex: fn.index})
}

func (s *Sink) CallIndirect(tbl TableHandle, proto PrototypeHandle) error {
	if err := s.guard("call_indirect"); err != nil {
		return err
	}
	if _, err := s.checkTable(tbl); err != nil {
		return err
	}
	if !sameModule(s.module, proto.module) {
		return errf("call_indirect", entityName("", proto.index), "prototype belongs to a different module")
	}
	if err := s.pop("call_indirect", i32); err != nil {
		return err
	}
	p := &s.module.prototypes[proto.index]
	if err := s.pop("call_indirect", p.paramTypes()...); err != nil {
		return err
	}
	s.push(p.results...)
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeCallIndirect, TableIndex: tbl.index, TypeIndex: proto.index})
	return nil
}

// ReturnCall emits a tail call: its result types must equal the enclosing
// function's result types (spec §4.3), after which the scope is marked
// unreachable.
func (s *Sink) ReturnCall(fn FunctionHandle) error {
	if err := s.guard("return_call"); err != nil {
		return err
	}
	if !sameModule(s.module, fn.module) {
		return errf("return_call", entityName("", fn.index), "function belongs to a different module")
	}
	proto := &s.module.prototypes[s.module.functions[fn.index].proto]
	if err := s.checkTailResults(proto.results); err != nil {
		return err
	}
	if err := s.pop("return_call", proto.paramTypes()...); err != nil {
		return err
	}
	s.setUnreachable()
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeReturnCall, FuncIndex: fn.index})
	return nil
}

func (s *Sink) ReturnCallIndirect(tbl TableHandle, proto PrototypeHandle) error {
	if err := s.guard("return_call_indirect"); err != nil {
		return err
	}
	if _, err := s.checkTable(tbl); err != nil {
		return err
	}
	if !sameModule(s.module, proto.module) {
		return errf("return_call_indirect", entityName("", proto.index), "prototype belongs to a different module")
	}
	p := &s.module.prototypes[proto.index]
	if err := s.checkTailResults(p.results); err != nil {
		return err
	}
	if err := s.pop("return_call_indirect", i32); err != nil {
		return err
	}
	if err := s.pop("return_call_indirect", p.paramTypes()...); err != nil {
		return err
	}
	s.setUnreachable()
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeReturnCallIndirect, TableIndex: tbl.index, TypeIndex: proto.index})
	return nil
}

func (s *Sink) checkTailResults(results []wasm.ValueType) error {
	if len(results) != len(s.funcResults) {
		return typeMismatch("tail call", "", valueTypeNames(s.funcResults), valueTypeNames(results))
	}
	for i, t := range results {
		if t != s.funcResults[i] {
			return typeMismatch("tail call", "", valueTypeNames(s.funcResults), valueTypeNames(results))
		}
	}
	return nil
}

// --- control flow -----------------------------------------------------

// blockTypeFor computes the binary encoder's block signature for params/results,
// per spec §4.4: empty, single result type, or a prototype index.
func blockTypeFor(proto *PrototypeHandle, params, results []wasm.ValueType) wasm.BlockType {
	if proto != nil {
		return wasm.BlockType{TypeIndex: proto.index}
	}
	if len(params) == 0 && len(results) == 0 {
		return wasm.BlockType{Empty: true}
	}
	if len(params) == 0 && len(results) == 1 {
		return wasm.BlockType{HasValType: true, ValType: results[0]}
	}
	return wasm.BlockType{Empty: true}
}

func (s *Sink) pushScope(kind ScopeKind, label string, params, results []wasm.ValueType, proto *PrototypeHandle) (TargetHandle, error) {
	if err := s.guard("push scope"); err != nil {
		return TargetHandle{}, err
	}
	if kind == ScopeConditional {
		if err := s.pop("if", i32); err != nil {
			return TargetHandle{}, err
		}
	}
	if err := s.pop("push scope", params...); err != nil {
		return TargetHandle{}, err
	}
	entry := len(s.operand)
	s.push(params...)
	s.stamp++
	t := target{kind: kind, label: label, params: params, results: results, stamp: s.stamp, entryDepth: entry, unreachable: s.curUnreachableBeforePush()}
	s.targets = append(s.targets, t)

	if proto == nil && (len(params) != 0 || len(results) > 1) {
		p := s.module.DeclarePrototype(params, results)
		proto = &p
	}
	bt := blockTypeFor(proto, params, results)
	s.backend.PushScope(kind, bt)
	return TargetHandle{sink: s, index: len(s.targets) - 1, stamp: s.stamp}, nil
}

// curUnreachableBeforePush reports the unreachable state of the scope that
// is about to become the parent of a newly pushed scope (i.e. the state
// before the push), so the child inherits it.
func (s *Sink) curUnreachableBeforePush() bool {
	return s.curUnreachable()
}

func (s *Sink) Block(label string, params, results []wasm.ValueType) (TargetHandle, error) {
	return s.pushScope(ScopeBlock, label, params, results, nil)
}

func (s *Sink) Loop(label string, params, results []wasm.ValueType) (TargetHandle, error) {
	return s.pushScope(ScopeLoop, label, params, results, nil)
}

func (s *Sink) If(label string, params, results []wasm.ValueType) (TargetHandle, error) {
	return s.pushScope(ScopeConditional, label, params, results, nil)
}

func (s *Sink) BlockTyped(label string, proto PrototypeHandle) (TargetHandle, error) {
	p := &s.module.prototypes[proto.index]
	return s.pushScope(ScopeBlock, label, p.paramTypes(), p.results, &proto)
}

// closeScope is the structural close shared by PopScope and ToggleElse:
// require results on the stack (unless unreachable), pop to entry depth,
// and re-push results into the parent scope.
func (s *Sink) closeScope(t *target) error {
	if err := s.pop("pop scope", t.results...); err != nil {
		return err
	}
	if len(s.operand) > t.entryDepth {
		s.operand = s.operand[:t.entryDepth]
	}
	s.push(t.results...)
	return nil
}

// PopScope closes h, which must reference the innermost open scope.
func (s *Sink) PopScope(h TargetHandle) error {
	if err := s.guard("pop scope"); err != nil {
		return err
	}
	if _, err := s.resolve(h); err != nil {
		return err
	}
	if h.index != len(s.targets)-1 {
		return errf("pop scope", "", "target is not the innermost open scope")
	}
	t := s.targets[h.index]
	if err := s.closeScope(&t); err != nil {
		return err
	}
	s.targets = s.targets[:h.index]
	s.backend.PopScope(t.kind)
	return nil
}

// ToggleElse switches a still-open conditional target to its else branch.
// Legal only once, only on the innermost scope, and only for a conditional.
func (s *Sink) ToggleElse(h TargetHandle) error {
	if err := s.guard("else"); err != nil {
		return err
	}
	t, err := s.resolve(h)
	if err != nil {
		return err
	}
	if h.index != len(s.targets)-1 {
		return errf("else", "", "target is not the innermost open scope")
	}
	if t.kind != ScopeConditional {
		return errf("else", "", "else is only legal on a conditional scope")
	}
	if t.otherwise {
		return errf("else", "", "else already toggled for this scope")
	}
	if err := s.closeScope(t); err != nil {
		return err
	}
	s.operand = s.operand[:t.entryDepth]
	s.push(t.params...)
	t.unreachable = false
	t.otherwise = true
	s.backend.ToggleConditional()
	return nil
}

// --- branches -----------------------------------------------------------

func (s *Sink) Br(h TargetHandle) error {
	if err := s.guard("br"); err != nil {
		return err
	}
	t, err := s.resolve(h)
	if err != nil {
		return err
	}
	if err := s.pop("br", t.labelArity()...); err != nil {
		return err
	}
	s.setUnreachable()
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeBr, LocalIndex: wasm.Index(s.depthOf(h))})
	return nil
}

func (s *Sink) BrIf(h TargetHandle) error {
	if err := s.guard("br_if"); err != nil {
		return err
	}
	t, err := s.resolve(h)
	if err != nil {
		return err
	}
	if err := s.pop("br_if", i32); err != nil {
		return err
	}
	arity := t.labelArity()
	if err := s.pop("br_if", arity...); err != nil {
		return err
	}
	s.push(arity...)
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeBrIf, LocalIndex: wasm.Index(s.depthOf(h))})
	return nil
}

// BrTable emits a branch table: every target (and the default) must agree
// on label-arity, enforced by popping/re-pushing each in turn.
func (s *Sink) BrTable(targets []TargetHandle, def TargetHandle) error {
	if err := s.guard("br_table"); err != nil {
		return err
	}
	if err := s.pop("br_table", i32); err != nil {
		return err
	}
	all := append(append([]TargetHandle{}, targets...), def)
	depths := make([]uint32, 0, len(targets))
	for i, h := range all {
		t, err := s.resolve(h)
		if err != nil {
			return err
		}
		arity := t.labelArity()
		if err := s.pop("br_table", arity...); err != nil {
			return err
		}
		s.push(arity...)
		if i < len(targets) {
			depths = append(depths, uint32(s.depthOf(h)))
		}
	}
	s.setUnreachable()
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeBrTable, TableTargets: depths, DefaultTarget: uint32(s.depthOf(def))})
	return nil
}

// depthOf converts a target's stack index into the wire format's relative
// branch depth (0 = innermost).
func (s *Sink) depthOf(h TargetHandle) int {
	return len(s.targets) - 1 - h.index
}

func (s *Sink) Return() error {
	if err := s.guard("return"); err != nil {
		return err
	}
	if err := s.pop("return", s.funcResults...); err != nil {
		return err
	}
	s.setUnreachable()
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeReturn})
	return nil
}

func (s *Sink) Unreachable() error {
	if err := s.guard("unreachable"); err != nil {
		return err
	}
	s.setUnreachable()
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeUnreachable})
	return nil
}

func (s *Sink) Nop() error {
	if err := s.guard("nop"); err != nil {
		return err
	}
	s.backend.AddInstruction(Instruction{Op: wasm.OpcodeNop})
	return nil
}

func (s *Sink) Comment(text string) error {
	if err := s.guard("comment"); err != nil {
		return err
	}
	s.backend.AddComment(text)
	return nil
}

// --- close -----------------------------------------------------------

// Close finalizes the sink: idempotent, drains any pending deferred error,
// force-closes any still-open explicit scopes, checks the function-level
// result types if reachable, unbinds from the function, and notifies the
// backend (spec §4.2 "Sink close"). Errors are returned directly: Go has no
// destructors, so the RAII-triggered deferral the source relies on only
// applies to the one implicit close path Close() itself cannot avoid —
// Module.Close synthesising an empty sink for an unbound function — and
// that call site defers the error itself (see module.go).
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	if err := s.module.deferred.drain(); err != nil {
		return err
	}

	for len(s.targets) > 0 {
		t := s.targets[len(s.targets)-1]
		if err := s.closeScope(&t); err != nil {
			return err
		}
		s.targets = s.targets[:len(s.targets)-1]
		s.backend.PopScope(t.kind)
	}

	if !s.funcUnreachable {
		if err := s.pop("close", s.funcResults...); err != nil {
			return err
		}
	}

	s.closed = true
	s.module.functions[s.fn.index].sink = nil
	s.backend.Close()
	return nil
}
