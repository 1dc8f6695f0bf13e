package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

// Instruction is a tagged descriptor for one function-body instruction: the
// opcode plus whatever operands the encoder needs to serialise it. The
// validator and the encoder both switch on Op; the payload fields are a
// plain union rather than an interface so neither needs a type assertion.
type Instruction struct {
	Op wasm.Opcode

	// Immediate operands, populated per family.
	LocalIndex   wasm.Index
	GlobalIndex  wasm.Index
	FuncIndex    wasm.Index
	TableIndex   wasm.Index
	TypeIndex    wasm.Index
	MemoryIndex  wasm.Index
	SegmentIndex wasm.Index
	DstIndex     wasm.Index // copy-family destination index (memory or table)

	I32 int32
	I64 int64
	F32 uint32
	F64 uint64

	// Memory access.
	Offset uint32
	Align  uint32

	// select t
	SelectType wasm.ValueType

	// ref.null
	RefType wasm.RefType

	// br_table
	TableTargets []uint32
	DefaultTarget uint32
}

// opType is the operand-stack contract for one instruction: the types it
// pops (in stack order, i.e. the last entry is the top of the stack and is
// popped first) and the types it pushes.
type opType struct {
	pop  []wasm.ValueType
	push []wasm.ValueType
}

var i32 = wasm.ValueTypeI32
var i64 = wasm.ValueTypeI64
var f32 = wasm.ValueTypeF32
var f64 = wasm.ValueTypeF64

func unary(t wasm.ValueType) opType      { return opType{pop: []wasm.ValueType{t}, push: []wasm.ValueType{t}} }
func unaryTo(in, out wasm.ValueType) opType { return opType{pop: []wasm.ValueType{in}, push: []wasm.ValueType{out}} }
func binary(t wasm.ValueType) opType     { return opType{pop: []wasm.ValueType{t, t}, push: []wasm.ValueType{t}} }
func compare(t wasm.ValueType) opType    { return opType{pop: []wasm.ValueType{t, t}, push: []wasm.ValueType{i32}} }
func testOp(t wasm.ValueType) opType     { return opType{pop: []wasm.ValueType{t}, push: []wasm.ValueType{i32}} }

// simpleOpTypes covers every fixed-arity numeric/conversion instruction:
// those whose stack contract never depends on an operand field of
// Instruction. Memory ops, locals/globals, calls, branches and the control
// family are validated explicitly in sink.go instead.
var simpleOpTypes = map[wasm.Opcode]opType{
	wasm.OpcodeI32Eqz: testOp(i32), wasm.OpcodeI64Eqz: testOp(i64),

	wasm.OpcodeI32Eq: compare(i32), wasm.OpcodeI32Ne: compare(i32),
	wasm.OpcodeI32LtS: compare(i32), wasm.OpcodeI32LtU: compare(i32),
	wasm.OpcodeI32GtS: compare(i32), wasm.OpcodeI32GtU: compare(i32),
	wasm.OpcodeI32LeS: compare(i32), wasm.OpcodeI32LeU: compare(i32),
	wasm.OpcodeI32GeS: compare(i32), wasm.OpcodeI32GeU: compare(i32),

	wasm.OpcodeI64Eq: compare(i64), wasm.OpcodeI64Ne: compare(i64),
	wasm.OpcodeI64LtS: compare(i64), wasm.OpcodeI64LtU: compare(i64),
	wasm.OpcodeI64GtS: compare(i64), wasm.OpcodeI64GtU: compare(i64),
	wasm.OpcodeI64LeS: compare(i64), wasm.OpcodeI64LeU: compare(i64),
	wasm.OpcodeI64GeS: compare(i64), wasm.OpcodeI64GeU: compare(i64),

	wasm.OpcodeF32Eq: compare(f32), wasm.OpcodeF32Ne: compare(f32),
	wasm.OpcodeF32Lt: compare(f32), wasm.OpcodeF32Gt: compare(f32),
	wasm.OpcodeF32Le: compare(f32), wasm.OpcodeF32Ge: compare(f32),

	wasm.OpcodeF64Eq: compare(f64), wasm.OpcodeF64Ne: compare(f64),
	wasm.OpcodeF64Lt: compare(f64), wasm.OpcodeF64Gt: compare(f64),
	wasm.OpcodeF64Le: compare(f64), wasm.OpcodeF64Ge: compare(f64),

	wasm.OpcodeI32Clz: unary(i32), wasm.OpcodeI32Ctz: unary(i32), wasm.OpcodeI32Popcnt: unary(i32),
	wasm.OpcodeI32Add: binary(i32), wasm.OpcodeI32Sub: binary(i32), wasm.OpcodeI32Mul: binary(i32),
	wasm.OpcodeI32DivS: binary(i32), wasm.OpcodeI32DivU: binary(i32),
	wasm.OpcodeI32RemS: binary(i32), wasm.OpcodeI32RemU: binary(i32),
	wasm.OpcodeI32And: binary(i32), wasm.OpcodeI32Or: binary(i32), wasm.OpcodeI32Xor: binary(i32),
	wasm.OpcodeI32Shl: binary(i32), wasm.OpcodeI32ShrS: binary(i32), wasm.OpcodeI32ShrU: binary(i32),
	wasm.OpcodeI32Rotl: binary(i32), wasm.OpcodeI32Rotr: binary(i32),

	wasm.OpcodeI64Clz: unary(i64), wasm.OpcodeI64Ctz: unary(i64), wasm.OpcodeI64Popcnt: unary(i64),
	wasm.OpcodeI64Add: binary(i64), wasm.OpcodeI64Sub: binary(i64), wasm.OpcodeI64Mul: binary(i64),
	wasm.OpcodeI64DivS: binary(i64), wasm.OpcodeI64DivU: binary(i64),
	wasm.OpcodeI64RemS: binary(i64), wasm.OpcodeI64RemU: binary(i64),
	wasm.OpcodeI64And: binary(i64), wasm.OpcodeI64Or: binary(i64), wasm.OpcodeI64Xor: binary(i64),
	wasm.OpcodeI64Shl: binary(i64), wasm.OpcodeI64ShrS: binary(i64), wasm.OpcodeI64ShrU: binary(i64),
	wasm.OpcodeI64Rotl: binary(i64), wasm.OpcodeI64Rotr: binary(i64),

	wasm.OpcodeF32Abs: unary(f32), wasm.OpcodeF32Neg: unary(f32), wasm.OpcodeF32Ceil: unary(f32),
	wasm.OpcodeF32Floor: unary(f32), wasm.OpcodeF32Trunc: unary(f32), wasm.OpcodeF32Nearest: unary(f32),
	wasm.OpcodeF32Sqrt: unary(f32), wasm.OpcodeF32Add: binary(f32), wasm.OpcodeF32Sub: binary(f32),
	wasm.OpcodeF32Mul: binary(f32), wasm.OpcodeF32Div: binary(f32),
	wasm.OpcodeF32Min: binary(f32), wasm.OpcodeF32Max: binary(f32), wasm.OpcodeF32Copysign: binary(f32),

	wasm.OpcodeF64Abs: unary(f64), wasm.OpcodeF64Neg: unary(f64), wasm.OpcodeF64Ceil: unary(f64),
	wasm.OpcodeF64Floor: unary(f64), wasm.OpcodeF64Trunc: unary(f64), wasm.OpcodeF64Nearest: unary(f64),
	wasm.OpcodeF64Sqrt: unary(f64), wasm.OpcodeF64Add: binary(f64), wasm.OpcodeF64Sub: binary(f64),
	wasm.OpcodeF64Mul: binary(f64), wasm.OpcodeF64Div: binary(f64),
	wasm.OpcodeF64Min: binary(f64), wasm.OpcodeF64Max: binary(f64), wasm.OpcodeF64Copysign: binary(f64),

	wasm.OpcodeI32WrapI64:     unaryTo(i64, i32),
	wasm.OpcodeI32TruncF32S:   unaryTo(f32, i32),
	wasm.OpcodeI32TruncF32U:   unaryTo(f32, i32),
	wasm.OpcodeI32TruncF64S:   unaryTo(f64, i32),
	wasm.OpcodeI32TruncF64U:   unaryTo(f64, i32),
	wasm.OpcodeI64ExtendI32S:  unaryTo(i32, i64),
	wasm.OpcodeI64ExtendI32U:  unaryTo(i32, i64),
	wasm.OpcodeI64TruncF32S:   unaryTo(f32, i64),
	wasm.OpcodeI64TruncF32U:   unaryTo(f32, i64),
	wasm.OpcodeI64TruncF64S:   unaryTo(f64, i64),
	wasm.OpcodeI64TruncF64U:   unaryTo(f64, i64),
	wasm.OpcodeF32ConvertI32S: unaryTo(i32, f32),
	wasm.OpcodeF32ConvertI32U: unaryTo(i32, f32),
	wasm.OpcodeF32ConvertI64S: unaryTo(i64, f32),
	wasm.OpcodeF32ConvertI64U: unaryTo(i64, f32),
	wasm.OpcodeF32DemoteF64:   unaryTo(f64, f32),
	wasm.OpcodeF64ConvertI32S: unaryTo(i32, f64),
	wasm.OpcodeF64ConvertI32U: unaryTo(i32, f64),
	wasm.OpcodeF64ConvertI64S: unaryTo(i64, f64),
	wasm.OpcodeF64ConvertI64U: unaryTo(i64, f64),
	wasm.OpcodeF64PromoteF32:  unaryTo(f32, f64),

	wasm.OpcodeI32ReinterpretF32: unaryTo(f32, i32),
	wasm.OpcodeI64ReinterpretF64: unaryTo(f64, i64),
	wasm.OpcodeF32ReinterpretI32: unaryTo(i32, f32),
	wasm.OpcodeF64ReinterpretI64: unaryTo(i64, f64),

	wasm.OpcodeI32Extend8S:  unary(i32),
	wasm.OpcodeI32Extend16S: unary(i32),
	wasm.OpcodeI64Extend8S:  unary(i64),
	wasm.OpcodeI64Extend16S: unary(i64),
	wasm.OpcodeI64Extend32S: unary(i64),
}

var truncSatOpTypes = map[uint16]opType{
	wasm.MiscOpcodeI32TruncSatF32S: unaryTo(f32, i32),
	wasm.MiscOpcodeI32TruncSatF32U: unaryTo(f32, i32),
	wasm.MiscOpcodeI32TruncSatF64S: unaryTo(f64, i32),
	wasm.MiscOpcodeI32TruncSatF64U: unaryTo(f64, i32),
	wasm.MiscOpcodeI64TruncSatF32S: unaryTo(f32, i64),
	wasm.MiscOpcodeI64TruncSatF32U: unaryTo(f32, i64),
	wasm.MiscOpcodeI64TruncSatF64S: unaryTo(f64, i64),
	wasm.MiscOpcodeI64TruncSatF64U: unaryTo(f64, i64),
}
