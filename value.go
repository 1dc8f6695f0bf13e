package wasgen

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// Value is a constant initializer: the form accepted for global
// initializers, data/element segment offsets, and element segment items.
// It always carries exactly the value type it pushes.
type Value struct {
	typ  wasm.ValueType
	expr wasm.ConstantExpression
	// global is set when this Value is a global.get reference, so
	// assignment-time checks can verify the referenced global is an
	// imported, immutable global of matching type (spec §4.1).
	global *GlobalHandle
}

// Type reports the value type this constant produces.
func (v Value) Type() wasm.ValueType { return v.typ }

// I32Const is a constant i32 value.
func I32Const(v int32) Value {
	return Value{typ: wasm.ValueTypeI32, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: leb128.EncodeInt32(v)}}
}

// I64Const is a constant i64 value.
func I64Const(v int64) Value {
	return Value{typ: wasm.ValueTypeI64, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeI64Const, Data: leb128.EncodeInt64(v)}}
}

// F32Const is a constant f32 value, given as its IEEE-754 bit pattern.
func F32Const(bits uint32) Value {
	return Value{typ: wasm.ValueTypeF32, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeF32Const, Data: leb128.EncodeF32(bits)}}
}

// F64Const is a constant f64 value, given as its IEEE-754 bit pattern.
func F64Const(bits uint64) Value {
	return Value{typ: wasm.ValueTypeF64, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeF64Const, Data: leb128.EncodeF64(bits)}}
}

// RefNullExtern is the null externref constant.
func RefNullExtern() Value {
	return Value{typ: wasm.ValueTypeExternref, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeRefNull, Data: []byte{wasm.RefTypeExternref}}}
}

// RefNullFunc is the null funcref constant.
func RefNullFunc() Value {
	return Value{typ: wasm.ValueTypeFuncref, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeRefNull, Data: []byte{wasm.RefTypeFuncref}}}
}

// RefFunc is a `ref.func` constant referencing fn, which must belong to the
// same module as the context this Value is ultimately used in.
func RefFunc(fn FunctionHandle) Value {
	return Value{typ: wasm.ValueTypeFuncref, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeRefFunc, Data: leb128.EncodeUint32(fn.index)}, global: nil}
}

// GlobalGetValue references an imported, immutable global as a constant
// value (the only form of global.get legal in a constant expression).
func GlobalGetValue(g GlobalHandle, typ wasm.ValueType) Value {
	h := g
	return Value{typ: typ, expr: wasm.ConstantExpression{Opcode: wasm.OpcodeGlobalGet, Data: leb128.EncodeUint32(g.index)}, global: &h}
}
