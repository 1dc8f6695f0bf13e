// Package wasm holds the wire-level vocabulary shared by the builder API and
// the binary encoder: value types, opcodes and the accumulating Module
// struct the encoder fills in as the builder emits events.
//
// Nothing in this package parses WebAssembly; it only names the bytes of the
// format so the encoder (internal/testing/binaryencoding) and the builder (package wasgen)
// agree on them.
package wasm

// ValueType describes a primitive value on the operand stack or in a
// local/global/parameter/result slot.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c

	// ValueTypeV128 is reserved for the SIMD proposal. No instruction in
	// this library produces or consumes it; see SPEC_FULL.md.
	ValueTypeV128 ValueType = 0x7b

	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the WebAssembly text format name of t.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return "unknown"
	}
}

// RefType is the subset of ValueType that denotes a reference: funcref or
// externref.
type RefType = byte

const (
	RefTypeFuncref   RefType = ValueTypeFuncref
	RefTypeExternref RefType = ValueTypeExternref
)

// ExternType classifies an import or export.
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// ExternTypeName returns the text-format field name of et.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Index is a zero-based index into one of the module's namespaces.
type Index = uint32

// MemoryLimitPages is the implicit maximum for a memory that declares no
// explicit max: 2^16 pages (4GiB of address space at 64KiB/page).
const MemoryLimitPages = uint32(65536)

// MemoryPageSize is the number of bytes in one memory page.
const MemoryPageSize = uint32(65536)

// FunctionType is a function signature: ordered parameter types followed by
// ordered result types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// GlobalType describes a global variable's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// Limit is {min, max?} shared by memories and tables.
type Limit struct {
	Min    uint32
	Max    uint32
	HasMax bool
}
