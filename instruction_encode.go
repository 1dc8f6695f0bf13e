package wasgen

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// encodeInstruction appends the wire encoding of inst to buf, per spec.md
// §4.4/§6.2 and §9's multi-memory alignment-byte note.
func encodeInstruction(buf []byte, inst Instruction) []byte {
	sub, isMisc := wasm.SplitMiscOpcode(inst.Op)
	if isMisc {
		buf = append(buf, wasm.OpcodeMiscPrefix)
		buf = append(buf, leb128.EncodeUint32(uint32(sub))...)
	} else {
		buf = append(buf, byte(inst.Op))
	}

	switch inst.Op {
	case wasm.OpcodeLocalGet, wasm.OpcodeLocalSet, wasm.OpcodeLocalTee:
		buf = append(buf, leb128.EncodeUint32(inst.LocalIndex)...)
	case wasm.OpcodeGlobalGet, wasm.OpcodeGlobalSet:
		buf = append(buf, leb128.EncodeUint32(inst.GlobalIndex)...)
	case wasm.OpcodeCall, wasm.OpcodeReturnCall, wasm.OpcodeRefFunc:
		buf = append(buf, leb128.EncodeUint32(inst.FuncIndex)...)
	case wasm.OpcodeCallIndirect, wasm.OpcodeReturnCallIndirect:
		buf = append(buf, leb128.EncodeUint32(inst.TypeIndex)...)
		buf = append(buf, leb128.EncodeUint32(inst.TableIndex)...)
	case wasm.OpcodeTableGet, wasm.OpcodeTableSet:
		buf = append(buf, leb128.EncodeUint32(inst.TableIndex)...)
	case wasm.OpcodeI32Const:
		buf = append(buf, leb128.EncodeInt32(inst.I32)...)
	case wasm.OpcodeI64Const:
		buf = append(buf, leb128.EncodeInt64(inst.I64)...)
	case wasm.OpcodeF32Const:
		buf = append(buf, leb128.EncodeF32(inst.F32)...)
	case wasm.OpcodeF64Const:
		buf = append(buf, leb128.EncodeF64(inst.F64)...)
	case wasm.OpcodeSelectT:
		buf = append(buf, leb128.EncodeUint32(1)...)
		buf = append(buf, byte(inst.SelectType))
	case wasm.OpcodeRefNull:
		buf = append(buf, inst.RefType)
	case wasm.OpcodeBr, wasm.OpcodeBrIf:
		buf = append(buf, leb128.EncodeUint32(inst.LocalIndex)...)
	case wasm.OpcodeBrTable:
		buf = append(buf, leb128.EncodeUint32(uint32(len(inst.TableTargets)))...)
		for _, d := range inst.TableTargets {
			buf = append(buf, leb128.EncodeUint32(d)...)
		}
		buf = append(buf, leb128.EncodeUint32(inst.DefaultTarget)...)
	case wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow:
		buf = append(buf, leb128.EncodeUint32(inst.MemoryIndex)...)
	default:
		if isMisc {
			buf = encodeMiscOperands(buf, sub, inst)
		} else if isLoadStore(inst.Op) {
			buf = encodeMemarg(buf, inst)
		}
	}
	return buf
}

func isLoadStore(op wasm.Opcode) bool {
	return (op >= wasm.OpcodeI32Load && op <= wasm.OpcodeI64Load32U) ||
		(op >= wasm.OpcodeI32Store && op <= wasm.OpcodeI64Store32)
}

// encodeMemarg writes the alignment/offset pair, embedding the memory index
// into the alignment byte (bit 6) per the multi-memory proposal when
// MemoryIndex is nonzero (spec.md §9).
func encodeMemarg(buf []byte, inst Instruction) []byte {
	align := inst.Align
	if inst.MemoryIndex != 0 {
		align |= 1 << 6
		buf = append(buf, leb128.EncodeUint32(align)...)
		buf = append(buf, leb128.EncodeUint32(inst.MemoryIndex)...)
	} else {
		buf = append(buf, leb128.EncodeUint32(align)...)
	}
	return append(buf, leb128.EncodeUint32(inst.Offset)...)
}

func encodeMiscOperands(buf []byte, sub uint16, inst Instruction) []byte {
	switch sub {
	case wasm.MiscOpcodeMemoryInit:
		buf = append(buf, leb128.EncodeUint32(inst.SegmentIndex)...)
		buf = append(buf, leb128.EncodeUint32(inst.MemoryIndex)...)
	case wasm.MiscOpcodeDataDrop:
		buf = append(buf, leb128.EncodeUint32(inst.SegmentIndex)...)
	case wasm.MiscOpcodeMemoryCopy:
		buf = append(buf, leb128.EncodeUint32(inst.DstIndex)...)
		buf = append(buf, leb128.EncodeUint32(inst.MemoryIndex)...)
	case wasm.MiscOpcodeMemoryFill:
		buf = append(buf, leb128.EncodeUint32(inst.MemoryIndex)...)
	case wasm.MiscOpcodeTableInit:
		buf = append(buf, leb128.EncodeUint32(inst.SegmentIndex)...)
		buf = append(buf, leb128.EncodeUint32(inst.TableIndex)...)
	case wasm.MiscOpcodeElemDrop:
		buf = append(buf, leb128.EncodeUint32(inst.SegmentIndex)...)
	case wasm.MiscOpcodeTableCopy:
		buf = append(buf, leb128.EncodeUint32(inst.DstIndex)...)
		buf = append(buf, leb128.EncodeUint32(inst.TableIndex)...)
	case wasm.MiscOpcodeTableGrow, wasm.MiscOpcodeTableSize, wasm.MiscOpcodeTableFill:
		buf = append(buf, leb128.EncodeUint32(inst.TableIndex)...)
	}
	return buf
}
