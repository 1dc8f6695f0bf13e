package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// EncodeImport encodes one import section entry: module name, field name,
// then a type-tagged descriptor.
func EncodeImport(i *wasm.Import) []byte {
	out := encodeSizePrefixed([]byte(i.Module))
	out = append(out, encodeSizePrefixed([]byte(i.Name))...)
	out = append(out, i.Type)

	switch i.Type {
	case wasm.ExternTypeFunc:
		out = append(out, leb128.EncodeUint32(i.DescFunc)...)
	case wasm.ExternTypeTable:
		out = append(out, encodeTableType(i.DescTable)...)
	case wasm.ExternTypeMemory:
		out = append(out, encodeLimitsType(i.DescMem.Min, i.DescMem.Max, i.DescMem.IsMaxEncoded)...)
	case wasm.ExternTypeGlobal:
		out = append(out, i.DescGlobal.ValType, encodeMutability(i.DescGlobal.Mutable))
	}
	return out
}

func encodeMutability(mutable bool) byte {
	if mutable {
		return 0x01
	}
	return 0x00
}
