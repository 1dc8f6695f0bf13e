package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// EncodeValTypes encodes a vector of value types: a LEB128 count followed by
// one byte per type.
func EncodeValTypes(vt []wasm.ValueType) []byte {
	count := leb128.EncodeUint32(uint32(len(vt)))
	return append(count, vt...)
}
