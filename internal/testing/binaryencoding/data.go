package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// encodeDataSegment encodes one data section entry: 1 for passive, 2 for
// active with an explicit memory index. Active segments always use the
// explicit-memory-index form, even against memory 0.
func encodeDataSegment(d wasm.DataSegment) []byte {
	if d.Passive {
		out := []byte{0x01}
		return append(out, encodeSizePrefixed(d.Init)...)
	}
	out := []byte{0x02}
	out = append(out, leb128.EncodeUint32(d.MemoryIndex)...)
	out = append(out, encodeConstantExpression(d.OffsetExpression)...)
	return append(out, encodeSizePrefixed(d.Init)...)
}
