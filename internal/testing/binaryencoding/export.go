package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// encodeExport encodes one export section entry: field name, export kind,
// then the index into that kind's namespace.
func encodeExport(e *wasm.Export) []byte {
	out := encodeSizePrefixed([]byte(e.Name))
	out = append(out, e.Type)
	return append(out, leb128.EncodeUint32(e.Index)...)
}
