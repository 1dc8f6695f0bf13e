package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// encodeCode encodes one code section entry: a byte-length prefix around
// the local-variable declarations (grouped into runs of identical type)
// followed by the function body.
func encodeCode(c *wasm.Code) []byte {
	var body []byte

	blocks := groupLocalTypes(c.LocalTypes)
	body = append(body, leb128.EncodeUint32(uint32(len(blocks)))...)
	for _, b := range blocks {
		body = append(body, leb128.EncodeUint32(b.count)...)
		body = append(body, b.valType)
	}
	body = append(body, c.Body...)

	return encodeSizePrefixed(body)
}

type localBlock struct {
	count   uint32
	valType wasm.ValueType
}

// groupLocalTypes collapses consecutive runs of the same local type into a
// single (count, type) block, preserving declaration order.
func groupLocalTypes(types []wasm.ValueType) []localBlock {
	var blocks []localBlock
	for _, t := range types {
		if n := len(blocks); n > 0 && blocks[n-1].valType == t {
			blocks[n-1].count++
			continue
		}
		blocks = append(blocks, localBlock{count: 1, valType: t})
	}
	return blocks
}
