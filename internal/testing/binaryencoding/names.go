package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

const (
	subsectionIDModuleName    = uint8(0)
	subsectionIDFunctionNames = uint8(1)
	subsectionIDLocalNames    = uint8(2)
)

// EncodeNameSectionData encodes the "name" custom section's payload: zero
// or more of the module-name, function-names and local-names subsections,
// each present only if non-empty.
func EncodeNameSectionData(ns *wasm.NameSection) []byte {
	var out []byte
	if ns.ModuleName != "" {
		out = append(out, encodeNameSubsection(subsectionIDModuleName, encodeSizePrefixed([]byte(ns.ModuleName)))...)
	}
	if len(ns.FunctionNames) > 0 {
		out = append(out, encodeNameSubsection(subsectionIDFunctionNames, encodeNameMap(ns.FunctionNames))...)
	}
	if len(ns.LocalNames) > 0 {
		out = append(out, encodeNameSubsection(subsectionIDLocalNames, encodeIndirectNameMap(ns.LocalNames))...)
	}
	return out
}

func encodeNameSubsection(id uint8, data []byte) []byte {
	out := []byte{id}
	return append(out, encodeSizePrefixed(data)...)
}

func encodeNameAssoc(na wasm.NameAssoc) []byte {
	out := leb128.EncodeUint32(na.Index)
	return append(out, encodeSizePrefixed([]byte(na.Name))...)
}

func encodeNameMap(m wasm.NameMap) []byte {
	out := leb128.EncodeUint32(uint32(len(m)))
	for _, na := range m {
		out = append(out, encodeNameAssoc(na)...)
	}
	return out
}

func encodeIndirectNameMap(m wasm.IndirectNameMap) []byte {
	out := leb128.EncodeUint32(uint32(len(m)))
	for _, entry := range m {
		out = append(out, leb128.EncodeUint32(entry.Index)...)
		out = append(out, encodeNameMap(entry.NameMap)...)
	}
	return out
}

// encodeSizePrefixed encodes data as a LEB128 byte-length prefix followed
// by the bytes themselves: the vec(byte) shape used for names and strings
// throughout the binary format.
func encodeSizePrefixed(data []byte) []byte {
	out := leb128.EncodeUint32(uint32(len(data)))
	return append(out, data...)
}
