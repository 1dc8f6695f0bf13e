// Package binaryencoding turns the wire-level structures of internal/wasm
// into the bytes of the WebAssembly binary format.
//
// Functions named EncodeXxx return the bytes of a complete top-level
// section, including its section ID and size prefix. Functions named
// encodeXxx (unexported) return the raw contents of a sub-structure with no
// section wrapper, for composition by their callers.
package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// Magic is the 4-byte preamble of every WebAssembly binary module.
var Magic = []byte{0x00, 0x61, 0x73, 0x6d}

// version is the binary format version, currently always 1.
var version = []byte{0x01, 0x00, 0x00, 0x00}

// EncodeModule serializes m as a complete WebAssembly binary module,
// including the magic preamble and version, followed by each non-empty
// section in binary-format order.
func EncodeModule(m *wasm.Module) []byte {
	out := append(append([]byte{}, Magic...), version...)

	if len(m.TypeSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.TypeSection)))
		for _, ft := range m.TypeSection {
			content = append(content, encodeFunctionType(ft)...)
		}
		out = append(out, encodeSection(wasm.SectionIDType, content)...)
	}

	if len(m.ImportSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.ImportSection)))
		for i := range m.ImportSection {
			content = append(content, EncodeImport(&m.ImportSection[i])...)
		}
		out = append(out, encodeSection(wasm.SectionIDImport, content)...)
	}

	if len(m.FunctionSection) > 0 {
		out = append(out, EncodeFunctionSection(m.FunctionSection)...)
	}

	if len(m.TableSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.TableSection)))
		for _, tbl := range m.TableSection {
			content = append(content, encodeTableType(tbl)...)
		}
		out = append(out, encodeSection(wasm.SectionIDTable, content)...)
	}

	if len(m.MemorySection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.MemorySection)))
		for _, mem := range m.MemorySection {
			content = append(content, encodeLimitsType(mem.Min, mem.Max, mem.IsMaxEncoded)...)
		}
		out = append(out, encodeSection(wasm.SectionIDMemory, content)...)
	}

	if len(m.GlobalSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.GlobalSection)))
		for _, g := range m.GlobalSection {
			content = append(content, encodeGlobal(g)...)
		}
		out = append(out, encodeSection(wasm.SectionIDGlobal, content)...)
	}

	if len(m.ExportSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.ExportSection)))
		for i := range m.ExportSection {
			content = append(content, encodeExport(&m.ExportSection[i])...)
		}
		out = append(out, encodeSection(wasm.SectionIDExport, content)...)
	}

	if m.StartSection != nil {
		out = append(out, EncodeStartSection(*m.StartSection)...)
	}

	if len(m.ElementSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.ElementSection)))
		for _, es := range m.ElementSection {
			content = append(content, encodeElementSegment(es)...)
		}
		out = append(out, encodeSection(wasm.SectionIDElement, content)...)
	}

	if len(m.CodeSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.CodeSection)))
		for i := range m.CodeSection {
			content = append(content, encodeCode(&m.CodeSection[i])...)
		}
		out = append(out, encodeSection(wasm.SectionIDCode, content)...)
	}

	if len(m.DataSection) > 0 {
		content := leb128.EncodeUint32(uint32(len(m.DataSection)))
		for _, d := range m.DataSection {
			content = append(content, encodeDataSegment(d)...)
		}
		out = append(out, encodeSection(wasm.SectionIDData, content)...)
	}

	if m.NameSection != nil {
		data := EncodeNameSectionData(m.NameSection)
		if len(data) > 0 {
			content := append(encodeSizePrefixed([]byte("name")), data...)
			out = append(out, encodeSection(wasm.SectionIDCustom, content)...)
		}
	}

	return out
}

// encodeSection wraps content with its section ID and a LEB128 byte-length
// prefix, the shape shared by every top-level section.
func encodeSection(id wasm.SectionID, content []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(content)))...)
	return append(out, content...)
}

func encodeFunctionType(ft wasm.FunctionType) []byte {
	out := []byte{0x60} // func type tag
	out = append(out, EncodeValTypes(ft.Params)...)
	out = append(out, EncodeValTypes(ft.Results)...)
	return out
}

func encodeTableType(t wasm.Table) []byte {
	out := []byte{t.Type}
	hasMax := t.Max != nil
	var max uint32
	if hasMax {
		max = *t.Max
	}
	return append(out, encodeLimitsType(t.Min, max, hasMax)...)
}

// encodeLimitsType encodes a {min, max?} pair using the flag byte shared by
// memory and table limits: 0x00 followed by min, or 0x01 followed by min
// then max.
func encodeLimitsType(min, max uint32, hasMax bool) []byte {
	if !hasMax {
		return append([]byte{0x00}, leb128.EncodeUint32(min)...)
	}
	out := append([]byte{0x01}, leb128.EncodeUint32(min)...)
	return append(out, leb128.EncodeUint32(max)...)
}

// EncodeFunctionSection encodes the function section: a vector of type
// indices, one per locally defined function, in function-index order.
func EncodeFunctionSection(typeIndices []wasm.Index) []byte {
	content := leb128.EncodeUint32(uint32(len(typeIndices)))
	for _, i := range typeIndices {
		content = append(content, leb128.EncodeUint32(i)...)
	}
	return encodeSection(wasm.SectionIDFunction, content)
}

// EncodeStartSection encodes the start section: the index of the start
// function.
func EncodeStartSection(funcIndex wasm.Index) []byte {
	return encodeSection(wasm.SectionIDStart, leb128.EncodeUint32(funcIndex))
}
