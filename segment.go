package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

func (m *Module) checkOffset(op string, offset Value) error {
	if offset.typ != wasm.ValueTypeI32 {
		return typeMismatch(op, "", []string{"i32"}, []string{wasm.ValueTypeName(offset.typ)})
	}
	if offset.global != nil {
		if !sameModule(m, offset.global.module) {
			return errf(op, "", "offset references a global from another module")
		}
		g := &m.globals[offset.global.index]
		if !g.ex.Imported || g.mutable {
			return errf(op, "", "offset global.get must reference an imported immutable global")
		}
	}
	return nil
}

// WriteData writes a data segment against mem (nil for a passive segment)
// at offset, which must be an i32 constant or an imported immutable i32
// global (spec §4.1 "write data segment").
func (m *Module) WriteData(mem *MemoryHandle, offset Value, bytes []byte) error {
	if err := m.checkDeferred(); err != nil {
		return err
	}
	seg := wasm.DataSegment{Init: append([]byte{}, bytes...)}
	if mem == nil {
		seg.Passive = true
	} else {
		if !sameModule(m, mem.module) {
			return errf("write data", "", "memory belongs to a different module")
		}
		if err := m.checkOffset("write data", offset); err != nil {
			return err
		}
		seg.MemoryIndex = mem.index
		seg.OffsetExpression = offset.expr
	}
	m.dataSegments = append(m.dataSegments, seg)
	m.backend.WriteData(seg)
	return nil
}

// WriteElements writes an element segment against tbl (nil for passive,
// declare via declarative=true for a declarative segment). Every value's
// type must match the table's reference kind (spec §4.1 "write element
// segment").
func (m *Module) WriteElements(tbl *TableHandle, declarative bool, offset Value, values []Value) error {
	if err := m.checkDeferred(); err != nil {
		return err
	}
	seg := wasm.ElementSegment{Declarative: declarative}

	var refType wasm.RefType = wasm.RefTypeFuncref
	if tbl != nil {
		if !sameModule(m, tbl.module) {
			return errf("write elements", "", "table belongs to a different module")
		}
		refType = m.tables[tbl.index].refType
		seg.TableIndex = tbl.index
	}
	seg.Type = refType

	if tbl == nil && !declarative {
		seg.Passive = true
	}
	if tbl != nil {
		if err := m.checkOffset("write elements", offset); err != nil {
			return err
		}
		seg.OffsetExpression = offset.expr
	}

	allFuncIdx := refType == wasm.RefTypeFuncref
	for _, v := range values {
		expected := wasm.ValueTypeFuncref
		if refType == wasm.RefTypeExternref {
			expected = wasm.ValueTypeExternref
		}
		if v.typ != expected {
			return typeMismatch("write elements", "", []string{wasm.ValueTypeName(expected)}, []string{wasm.ValueTypeName(v.typ)})
		}
		if v.expr.Opcode != wasm.OpcodeRefFunc {
			allFuncIdx = false
		}
	}

	if allFuncIdx {
		seg.Init = make([]wasm.Index, len(values))
		for i, v := range values {
			idx, _, _ := decodeLEBIndex(v.expr.Data)
			seg.Init[i] = idx
		}
	} else {
		seg.UsesExprs = true
		seg.InitExprs = make([]wasm.ConstantExpression, len(values))
		for i, v := range values {
			seg.InitExprs[i] = v.expr
		}
	}

	m.elementSegments = append(m.elementSegments, seg)
	m.backend.WriteElements(seg)
	return nil
}

func decodeLEBIndex(b []byte) (wasm.Index, int, error) {
	var result uint32
	var shift uint
	for i, c := range b {
		result |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return result, len(b), nil
}
