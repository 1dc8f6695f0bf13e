package binaryencoding

import (
	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/wasm"
)

// encodeElementSegment encodes one element section entry using the
// bulk-memory/reference-types flag scheme (flags 0-7), so both the MVP
// funcref-by-index shape and the general reference-init-expression shape
// round-trip.
func encodeElementSegment(es wasm.ElementSegment) []byte {
	flag := elementSegmentFlag(es)
	out := []byte{flag}

	switch flag {
	case 0: // active, table 0, expr, vec(funcidx)
		out = append(out, encodeConstantExpression(es.OffsetExpression)...)
		out = append(out, encodeIndexVec(es.Init)...)
	case 1: // passive, elemkind, vec(funcidx)
		out = append(out, 0x00) // elemkind: funcref
		out = append(out, encodeIndexVec(es.Init)...)
	case 2: // active, tableidx, expr, elemkind, vec(funcidx)
		out = append(out, leb128.EncodeUint32(es.TableIndex)...)
		out = append(out, encodeConstantExpression(es.OffsetExpression)...)
		out = append(out, 0x00)
		out = append(out, encodeIndexVec(es.Init)...)
	case 3: // declarative, elemkind, vec(funcidx)
		out = append(out, 0x00)
		out = append(out, encodeIndexVec(es.Init)...)
	case 4: // active, table 0, expr, vec(expr)
		out = append(out, encodeConstantExpression(es.OffsetExpression)...)
		out = append(out, encodeExprVec(es.InitExprs)...)
	case 5: // passive, reftype, vec(expr)
		out = append(out, es.Type)
		out = append(out, encodeExprVec(es.InitExprs)...)
	case 6: // active, tableidx, expr, reftype, vec(expr)
		out = append(out, leb128.EncodeUint32(es.TableIndex)...)
		out = append(out, encodeConstantExpression(es.OffsetExpression)...)
		out = append(out, es.Type)
		out = append(out, encodeExprVec(es.InitExprs)...)
	case 7: // declarative, reftype, vec(expr)
		out = append(out, es.Type)
		out = append(out, encodeExprVec(es.InitExprs)...)
	}
	return out
}

func elementSegmentFlag(es wasm.ElementSegment) byte {
	switch {
	case !es.Passive && !es.Declarative:
		switch {
		case es.TableIndex == 0 && !es.UsesExprs:
			return 0
		case es.TableIndex == 0 && es.UsesExprs && es.Type == wasm.RefTypeFuncref:
			return 4
		case !es.UsesExprs:
			return 2
		default:
			return 6
		}
	case es.Passive:
		if es.UsesExprs {
			return 5
		}
		return 1
	default: // declarative
		if es.UsesExprs {
			return 7
		}
		return 3
	}
}

func encodeIndexVec(idx []wasm.Index) []byte {
	out := leb128.EncodeUint32(uint32(len(idx)))
	for _, i := range idx {
		out = append(out, leb128.EncodeUint32(i)...)
	}
	return out
}

func encodeExprVec(exprs []wasm.ConstantExpression) []byte {
	out := leb128.EncodeUint32(uint32(len(exprs)))
	for _, e := range exprs {
		out = append(out, encodeConstantExpression(e)...)
	}
	return out
}
