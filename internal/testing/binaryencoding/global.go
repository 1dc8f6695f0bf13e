package binaryencoding

import "github.com/wasgen/wasgen/internal/wasm"

// encodeGlobal encodes one global section entry: its value type,
// mutability, and constant initializer expression.
func encodeGlobal(g wasm.Global) []byte {
	out := []byte{g.Type.ValType, encodeMutability(g.Type.Mutable)}
	return append(out, encodeConstantExpression(g.Init)...)
}

// encodeConstantExpression encodes a constant initializer expression: its
// opcode, its pre-encoded operand bytes, then an explicit end opcode.
func encodeConstantExpression(ce wasm.ConstantExpression) []byte {
	out := append([]byte{}, byte(ce.Opcode))
	out = append(out, ce.Data...)
	return append(out, byte(wasm.OpcodeEnd))
}
