package binaryencoding

import (
	"testing"

	"github.com/wasgen/wasgen/internal/leb128"
	"github.com/wasgen/wasgen/internal/testing/require"
	"github.com/wasgen/wasgen/internal/wasm"
)

func TestEncodeGlobal(t *testing.T) {
	tests := []struct {
		name     string
		input    wasm.Global
		expected []byte
	}{
		{
			name: "const",
			input: wasm.Global{
				Type: wasm.GlobalType{ValType: wasm.ValueTypeI32},
				Init: wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: leb128.EncodeInt32(1)},
			},
			expected: []byte{
				wasm.ValueTypeI32, 0x00, // 0 == const
				byte(wasm.OpcodeI32Const), 0x01, byte(wasm.OpcodeEnd),
			},
		},
		{
			name: "var",
			input: wasm.Global{
				Type: wasm.GlobalType{ValType: wasm.ValueTypeI32, Mutable: true},
				Init: wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: leb128.EncodeInt32(1)},
			},
			expected: []byte{
				wasm.ValueTypeI32, 0x01, // 1 == var
				byte(wasm.OpcodeI32Const), 0x01, byte(wasm.OpcodeEnd),
			},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			bytes := encodeGlobal(tc.input)
			require.Equal(t, tc.expected, bytes)
		})
	}
}
