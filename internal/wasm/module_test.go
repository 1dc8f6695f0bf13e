package wasm

import "testing"

func TestModule_ImportFuncCount(t *testing.T) {
	m := &Module{
		ImportSection: []Import{
			{Module: "env", Name: "f", Type: ExternTypeFunc, DescFunc: 0},
			{Module: "env", Name: "mem", Type: ExternTypeMemory},
			{Module: "env", Name: "g", Type: ExternTypeFunc, DescFunc: 1},
		},
	}
	if got := m.ImportFuncCount(); got != 2 {
		t.Fatalf("expected 2 imported funcs, got %d", got)
	}
}

func TestMiscOpcodeRoundTrip(t *testing.T) {
	op := MiscOpcode(MiscOpcodeMemoryCopy)
	sub, ok := SplitMiscOpcode(op)
	if !ok {
		t.Fatalf("expected ok")
	}
	if sub != MiscOpcodeMemoryCopy {
		t.Fatalf("expected %d, got %d", MiscOpcodeMemoryCopy, sub)
	}
	if _, ok := SplitMiscOpcode(OpcodeI32Add); ok {
		t.Fatalf("expected non-misc opcode to report ok=false")
	}
}

func TestValueTypeName(t *testing.T) {
	for _, tc := range []struct {
		vt   ValueType
		name string
	}{
		{ValueTypeI32, "i32"},
		{ValueTypeFuncref, "funcref"},
		{ValueTypeExternref, "externref"},
	} {
		if got := ValueTypeName(tc.vt); got != tc.name {
			t.Fatalf("expected %s, got %s", tc.name, got)
		}
	}
}
