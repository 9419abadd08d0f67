package ir

import "testing"

func TestOpCodeMetadata(t *testing.T) {
	cases := []struct {
		code       OpCode
		name       string
		sideEffect bool
		commutes   bool
	}{
		{OpCopy, "COPY", false, false},
		{OpStore, "STORE", true, false},
		{OpIntAdd, "INT_ADD", false, true},
		{OpIntSub, "INT_SUB", false, false},
		{OpIntXor, "INT_XOR", false, true},
		{OpIntSRight, "INT_SRIGHT", false, false},
		{OpReturn, "RETURN", true, false},
		{OpMultiEqual, "MULTIEQUAL", false, false},
	}
	for _, c := range cases {
		if got := c.code.String(); got != c.name {
			t.Errorf("%v.String() = %q, want %q", byte(c.code), got, c.name)
		}
		if got := c.code.HasSideEffect(); got != c.sideEffect {
			t.Errorf("%s.HasSideEffect() = %v, want %v", c.name, got, c.sideEffect)
		}
		if got := c.code.IsCommutative(); got != c.commutes {
			t.Errorf("%s.IsCommutative() = %v, want %v", c.name, got, c.commutes)
		}
	}
}

func TestUnknownOpCode(t *testing.T) {
	bad := OpCode(0xFF)
	if got := bad.String(); got != "UNKNOWN_FF" {
		t.Errorf("String() = %q", got)
	}
	if bad.HasSideEffect() || bad.IsCommutative() {
		t.Error("unknown opcode should carry no metadata")
	}
}

func TestAllOpCodesSorted(t *testing.T) {
	codes := AllOpCodes()
	if len(codes) != len(opcodeTable) {
		t.Fatalf("AllOpCodes returned %d codes, table has %d", len(codes), len(opcodeTable))
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("codes not in ascending order at %d: %v >= %v", i, codes[i-1], codes[i])
		}
	}
}
