package ir

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// OpCode identifies the operation performed by a single Op in the lifted
// intermediate representation.
type OpCode byte

// Data movement
const (
	OpCopy  OpCode = 0x00 // copy input 0 to output
	OpLoad  OpCode = 0x01 // load from memory at input 0
	OpStore OpCode = 0x02 // store input 1 to memory at input 0
)

// Integer arithmetic
const (
	OpIntAdd    OpCode = 0x10 // output = input0 + input1
	OpIntSub    OpCode = 0x11 // output = input0 - input1
	OpIntMult   OpCode = 0x12 // output = input0 * input1
	OpIntDiv    OpCode = 0x13 // output = input0 / input1 (unsigned)
	OpInt2Comp  OpCode = 0x14 // output = -input0 (twos complement)
	OpIntNegate OpCode = 0x15 // output = ~input0 (bitwise complement)
)

// Integer logic and shifts
const (
	OpIntAnd    OpCode = 0x20 // output = input0 & input1
	OpIntOr     OpCode = 0x21 // output = input0 | input1
	OpIntXor    OpCode = 0x22 // output = input0 ^ input1
	OpIntLeft   OpCode = 0x23 // output = input0 << input1
	OpIntRight  OpCode = 0x24 // output = input0 >> input1 (logical)
	OpIntSRight OpCode = 0x25 // output = input0 >> input1 (arithmetic)
)

// Comparisons
const (
	OpIntEqual    OpCode = 0x30 // output = input0 == input1
	OpIntNotEqual OpCode = 0x31 // output = input0 != input1
	OpIntLess     OpCode = 0x32 // output = input0 < input1 (unsigned)
	OpBoolNegate  OpCode = 0x33 // output = !input0
)

// Control flow
const (
	OpBranch    OpCode = 0x40 // unconditional branch to input 0
	OpCBranch   OpCode = 0x41 // branch to input 0 if input 1 is true
	OpBranchInd OpCode = 0x42 // indirect branch through input 0
	OpCall      OpCode = 0x43 // call target input 0
	OpCallInd   OpCode = 0x44 // indirect call through input 0
	OpReturn    OpCode = 0x45 // return, optional value in input 1
)

// SSA bookkeeping
const (
	OpMultiEqual OpCode = 0x50 // phi node merging one input per inbound flow
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpCodeInfo holds metadata about an opcode.
type OpCodeInfo struct {
	Name       string // human-readable name
	SideEffect bool   // true if the op affects state beyond its output
	Commutes   bool   // true if swapping inputs 0 and 1 is meaning-preserving
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[OpCode]OpCodeInfo{
	OpCopy:  {"COPY", false, false},
	OpLoad:  {"LOAD", false, false},
	OpStore: {"STORE", true, false},

	OpIntAdd:    {"INT_ADD", false, true},
	OpIntSub:    {"INT_SUB", false, false},
	OpIntMult:   {"INT_MULT", false, true},
	OpIntDiv:    {"INT_DIV", false, false},
	OpInt2Comp:  {"INT_2COMP", false, false},
	OpIntNegate: {"INT_NEGATE", false, false},

	OpIntAnd:    {"INT_AND", false, true},
	OpIntOr:     {"INT_OR", false, true},
	OpIntXor:    {"INT_XOR", false, true},
	OpIntLeft:   {"INT_LEFT", false, false},
	OpIntRight:  {"INT_RIGHT", false, false},
	OpIntSRight: {"INT_SRIGHT", false, false},

	OpIntEqual:    {"INT_EQUAL", false, true},
	OpIntNotEqual: {"INT_NOTEQUAL", false, true},
	OpIntLess:     {"INT_LESS", false, false},
	OpBoolNegate:  {"BOOL_NEGATE", false, false},

	OpBranch:    {"BRANCH", true, false},
	OpCBranch:   {"CBRANCH", true, false},
	OpBranchInd: {"BRANCHIND", true, false},
	OpCall:      {"CALL", true, false},
	OpCallInd:   {"CALLIND", true, false},
	OpReturn:    {"RETURN", true, false},

	OpMultiEqual: {"MULTIEQUAL", false, false},
}

// AllOpCodes returns every defined opcode in ascending numeric order.
func AllOpCodes() []OpCode {
	codes := make([]OpCode, 0, len(opcodeTable))
	for c := range opcodeTable {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Info returns the metadata for an opcode.
func (c OpCode) Info() OpCodeInfo {
	if info, ok := opcodeTable[c]; ok {
		return info
	}
	return OpCodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(c))}
}

// String returns the opcode's human-readable name.
func (c OpCode) String() string {
	return c.Info().Name
}

// HasSideEffect reports whether the opcode affects state beyond its output
// varnode. Ops without side effects may be removed when their output is
// unused.
func (c OpCode) HasSideEffect() bool {
	return c.Info().SideEffect
}

// IsCommutative reports whether inputs 0 and 1 may be swapped without
// changing the op's meaning.
func (c OpCode) IsCommutative() bool {
	return c.Info().Commutes
}
