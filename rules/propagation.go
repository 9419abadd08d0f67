package rules

import (
	"github.com/chazu/relift/ir"
)

// ConstFold evaluates ops whose inputs are all constants, replacing them
// with a copy of the folded constant.
type ConstFold struct{}

func (ConstFold) OpList() []ir.OpCode {
	return []ir.OpCode{
		ir.OpIntAdd, ir.OpIntSub, ir.OpIntMult, ir.OpIntDiv,
		ir.OpIntAnd, ir.OpIntOr, ir.OpIntXor,
		ir.OpIntLeft, ir.OpIntRight, ir.OpIntSRight,
		ir.OpIntEqual, ir.OpIntNotEqual, ir.OpIntLess,
		ir.OpInt2Comp, ir.OpIntNegate, ir.OpBoolNegate,
	}
}

func (ConstFold) ApplyOp(op *ir.Op, fn *ir.Function) int {
	for i := 0; i < op.NumInputs(); i++ {
		if !op.Input(i).IsConstant() {
			return 0
		}
	}
	val, ok := fold(op)
	if !ok {
		return 0
	}
	size := op.Output().Size()
	becomeCopy(fn, op, fn.NewConstant(size, val&sizeMask(size)))
	return 1
}

func fold(op *ir.Op) (uint64, bool) {
	a := op.Input(0).Value()
	var b uint64
	if op.NumInputs() > 1 {
		b = op.Input(1).Value()
	}
	switch op.Code() {
	case ir.OpIntAdd:
		return a + b, true
	case ir.OpIntSub:
		return a - b, true
	case ir.OpIntMult:
		return a * b, true
	case ir.OpIntDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.OpIntAnd:
		return a & b, true
	case ir.OpIntOr:
		return a | b, true
	case ir.OpIntXor:
		return a ^ b, true
	case ir.OpIntLeft:
		if b >= 64 {
			return 0, true
		}
		return a << b, true
	case ir.OpIntRight:
		if b >= 64 {
			return 0, true
		}
		return a >> b, true
	case ir.OpIntSRight:
		size := op.Input(0).Size()
		if size <= 0 || size > 8 {
			return 0, false
		}
		shift := b
		if shift >= uint64(8*size) {
			shift = uint64(8*size) - 1
		}
		signed := int64(a << (64 - 8*size))
		return uint64(signed >> (64 - 8*size) >> shift), true
	case ir.OpIntEqual:
		return boolVal(a == b), true
	case ir.OpIntNotEqual:
		return boolVal(a != b), true
	case ir.OpIntLess:
		return boolVal(a < b), true
	case ir.OpInt2Comp:
		return -a, true
	case ir.OpIntNegate:
		return ^a, true
	case ir.OpBoolNegate:
		return boolVal(a == 0), true
	}
	return 0, false
}

func boolVal(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// CopyPropagate replaces any input read through a COPY with the copied
// value itself, exposing constants and originals to the pattern rules.
type CopyPropagate struct{}

// An empty op list dispatches the rule for every opcode.
func (CopyPropagate) OpList() []ir.OpCode { return nil }

func (CopyPropagate) ApplyOp(op *ir.Op, fn *ir.Function) int {
	count := 0
	for i := 0; i < op.NumInputs(); i++ {
		def := op.Input(i).Def()
		if def == nil || def.Code() != ir.OpCopy {
			continue
		}
		fn.SetInput(op, def.Input(0), i)
		count++
	}
	return count
}

// CopyChain shortens chains of copies: a COPY whose source is itself the
// output of a COPY reads the original value directly.
type CopyChain struct{}

func (CopyChain) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpCopy}
}

func (CopyChain) ApplyOp(op *ir.Op, fn *ir.Function) int {
	def := op.Input(0).Def()
	if def == nil || def.Code() != ir.OpCopy {
		return 0
	}
	fn.SetInput(op, def.Input(0), 0)
	return 1
}
