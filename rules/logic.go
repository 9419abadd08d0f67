package rules

import (
	"github.com/chazu/relift/ir"
)

// AndMask rewrites x & 0 into the constant zero and x & x into a copy.
type AndMask struct{}

func (AndMask) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpIntAnd}
}

func (AndMask) ApplyOp(op *ir.Op, fn *ir.Function) int {
	in0, in1 := op.Input(0), op.Input(1)
	if isConstVal(in1, 0) {
		becomeCopy(fn, op, fn.NewConstant(op.Output().Size(), 0))
		return 1
	}
	if in0 == in1 {
		becomeCopy(fn, op, in0)
		return 1
	}
	return 0
}

// OrIdent rewrites x | 0 and x | x into copies.
type OrIdent struct{}

func (OrIdent) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpIntOr}
}

func (OrIdent) ApplyOp(op *ir.Op, fn *ir.Function) int {
	in0, in1 := op.Input(0), op.Input(1)
	if isConstVal(in1, 0) || in0 == in1 {
		becomeCopy(fn, op, in0)
		return 1
	}
	return 0
}
