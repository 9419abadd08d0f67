package rules

import (
	"github.com/chazu/relift/ir"
)

// sizeMask returns the value mask for a varnode size in bytes.
func sizeMask(size int) uint64 {
	if size <= 0 || size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * size)) - 1
}

// isConstVal reports whether vn is a constant with the given value.
func isConstVal(vn *ir.Varnode, v uint64) bool {
	return vn.IsConstant() && vn.Value() == v
}

// becomeCopy collapses a one- or two-input op into a COPY of src.
func becomeCopy(fn *ir.Function, op *ir.Op, src *ir.Varnode) {
	for op.NumInputs() > 1 {
		fn.RemoveInput(op, 1)
	}
	fn.SetInput(op, src, 0)
	fn.SetOpCode(op, ir.OpCopy)
}

// TermOrder canonicalizes commutative ops so a constant always sits in the
// second input slot, letting later rules match on input 1 alone.
type TermOrder struct{}

func (TermOrder) OpList() []ir.OpCode {
	return []ir.OpCode{
		ir.OpIntAdd, ir.OpIntMult, ir.OpIntAnd, ir.OpIntOr, ir.OpIntXor,
		ir.OpIntEqual, ir.OpIntNotEqual,
	}
}

func (TermOrder) ApplyOp(op *ir.Op, fn *ir.Function) int {
	in0, in1 := op.Input(0), op.Input(1)
	if !in0.IsConstant() || in1.IsConstant() {
		return 0
	}
	fn.SetInput(op, in1, 0)
	fn.SetInput(op, in0, 1)
	return 1
}

// IdentAdd rewrites x + 0 and x - 0 into plain copies.
type IdentAdd struct{}

func (IdentAdd) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpIntAdd, ir.OpIntSub}
}

func (IdentAdd) ApplyOp(op *ir.Op, fn *ir.Function) int {
	if !isConstVal(op.Input(1), 0) {
		return 0
	}
	becomeCopy(fn, op, op.Input(0))
	return 1
}

// IdentMult rewrites x * 1 and x / 1 into copies and x * 0 into the
// constant zero.
type IdentMult struct{}

func (IdentMult) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpIntMult, ir.OpIntDiv}
}

func (IdentMult) ApplyOp(op *ir.Op, fn *ir.Function) int {
	in1 := op.Input(1)
	if isConstVal(in1, 1) {
		becomeCopy(fn, op, op.Input(0))
		return 1
	}
	if op.Code() == ir.OpIntMult && isConstVal(in1, 0) {
		becomeCopy(fn, op, fn.NewConstant(op.Output().Size(), 0))
		return 1
	}
	return 0
}

// IdentShift rewrites shifts by zero into copies.
type IdentShift struct{}

func (IdentShift) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpIntLeft, ir.OpIntRight, ir.OpIntSRight}
}

func (IdentShift) ApplyOp(op *ir.Op, fn *ir.Function) int {
	if !isConstVal(op.Input(1), 0) {
		return 0
	}
	becomeCopy(fn, op, op.Input(0))
	return 1
}

// DoubleNegate collapses a negation of a negation of the same kind.
type DoubleNegate struct{}

func (DoubleNegate) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpInt2Comp, ir.OpIntNegate, ir.OpBoolNegate}
}

func (DoubleNegate) ApplyOp(op *ir.Op, fn *ir.Function) int {
	def := op.Input(0).Def()
	if def == nil || def.Code() != op.Code() {
		return 0
	}
	becomeCopy(fn, op, def.Input(0))
	return 1
}

// SelfCancel rewrites x ^ x and x - x into the constant zero.
type SelfCancel struct{}

func (SelfCancel) OpList() []ir.OpCode {
	return []ir.OpCode{ir.OpIntXor, ir.OpIntSub}
}

func (SelfCancel) ApplyOp(op *ir.Op, fn *ir.Function) int {
	if op.Input(0) != op.Input(1) {
		return 0
	}
	becomeCopy(fn, op, fn.NewConstant(op.Output().Size(), 0))
	return 1
}
