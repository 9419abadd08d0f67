package rules

import (
	"github.com/chazu/relift/ir"
)

// ClearAnalysis drops prior analysis state before simplification begins.
func ClearAnalysis(fn *ir.Function) int {
	fn.ClearAnalysis()
	return 0
}

// DeadCode removes side-effect-free ops whose outputs have no readers. One
// pass may expose further dead ops; the wrapping action reruns it until
// stable.
func DeadCode(fn *ir.Function) int {
	count := 0
	iter := fn.Ops()
	for iter.HasMore() {
		op := iter.Current()
		iter.Advance()
		if op.Code().HasSideEffect() {
			continue
		}
		out := op.Output()
		if out == nil || out.NumUses() > 0 {
			continue
		}
		fn.RemoveOp(op)
		count++
	}
	return count
}
