package rules

import (
	"testing"

	"github.com/chazu/relift/action"
	"github.com/chazu/relift/ir"
)

func TestNewRegistryDefaults(t *testing.T) {
	reg, err := NewRegistry(0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	name, tree := reg.Current()
	if name != DefaultPipeline {
		t.Errorf("active pipeline = %q, want %q", name, DefaultPipeline)
	}
	if tree == nil {
		t.Fatal("no active tree")
	}

	want := []string{"decompile", "firstpass", "jumptable", "normalize", action.UniversalName}
	got := reg.Pipelines()
	if len(got) != len(want) {
		t.Fatalf("Pipelines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Pipelines = %v, want %v", got, want)
		}
	}
}

func TestEveryStockPipelineDerives(t *testing.T) {
	reg, err := NewRegistry(0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for name := range DefaultSelectors() {
		if _, err := reg.Derive(name); err != nil {
			t.Errorf("Derive(%q): %v", name, err)
		}
	}
}

func TestJumptablePipelineDropsDeadCode(t *testing.T) {
	reg, err := NewRegistry(0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tree, err := reg.Derive("jumptable")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if _, err := action.FindAction(tree, "deadcode"); err == nil {
		t.Error("deadcode task survived the jumptable selector")
	}
	if _, err := action.FindRule(tree, "peephole.constfold"); err != nil {
		t.Errorf("constfold rule missing: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Fixed-point simplification
// ---------------------------------------------------------------------------

// runToFixedPoint drives a tree the way the decompiler driver does, resuming
// through any breakpoint pauses.
func runToFixedPoint(t *testing.T, tree action.Action, fn *ir.Function) int {
	t.Helper()
	for i := 0; ; i++ {
		if i > 1000 {
			t.Fatal("no fixed point after 1000 invocations")
		}
		if res := tree.Perform(fn); res != action.Paused {
			return res
		}
	}
}

func TestDecompileSimplifiesIdentityChain(t *testing.T) {
	reg, err := NewRegistry(0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tree, err := reg.CloneCurrentTree()
	if err != nil {
		t.Fatalf("CloneCurrentTree: %v", err)
	}

	// ret ((x + 0) * 1)
	fn := ir.NewFunction("f")
	x := fn.NewUnique(4)
	t1out := fn.NewUnique(4)
	fn.NewOp(ir.OpIntAdd, t1out, x, fn.NewConstant(4, 0))
	t2out := fn.NewUnique(4)
	fn.NewOp(ir.OpIntMult, t2out, t1out, fn.NewConstant(4, 1))
	ret := fn.NewOp(ir.OpReturn, nil, t2out)

	runToFixedPoint(t, tree, fn)

	// The whole chain collapses into the return reading x directly.
	if fn.NumOps() != 1 {
		t.Errorf("NumOps = %d, want 1", fn.NumOps())
	}
	if ret.Input(0) != x {
		t.Errorf("return reads %v, want x", ret.Input(0))
	}
}

func TestDecompileFoldsConstants(t *testing.T) {
	reg, err := NewRegistry(0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tree, err := reg.CloneCurrentTree()
	if err != nil {
		t.Fatalf("CloneCurrentTree: %v", err)
	}

	// ret ((2 + 3) * 4) folds to ret 20.
	fn := ir.NewFunction("f")
	sum := fn.NewUnique(4)
	fn.NewOp(ir.OpIntAdd, sum, fn.NewConstant(4, 2), fn.NewConstant(4, 3))
	prod := fn.NewUnique(4)
	fn.NewOp(ir.OpIntMult, prod, sum, fn.NewConstant(4, 4))
	ret := fn.NewOp(ir.OpReturn, nil, prod)

	runToFixedPoint(t, tree, fn)

	if fn.NumOps() != 1 {
		t.Errorf("NumOps = %d, want 1", fn.NumOps())
	}
	if !isConstVal(ret.Input(0), 20) {
		t.Errorf("return reads %v, want the constant 20", ret.Input(0))
	}
}

func TestDecompileCanonicalizesTermOrder(t *testing.T) {
	reg, err := NewRegistry(0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tree, err := reg.CloneCurrentTree()
	if err != nil {
		t.Fatalf("CloneCurrentTree: %v", err)
	}

	// 5 + x becomes x + 5 so slot-1 pattern rules can see the constant.
	fn := ir.NewFunction("f")
	x := fn.NewUnique(4)
	out := fn.NewUnique(4)
	op := fn.NewOp(ir.OpIntAdd, out, fn.NewConstant(4, 5), x)
	fn.NewOp(ir.OpReturn, nil, out)

	runToFixedPoint(t, tree, fn)

	if op.Input(0) != x || !isConstVal(op.Input(1), 5) {
		t.Error("commutative op not canonicalized")
	}
}

func TestCloneTreesSimplifyIndependently(t *testing.T) {
	reg, err := NewRegistry(0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	treeA, err := reg.CloneCurrentTree()
	if err != nil {
		t.Fatalf("CloneCurrentTree: %v", err)
	}
	treeB, err := reg.CloneCurrentTree()
	if err != nil {
		t.Fatalf("CloneCurrentTree: %v", err)
	}

	mk := func() *ir.Function {
		fn := ir.NewFunction("f")
		x := fn.NewUnique(4)
		out := fn.NewUnique(4)
		fn.NewOp(ir.OpIntAdd, out, x, fn.NewConstant(4, 0))
		fn.NewOp(ir.OpReturn, nil, out)
		return fn
	}
	fnA, fnB := mk(), mk()
	runToFixedPoint(t, treeA, fnA)
	runToFixedPoint(t, treeB, fnB)

	if fnA.NumOps() != 1 || fnB.NumOps() != 1 {
		t.Errorf("NumOps = (%d, %d), want (1, 1)", fnA.NumOps(), fnB.NumOps())
	}
	// Statistics accumulate per clone, untouched by the sibling.
	ta, _ := action.Stats(treeA)
	tb, _ := action.Stats(treeB)
	if ta != 1 || tb != 1 {
		t.Errorf("tree tests = (%d, %d), want (1, 1)", ta, tb)
	}
}
