package action

import (
	"testing"

	"github.com/chazu/relift/ir"
)

// ---------------------------------------------------------------------------
// Group sequencing
// ---------------------------------------------------------------------------

func TestGroupRunsChildrenInOrder(t *testing.T) {
	var order []string
	mk := func(name string, n int) *Task {
		return NewTask(0, name, "base", func(fn *ir.Function) int {
			order = append(order, name)
			return n
		})
	}
	g := NewGroup(0, "seq", "base", mk("a", 1), mk("b", 0), mk("c", 2))
	fn := newTestFunction()

	if got := g.Perform(fn); got != 3 {
		t.Errorf("Perform = %d, want 3", got)
	}
	want := []string{"a", "b", "c"}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestGroupChildBreakpointResume(t *testing.T) {
	t1, c1 := scriptTask(0, "one", "base", 1, 1, 1)
	t2, c2 := scriptTask(0, "two", "base", 1, 1, 1)
	t3, c3 := scriptTask(0, "three", "base", 1, 1, 1)
	SetBreak(t2, BreakStart)
	g := NewGroup(0, "seq", "base", t1, t2, t3)
	fn := newTestFunction()

	if got := g.Perform(fn); got != Paused {
		t.Fatalf("Perform = %d, want Paused", got)
	}
	if *c1 != 1 || *c2 != 0 || *c3 != 0 {
		t.Fatalf("calls before resume = (%d, %d, %d), want (1, 0, 0)", *c1, *c2, *c3)
	}

	// Resume finishes the remaining children without re-running the first.
	if got := g.Perform(fn); got != 3 {
		t.Errorf("resumed Perform = %d, want 3", got)
	}
	if *c1 != 1 || *c2 != 1 || *c3 != 1 {
		t.Errorf("calls after resume = (%d, %d, %d), want (1, 1, 1)", *c1, *c2, *c3)
	}
}

func TestGroupOwnActionBreakAdvancesCursor(t *testing.T) {
	t1, c1 := scriptTask(0, "one", "base", 1)
	t2, c2 := scriptTask(0, "two", "base", 1)
	g := NewGroup(0, "seq", "base", t1, t2)
	SetBreak(g, TmpBreakAction)
	fn := newTestFunction()

	// The group pauses after the first child reports changes.
	if got := g.Perform(fn); got != Paused {
		t.Fatalf("Perform = %d, want Paused", got)
	}
	if *c1 != 1 || *c2 != 0 {
		t.Fatalf("calls = (%d, %d), want (1, 0)", *c1, *c2)
	}
	// Resume picks up at the second child.
	if got := g.Perform(fn); got != 2 {
		t.Errorf("resumed Perform = %d, want 2", got)
	}
	if *c1 != 1 || *c2 != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", *c1, *c2)
	}
}

func TestGroupRepeatApply(t *testing.T) {
	t1, calls := scriptTask(0, "one", "base", 1, 1)
	g := NewGroup(RepeatApply, "loop", "base", t1)
	fn := newTestFunction()

	if got := g.Perform(fn); got != 2 {
		t.Errorf("Perform = %d, want 2", got)
	}
	// Two changing passes plus the quiet one that detects convergence.
	if *calls != 3 {
		t.Errorf("child invoked %d times, want 3", *calls)
	}
}

func TestGroupReset(t *testing.T) {
	t1, _ := scriptTask(OncePerFunc, "one", "base", 1, 1)
	g := NewGroup(0, "seq", "base", t1)
	fn := newTestFunction()

	g.Perform(fn)
	if got := g.Perform(fn); got != 0 {
		t.Fatalf("Perform = %d, want 0 with retired child", got)
	}
	g.Reset(fn)
	if got := g.Perform(fn); got != 1 {
		t.Errorf("Perform after Reset = %d, want 1", got)
	}
}

// ---------------------------------------------------------------------------
// Clone filtering
// ---------------------------------------------------------------------------

func TestGroupClonePrunesBySelector(t *testing.T) {
	t1, _ := scriptTask(0, "keep", "wanted", 1)
	t2, _ := scriptTask(0, "drop", "unwanted", 1)
	g := NewGroup(0, "seq", "base", t1, t2)

	clone, ok := g.Clone(NewGroupSelector("wanted"))
	if !ok {
		t.Fatal("clone absent despite a selected child")
	}
	kids := ChildrenOf(clone)
	if len(kids) != 1 || kids[0].Name() != "keep" {
		t.Errorf("surviving children = %v", kids)
	}

	if _, ok := g.Clone(NewGroupSelector("other")); ok {
		t.Error("group with no selected children should clone to nothing")
	}
}

func TestCloneHasFreshState(t *testing.T) {
	t1, _ := scriptTask(0, "one", "base", 1, 1)
	g := NewGroup(0, "seq", "base", t1)
	fn := newTestFunction()
	g.Perform(fn)

	clone, ok := g.Clone(nil)
	if !ok {
		t.Fatal("nil selector must select everything")
	}
	if tests, applies := Stats(clone); tests != 0 || applies != 0 {
		t.Errorf("clone Stats = (%d, %d), want zero", tests, applies)
	}
	child := ChildrenOf(clone)[0]
	if tests, _ := Stats(child); tests != 0 {
		t.Error("cloned child carried statistics over")
	}
}

// ---------------------------------------------------------------------------
// RestartGroup
// ---------------------------------------------------------------------------

func TestRestartGroupBudget(t *testing.T) {
	const maxRestarts = 2
	attempts := 0
	child := NewTask(0, "unstable", "base", func(fn *ir.Function) int {
		attempts++
		fn.SetRestartPending(true)
		return 1
	})
	rg := NewRestartGroup(0, "root", "base", maxRestarts, child)
	fn := newTestFunction()

	if got := rg.Perform(fn); got == Paused {
		t.Fatal("unexpected pause")
	}
	// One initial attempt plus maxRestarts retries.
	if attempts != maxRestarts+1 {
		t.Errorf("attempts = %d, want %d", attempts, maxRestarts+1)
	}
	if rg.Restarts() != maxRestarts {
		t.Errorf("Restarts = %d, want %d", rg.Restarts(), maxRestarts)
	}
	warns := fn.Warnings()
	if len(warns) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warns))
	}
}

func TestRestartGroupNoRestartWithoutRequest(t *testing.T) {
	child, calls := scriptTask(0, "stable", "base", 1)
	rg := NewRestartGroup(0, "root", "base", 5, child)
	fn := newTestFunction()

	if got := rg.Perform(fn); got != 1 {
		t.Errorf("Perform = %d, want 1", got)
	}
	if *calls != 1 {
		t.Errorf("child invoked %d times, want 1", *calls)
	}
	if rg.Restarts() != 0 {
		t.Errorf("Restarts = %d, want 0", rg.Restarts())
	}
}

func TestRestartGroupDefersDuringJumpTableRecovery(t *testing.T) {
	child := NewTask(0, "unstable", "base", func(fn *ir.Function) int {
		fn.SetRestartPending(true)
		return 1
	})
	rg := NewRestartGroup(0, "root", "base", 5, child)
	fn := newTestFunction()
	fn.SetJumpTableRecovery(true)

	rg.Perform(fn)
	if rg.Restarts() != 0 {
		t.Errorf("Restarts = %d, want 0 during jump-table recovery", rg.Restarts())
	}
	// The request is left pending for the enclosing run.
	if !fn.RestartPending() {
		t.Error("restart request was consumed")
	}
}

func TestRestartGroupResetClearsRetryCounter(t *testing.T) {
	child := NewTask(0, "unstable", "base", func(fn *ir.Function) int {
		if !fn.RestartPending() && fn.NumOps() == 0 {
			fn.SetRestartPending(true)
			return 1
		}
		return 0
	})
	rg := NewRestartGroup(0, "root", "base", 3, child)
	fn := newTestFunction()

	rg.Perform(fn)
	if rg.Restarts() == 0 {
		t.Fatal("expected at least one restart")
	}
	rg.Reset(fn)
	if rg.Restarts() != 0 {
		t.Errorf("Restarts = %d after Reset, want 0", rg.Restarts())
	}
}

func TestRestartGroupUsableAsAction(t *testing.T) {
	child, _ := scriptTask(0, "c", "inner", 1)
	var a Action = NewRestartGroup(0, "root", "outer", 1, child)

	if a.GroupTag() != "outer" {
		t.Errorf("GroupTag = %q, want outer", a.GroupTag())
	}
	fn := newTestFunction()
	if got := a.Perform(fn); got != 1 {
		t.Errorf("Perform = %d, want 1", got)
	}
}

func TestRestartGroupClonePreservesBudget(t *testing.T) {
	child, _ := scriptTask(0, "c", "base", 1)
	rg := NewRestartGroup(0, "root", "base", 7, child)

	clone, ok := rg.Clone(nil)
	if !ok {
		t.Fatal("clone absent")
	}
	rgClone, ok := clone.(*RestartGroup)
	if !ok {
		t.Fatalf("clone is %T, want *RestartGroup", clone)
	}
	if rgClone.MaxRestarts() != 7 {
		t.Errorf("MaxRestarts = %d, want 7", rgClone.MaxRestarts())
	}
}
