package action

import (
	"fmt"
	"io"

	"github.com/chazu/relift/ir"
)

// ---------------------------------------------------------------------------
// Group: sequential composition with a resumable cursor
// ---------------------------------------------------------------------------

// Group runs an ordered list of sub-actions. A cursor remembers which child
// is executing so a paused group resumes at exactly the child that paused.
type Group struct {
	com      common
	children []Action
	cursor   int
}

// NewGroup creates a sequential group.
func NewGroup(flags Flags, name, group string, children ...Action) *Group {
	return &Group{com: newCommon(flags, name, group), children: children}
}

// Add appends a child action.
func (g *Group) Add(a Action) {
	g.children = append(g.children, a)
}

// Name returns the group's name.
func (g *Group) Name() string { return g.com.name }

// GroupTag returns the group's group tag. The name avoids colliding with
// RestartGroup's embedded Group field, which would otherwise shadow the
// promoted method.
func (g *Group) GroupTag() string { return g.com.group }

// Perform runs or resumes the group.
func (g *Group) Perform(fn *ir.Function) int { return perform(g, fn) }

// Reset returns the group and all children to their start state.
func (g *Group) Reset(fn *ir.Function) {
	g.com.resetState()
	g.cursor = 0
	for _, child := range g.children {
		child.Reset(fn)
	}
}

// ResetStats clears counters for the group and its subtree.
func (g *Group) ResetStats() {
	g.com.resetStats()
	for _, child := range g.children {
		child.ResetStats()
	}
}

// Clone copies the group filtered by the selector. Children that clone to
// nothing are pruned, in order; a group with no surviving children clones to
// nothing itself.
func (g *Group) Clone(sel *GroupSelector) (Action, bool) {
	kept, ok := cloneChildren(g.children, sel)
	if !ok {
		return nil, false
	}
	clone := NewGroup(g.com.flags, g.com.name, g.com.group, kept...)
	clone.com.trace = g.com.trace
	return clone, true
}

// PrintStatistics writes test/apply counts for the group's subtree.
func (g *Group) PrintStatistics(w io.Writer) {
	printActionStats(w, g, 0)
}

func (g *Group) apply(fn *ir.Function) int {
	for g.cursor < len(g.children) {
		child := g.children[g.cursor]
		res := child.Perform(fn)
		if res == Paused {
			// Cursor stays put so the same child resumes next call.
			return Paused
		}
		if res > 0 {
			g.com.count += res
			if g.com.checkActionBreak() {
				g.cursor++
				return Paused
			}
		}
		g.cursor++
	}
	return 0
}

func (g *Group) begin(fn *ir.Function)  { g.cursor = 0 }
func (g *Group) state() *common         { return &g.com }
func (g *Group) childActions() []Action { return g.children }
func (g *Group) localRules() []*Rule    { return nil }

func cloneChildren(children []Action, sel *GroupSelector) ([]Action, bool) {
	var kept []Action
	for _, child := range children {
		if clone, ok := child.Clone(sel); ok {
			kept = append(kept, clone)
		}
	}
	return kept, len(kept) > 0
}

// ---------------------------------------------------------------------------
// RestartGroup: rerun on restart requests, bounded by a retry budget
// ---------------------------------------------------------------------------

// RestartGroup is a Group that reruns its contents from the top when the
// function signals a restart request after a full pass, up to maxRestarts
// retries. Restart requests raised during nested jump-table recovery are
// left for the enclosing run.
type RestartGroup struct {
	Group
	maxRestarts  int
	restarts     int
	warnedBudget bool
}

// NewRestartGroup creates a restartable group with the given retry budget.
func NewRestartGroup(flags Flags, name, group string, maxRestarts int, children ...Action) *RestartGroup {
	return &RestartGroup{
		Group:       Group{com: newCommon(flags, name, group), children: children},
		maxRestarts: maxRestarts,
	}
}

// MaxRestarts returns the configured retry budget.
func (rg *RestartGroup) MaxRestarts() int { return rg.maxRestarts }

// Restarts returns the number of retries taken since the last reset.
func (rg *RestartGroup) Restarts() int { return rg.restarts }

// Perform runs or resumes the group.
func (rg *RestartGroup) Perform(fn *ir.Function) int { return perform(rg, fn) }

// Reset returns the group to its start state and clears the retry counter.
func (rg *RestartGroup) Reset(fn *ir.Function) {
	rg.restarts = 0
	rg.warnedBudget = false
	rg.Group.Reset(fn)
}

// Clone copies the group filtered by the selector, preserving the retry
// budget.
func (rg *RestartGroup) Clone(sel *GroupSelector) (Action, bool) {
	kept, ok := cloneChildren(rg.children, sel)
	if !ok {
		return nil, false
	}
	clone := NewRestartGroup(rg.com.flags, rg.com.name, rg.com.group, rg.maxRestarts, kept...)
	clone.com.trace = rg.com.trace
	return clone, true
}

// PrintStatistics writes test/apply counts for the group's subtree.
func (rg *RestartGroup) PrintStatistics(w io.Writer) {
	printActionStats(w, rg, 0)
}

func (rg *RestartGroup) apply(fn *ir.Function) int {
	for {
		res := rg.Group.apply(fn)
		if res == Paused {
			return Paused
		}
		if !fn.RestartPending() || fn.InJumpTableRecovery() {
			return res
		}
		if rg.restarts >= rg.maxRestarts {
			if !rg.warnedBudget {
				rg.warnedBudget = true
				fn.Warning(fmt.Sprintf("Exceeded maximum restarts (%d), analysis may be incomplete", rg.maxRestarts))
			}
			return res
		}
		rg.restarts++
		fn.ClearAnalysis()
		// Children restart from scratch; the group keeps its own counters.
		for _, child := range rg.children {
			child.Reset(fn)
		}
		rg.cursor = 0
	}
}
