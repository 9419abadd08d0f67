package action

import (
	"fmt"
	"io"

	"github.com/chazu/relift/ir"
)

// Paused is the distinguished return value of Perform meaning execution
// stopped at a breakpoint and can be resumed by calling Perform again. It is
// a control signal, never an error.
const Paused = -1

// ---------------------------------------------------------------------------
// Status and flags
// ---------------------------------------------------------------------------

// Status tracks where an action is in its resumable execution cycle.
type Status int

const (
	StatusStart         Status = iota // ready for a fresh invocation
	StatusBreakStartHit               // paused at a start breakpoint
	StatusRepeat                      // converging, another pass requested
	StatusMid                         // paused inside apply
	StatusEnd                         // completed for this function, no-op until reset
	StatusActionBreak                 // paused at an action breakpoint
)

// Flags select an action's behavior.
type Flags uint32

const (
	// RepeatApply reruns the action until a pass makes no changes.
	RepeatApply Flags = 1 << iota
	// OncePerFunc retires the action after its first invocation on a
	// function, whether or not it made changes.
	OncePerFunc
	// OneActPerFunc retires the action after the first invocation that
	// makes changes.
	OneActPerFunc
	// Debug reports passes of this action to the tracer.
	Debug
	// Warnings records a once-per-reset warning on the function when the
	// action is applied.
	Warnings
)

// BreakFlags arm breakpoints on an action or rule. Tmp variants are one-shot
// and disarm themselves when hit.
type BreakFlags uint32

const (
	BreakStart BreakFlags = 1 << iota
	BreakAction
	TmpBreakStart
	TmpBreakAction
)

// ---------------------------------------------------------------------------
// Tracer: injectable debug hooks
// ---------------------------------------------------------------------------

// Tracer receives scheduler debug events. The default tracer does nothing;
// tests inject one to exercise the pause/resume protocol deterministically.
type Tracer interface {
	// Activate is called when a debug-flagged action begins a fresh pass.
	Activate(name string)
	// Trace is called after an apply pass of a debug-flagged action that
	// made changes.
	Trace(name string, count int)
	// Break is called when a breakpoint pauses execution.
	Break(name string)
	// HandleBreak reports whether an armed breakpoint should pause. The
	// default tracer always pauses.
	HandleBreak(name string) bool
}

type nopTracer struct{}

func (nopTracer) Activate(string)         {}
func (nopTracer) Trace(string, int)       {}
func (nopTracer) Break(string)            {}
func (nopTracer) HandleBreak(string) bool { return true }

// ---------------------------------------------------------------------------
// Action interface
// ---------------------------------------------------------------------------

// Action is a resumable unit of transformation. The concrete set is closed:
// Group, RestartGroup, Pool, and Task. Perform drives the action on a
// function and returns the number of changes made, or Paused if execution
// stopped at a breakpoint; calling Perform again continues exactly where the
// paused computation left off.
//
// One Action instance carries mutable cursors and statistics and must never
// be driven by two concurrent callers; independent work needs an independent
// clone.
type Action interface {
	// Name returns the action's name, used in dotted configuration paths.
	Name() string
	// GroupTag returns the action's group tag.
	GroupTag() string
	// Perform runs or resumes the action, returning a change count or
	// Paused.
	Perform(fn *ir.Function) int
	// Reset returns the action to its start state. Statistics survive.
	Reset(fn *ir.Function)
	// ResetStats clears test/apply counters, independent of Reset.
	ResetStats()
	// Clone copies the action filtered by the selector. The second result
	// is false when nothing in the subtree is selected; a surviving clone
	// has fresh statistics and a reset cursor.
	Clone(sel *GroupSelector) (Action, bool)
	// PrintStatistics writes test/apply counts for the action and its
	// subtree.
	PrintStatistics(w io.Writer)

	// apply performs one pass (or resumes a paused one), accumulating
	// changes into the shared counter. It returns Paused or 0.
	apply(fn *ir.Function) int
	// begin initializes cursors for a fresh pass.
	begin(fn *ir.Function)
	// state exposes the shared state machine fields.
	state() *common
	// children returns sub-actions, or nil for leaves.
	childActions() []Action
	// localRules returns directly owned rules, or nil.
	localRules() []*Rule
}

var (
	_ Action = (*Group)(nil)
	_ Action = (*RestartGroup)(nil)
	_ Action = (*Pool)(nil)
	_ Action = (*Task)(nil)
)

// ---------------------------------------------------------------------------
// Shared state machine
// ---------------------------------------------------------------------------

// common holds the state machine fields shared by every action variant.
type common struct {
	name  string
	group string
	flags Flags

	status Status
	breaks BreakFlags

	count      int // changes made during the current invocation
	lcount     int // changes at the start of the current pass
	countTests int
	countApply int

	warned bool // once-per-reset warning already issued
	trace  Tracer
}

func newCommon(flags Flags, name, group string) common {
	return common{name: name, group: group, flags: flags, trace: nopTracer{}}
}

func (c *common) tracer() Tracer {
	if c.trace == nil {
		return nopTracer{}
	}
	return c.trace
}

// checkStartBreak tests and consumes a start breakpoint.
func (c *common) checkStartBreak() bool {
	if c.breaks&(BreakStart|TmpBreakStart) == 0 {
		return false
	}
	if !c.tracer().HandleBreak(c.name) {
		return false
	}
	c.breaks &^= TmpBreakStart
	c.tracer().Break(c.name)
	return true
}

// checkActionBreak tests and consumes an action breakpoint.
func (c *common) checkActionBreak() bool {
	if c.breaks&(BreakAction|TmpBreakAction) == 0 {
		return false
	}
	if !c.tracer().HandleBreak(c.name) {
		return false
	}
	c.breaks &^= TmpBreakAction
	c.tracer().Break(c.name)
	return true
}

func (c *common) issueWarning(fn *ir.Function) {
	if c.flags&Warnings == 0 || c.warned {
		return
	}
	c.warned = true
	fn.Warning(fmt.Sprintf("Applied %s", c.name))
}

func (c *common) resetState() {
	c.status = StatusStart
	c.warned = false
}

func (c *common) resetStats() {
	c.countTests = 0
	c.countApply = 0
}

// perform drives the shared state machine for any action variant.
func perform(a Action, fn *ir.Function) int {
	c := a.state()
	for {
		skipApply := false
		switch c.status {
		case StatusStart:
			c.count = 0
			c.lcount = 0
			if c.checkStartBreak() {
				c.status = StatusBreakStartHit
				return Paused
			}
			c.countTests++
			c.status = StatusMid
			if c.flags&Debug != 0 {
				c.tracer().Activate(c.name)
			}
			a.begin(fn)
		case StatusBreakStartHit:
			// Resuming from a start breakpoint: the pass has not begun.
			c.countTests++
			c.status = StatusMid
			a.begin(fn)
		case StatusRepeat:
			c.lcount = c.count
			c.status = StatusMid
			a.begin(fn)
		case StatusMid:
			// Resuming a pass paused inside apply: cursors are parked.
		case StatusActionBreak:
			// The pass completed before the break; decide on repetition
			// without reapplying.
			c.status = StatusMid
			skipApply = true
		case StatusEnd:
			return 0
		}

		if !skipApply {
			if res := a.apply(fn); res == Paused {
				return Paused // status stays StatusMid for resumption
			}
			if c.count > c.lcount {
				c.issueWarning(fn)
				c.countApply++
				if c.flags&Debug != 0 {
					c.tracer().Trace(c.name, c.count-c.lcount)
				}
				if c.checkActionBreak() {
					c.status = StatusActionBreak
					return Paused
				}
			}
		}
		if c.flags&RepeatApply != 0 && c.count > c.lcount {
			c.status = StatusRepeat
			continue
		}
		break
	}

	// Converged.
	if c.flags&(OncePerFunc|OneActPerFunc) != 0 && (c.count > 0 || c.flags&OncePerFunc != 0) {
		c.status = StatusEnd
	} else {
		c.status = StatusStart
	}
	return c.count
}

// ---------------------------------------------------------------------------
// Task: leaf action wrapping a single transformation func
// ---------------------------------------------------------------------------

// Task is a leaf action that runs an injected transformation func once per
// pass. The func returns the number of changes it made. Funcs must be
// stateless so clones may share them.
type Task struct {
	com common
	run func(fn *ir.Function) int
}

// NewTask creates a leaf action with the given behavior flags, name, group
// tag and transformation func.
func NewTask(flags Flags, name, group string, run func(fn *ir.Function) int) *Task {
	return &Task{com: newCommon(flags, name, group), run: run}
}

// Name returns the task's name.
func (t *Task) Name() string { return t.com.name }

// GroupTag returns the task's group tag.
func (t *Task) GroupTag() string { return t.com.group }

// Perform runs or resumes the task.
func (t *Task) Perform(fn *ir.Function) int { return perform(t, fn) }

// Reset returns the task to its start state.
func (t *Task) Reset(fn *ir.Function) { t.com.resetState() }

// ResetStats clears the task's counters.
func (t *Task) ResetStats() { t.com.resetStats() }

// Clone copies the task if its group tag is selected.
func (t *Task) Clone(sel *GroupSelector) (Action, bool) {
	if !sel.Contains(t.com.group) {
		return nil, false
	}
	clone := NewTask(t.com.flags, t.com.name, t.com.group, t.run)
	clone.com.trace = t.com.trace
	return clone, true
}

// PrintStatistics writes the task's test/apply counts.
func (t *Task) PrintStatistics(w io.Writer) {
	printActionStats(w, t, 0)
}

func (t *Task) apply(fn *ir.Function) int {
	t.com.count += t.run(fn)
	return 0
}

func (t *Task) begin(fn *ir.Function)  {}
func (t *Task) state() *common         { return &t.com }
func (t *Task) childActions() []Action { return nil }
func (t *Task) localRules() []*Rule    { return nil }

// ---------------------------------------------------------------------------
// Shared configuration and reporting helpers
// ---------------------------------------------------------------------------

// SetBreak arms breakpoints on an action.
func SetBreak(a Action, flags BreakFlags) {
	a.state().breaks |= flags
}

// ClearBreak disarms breakpoints on an action.
func ClearBreak(a Action, flags BreakFlags) {
	a.state().breaks &^= flags
}

// EnableWarnings turns the once-per-reset applied warning on or off.
func EnableWarnings(a Action, on bool) {
	if on {
		a.state().flags |= Warnings
	} else {
		a.state().flags &^= Warnings
	}
}

// SetTracer installs debug hooks on an action and its whole subtree.
func SetTracer(a Action, t Tracer) {
	if t == nil {
		t = nopTracer{}
	}
	a.state().trace = t
	for _, child := range a.childActions() {
		SetTracer(child, t)
	}
}

// Stats reports an action's test and apply counts.
func Stats(a Action) (tests, applies int) {
	c := a.state()
	return c.countTests, c.countApply
}

// ChildrenOf returns an action's direct sub-actions, or nil for leaves.
func ChildrenOf(a Action) []Action { return a.childActions() }

// RulesOf returns the rules an action owns directly, or nil.
func RulesOf(a Action) []*Rule { return a.localRules() }

func printActionStats(w io.Writer, a Action, depth int) {
	c := a.state()
	fmt.Fprintf(w, "%*s%s: tests=%d applies=%d\n", depth*2, "", c.name, c.countTests, c.countApply)
	for _, r := range a.localRules() {
		fmt.Fprintf(w, "%*s%s: tests=%d applies=%d\n", (depth+1)*2, "", r.name, r.countTests, r.countApply)
	}
	for _, child := range a.childActions() {
		printActionStats(w, child, depth+1)
	}
}
