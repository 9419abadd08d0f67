package action

import (
	"fmt"

	"github.com/chazu/relift/ir"
)

// ---------------------------------------------------------------------------
// Rule: an atomic rewrite keyed by opcode
// ---------------------------------------------------------------------------

// RuleImpl is the user-supplied rewrite behind a Rule. Implementations must
// be stateless: a cloned Rule shares the impl of its template.
type RuleImpl interface {
	// OpList returns the opcodes the rule applies to. An empty list means
	// the rule is dispatched for every opcode.
	OpList() []ir.OpCode
	// ApplyOp attempts the rewrite on op and returns the number of changes
	// made; zero means the rule did not apply. A rule that mutates the
	// op's opcode must report at least one change.
	ApplyOp(op *ir.Op, fn *ir.Function) int
}

// Rule wraps a RuleImpl with scheduling state: group tag, enable flag,
// breakpoint and warning flags, and test/apply counters.
type Rule struct {
	name    string
	group   string
	enabled bool
	breaks  BreakFlags
	warns   bool
	warned  bool

	countTests int
	countApply int

	impl RuleImpl
}

// NewRule creates an enabled rule with the given name and group tag.
func NewRule(name, group string, impl RuleImpl) *Rule {
	return &Rule{name: name, group: group, enabled: true, impl: impl}
}

// Name returns the rule's name, used in dotted configuration paths.
func (r *Rule) Name() string { return r.name }

// GroupTag returns the rule's group tag.
func (r *Rule) GroupTag() string { return r.group }

// Enabled reports whether the rule participates in dispatch.
func (r *Rule) Enabled() bool { return r.enabled }

// SetEnabled enables or disables the rule. Takes effect on the very next
// dispatch step.
func (r *Rule) SetEnabled(on bool) { r.enabled = on }

// SetBreak arms breakpoints on the rule.
func (r *Rule) SetBreak(flags BreakFlags) { r.breaks |= flags }

// ClearBreak disarms breakpoints on the rule.
func (r *Rule) ClearBreak(flags BreakFlags) { r.breaks &^= flags }

// EnableWarnings turns the once-per-reset applied warning on or off.
func (r *Rule) EnableWarnings(on bool) { r.warns = on }

// ApplyOp invokes the underlying rewrite directly, bypassing scheduling.
func (r *Rule) ApplyOp(op *ir.Op, fn *ir.Function) int {
	return r.impl.ApplyOp(op, fn)
}

// Stats reports the rule's test and apply counts.
func (r *Rule) Stats() (tests, applies int) {
	return r.countTests, r.countApply
}

// ResetStats clears the rule's counters.
func (r *Rule) ResetStats() {
	r.countTests = 0
	r.countApply = 0
}

// Clone copies the rule if its group tag is selected. The clone has fresh
// counters and shares the template's impl.
func (r *Rule) Clone(sel *GroupSelector) (*Rule, bool) {
	if !sel.Contains(r.group) {
		return nil, false
	}
	clone := NewRule(r.name, r.group, r.impl)
	clone.enabled = r.enabled
	clone.warns = r.warns
	return clone, true
}

func (r *Rule) reset() {
	r.warned = false
}

func (r *Rule) issueWarning(fn *ir.Function) {
	if !r.warns || r.warned {
		return
	}
	r.warned = true
	fn.Warning(fmt.Sprintf("Applied rule %s", r.name))
}

// checkActionBreak tests and consumes the rule's action breakpoint.
func (r *Rule) checkActionBreak(t Tracer) bool {
	if r.breaks&(BreakAction|TmpBreakAction) == 0 {
		return false
	}
	if !t.HandleBreak(r.name) {
		return false
	}
	r.breaks &^= TmpBreakAction
	t.Break(r.name)
	return true
}
