package action

import (
	"io"

	"github.com/chazu/relift/ir"
)

// ---------------------------------------------------------------------------
// Pool: per-opcode rule dispatch over every live operation
// ---------------------------------------------------------------------------

// Pool aggregates rules behind a per-opcode dispatch table and scans every
// live operation of a function once per pass. The cursor — the parked "next
// op" handle plus the index into the current op's rule list — makes a paused
// pool resumable at the exact op and rule where it stopped.
type Pool struct {
	com   common
	rules []*Rule
	perOp map[ir.OpCode][]*Rule

	// Resumable cursor.
	iter      *ir.OpIter
	cur       *ir.Op
	curList   []*Rule
	ruleIndex int
}

// NewPool creates a rule pool. Rules dispatch in the order given, per
// opcode; rules with an empty op list are registered for every opcode.
func NewPool(flags Flags, name, group string, rules ...*Rule) *Pool {
	p := &Pool{com: newCommon(flags, name, group), rules: rules}
	p.buildDispatch()
	return p
}

func (p *Pool) buildDispatch() {
	p.perOp = make(map[ir.OpCode][]*Rule)
	for _, r := range p.rules {
		codes := r.impl.OpList()
		if len(codes) == 0 {
			codes = ir.AllOpCodes()
		}
		for _, c := range codes {
			p.perOp[c] = append(p.perOp[c], r)
		}
	}
}

// Name returns the pool's name.
func (p *Pool) Name() string { return p.com.name }

// GroupTag returns the pool's group tag.
func (p *Pool) GroupTag() string { return p.com.group }

// Rules returns the pool's rules in registration order.
func (p *Pool) Rules() []*Rule { return p.rules }

// Perform runs or resumes the pool.
func (p *Pool) Perform(fn *ir.Function) int { return perform(p, fn) }

// Reset returns the pool to its start state and clears the cursor.
func (p *Pool) Reset(fn *ir.Function) {
	p.com.resetState()
	p.iter = nil
	p.cur = nil
	p.curList = nil
	p.ruleIndex = 0
	for _, r := range p.rules {
		r.reset()
	}
}

// ResetStats clears counters for the pool and every rule.
func (p *Pool) ResetStats() {
	p.com.resetStats()
	for _, r := range p.rules {
		r.ResetStats()
	}
}

// Clone copies the pool filtered by the selector. Rules whose group is not
// selected are pruned, in order; a pool with no surviving rules clones to
// nothing.
func (p *Pool) Clone(sel *GroupSelector) (Action, bool) {
	var kept []*Rule
	for _, r := range p.rules {
		if clone, ok := r.Clone(sel); ok {
			kept = append(kept, clone)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	clone := NewPool(p.com.flags, p.com.name, p.com.group, kept...)
	clone.com.trace = p.com.trace
	return clone, true
}

// PrintStatistics writes test/apply counts for the pool and its rules.
func (p *Pool) PrintStatistics(w io.Writer) {
	printActionStats(w, p, 0)
}

func (p *Pool) begin(fn *ir.Function) {
	p.iter = fn.Ops()
	p.cur = nil
	p.curList = nil
	p.ruleIndex = 0
}

func (p *Pool) apply(fn *ir.Function) int {
	for {
		if p.cur == nil {
			if !p.iter.HasMore() {
				return 0
			}
			p.cur = p.iter.Current()
			// Park the next position before any rule can mutate the
			// graph; removal of the current op never touches it.
			p.iter.Advance()
			p.curList = p.perOp[p.cur.Code()]
			p.ruleIndex = 0
		}
		if p.processOp(fn) == Paused {
			return Paused
		}
		p.cur = nil
	}
}

// processOp walks the current op's rule list from the saved index, applying
// enabled rules until the list is exhausted or the op dies.
func (p *Pool) processOp(fn *ir.Function) int {
	op := p.cur
	for !op.IsDead() && p.ruleIndex < len(p.curList) {
		rule := p.curList[p.ruleIndex]
		p.ruleIndex++
		if !rule.enabled {
			continue
		}
		rule.countTests++
		before := op.Code()
		n := rule.impl.ApplyOp(op, fn)
		if n > 0 {
			rule.countApply++
			p.com.count += n
			rule.issueWarning(fn)
			if !op.IsDead() && op.Code() != before {
				// The op changed identity: rules registered for the new
				// opcode get their chance before we move on.
				p.curList = p.perOp[op.Code()]
				p.ruleIndex = 0
			}
			if rule.checkActionBreak(p.com.tracer()) {
				return Paused
			}
		} else if !op.IsDead() && op.Code() != before {
			// Contract violation: the rule mutated the opcode without
			// reporting a change. Diagnose and keep going.
			fn.Messagef("rule %s changed op %s from %s without reporting success", rule.name, op, before)
			p.curList = p.perOp[op.Code()]
			p.ruleIndex = 0
		}
	}
	if op.IsDead() {
		fn.OpGone(op)
	}
	return 0
}

func (p *Pool) state() *common         { return &p.com }
func (p *Pool) childActions() []Action { return nil }
func (p *Pool) localRules() []*Rule    { return p.rules }
