package rules

import (
	"github.com/chazu/relift/action"
)

// Group tags carried by the stock rules and tasks.
const (
	GroupBase        = "base"
	GroupAnalysis    = "analysis"
	GroupArith       = "arith"
	GroupLogic       = "logic"
	GroupConstProp   = "constprop"
	GroupPropagation = "propagation"
	GroupDeadCode    = "deadcode"
)

// DefaultMaxRestarts bounds how many times the universal tree reruns itself
// on a restart request before accepting a partial result.
const DefaultMaxRestarts = 5

// DefaultPipeline is the pipeline made active by NewRegistry.
const DefaultPipeline = "decompile"

// Universal builds the master action tree containing every stock rule and
// task. Named pipelines are derived from it by group selector.
func Universal(maxRestarts int) action.Action {
	peephole := action.NewPool(action.RepeatApply, "peephole", GroupBase,
		action.NewRule("termorder", GroupAnalysis, TermOrder{}),
		action.NewRule("identadd", GroupArith, IdentAdd{}),
		action.NewRule("identmult", GroupArith, IdentMult{}),
		action.NewRule("identshift", GroupArith, IdentShift{}),
		action.NewRule("doublenegate", GroupArith, DoubleNegate{}),
		action.NewRule("selfcancel", GroupArith, SelfCancel{}),
		action.NewRule("andmask", GroupLogic, AndMask{}),
		action.NewRule("orident", GroupLogic, OrIdent{}),
		action.NewRule("constfold", GroupConstProp, ConstFold{}),
		action.NewRule("copychain", GroupPropagation, CopyChain{}),
		action.NewRule("copyprop", GroupPropagation, CopyPropagate{}),
	)
	mainloop := action.NewGroup(action.RepeatApply, "mainloop", GroupBase,
		peephole,
		action.NewTask(action.RepeatApply, "deadcode", GroupDeadCode, DeadCode),
	)
	cleanup := action.NewPool(0, "cleanup", GroupBase,
		action.NewRule("finalcopy", GroupPropagation, CopyChain{}),
		action.NewRule("finalfold", GroupConstProp, ConstFold{}),
	)
	return action.NewRestartGroup(0, "universal", GroupBase, maxRestarts,
		action.NewTask(action.OncePerFunc, "clearanalysis", GroupBase, ClearAnalysis),
		mainloop,
		cleanup,
	)
}

// DefaultSelectors returns the stock pipeline selectors.
func DefaultSelectors() map[string]*action.GroupSelector {
	return map[string]*action.GroupSelector{
		"decompile": action.NewGroupSelector(
			GroupBase, GroupAnalysis, GroupArith, GroupLogic,
			GroupConstProp, GroupPropagation, GroupDeadCode),
		"normalize": action.NewGroupSelector(
			GroupBase, GroupAnalysis, GroupArith, GroupLogic, GroupDeadCode),
		"firstpass": action.NewGroupSelector(
			GroupBase, GroupAnalysis, GroupDeadCode),
		"jumptable": action.NewGroupSelector(
			GroupBase, GroupArith, GroupConstProp),
	}
}

// NewRegistry builds a registry holding the universal tree with the stock
// pipelines installed and "decompile" active.
func NewRegistry(maxRestarts int) (*action.Registry, error) {
	if maxRestarts <= 0 {
		maxRestarts = DefaultMaxRestarts
	}
	reg := action.NewRegistry(Universal(maxRestarts))
	if err := reg.ResetDefaults(DefaultSelectors(), DefaultPipeline); err != nil {
		return nil, err
	}
	return reg, nil
}
