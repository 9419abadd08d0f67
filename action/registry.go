package action

import (
	"fmt"
	"io"
	"sort"
)

// UniversalName is the reserved pipeline name of the master tree.
const UniversalName = "universal"

// ---------------------------------------------------------------------------
// Registry: named pipelines derived from one universal tree
// ---------------------------------------------------------------------------

// Registry owns the universal action tree and every pipeline derived from
// it. A pipeline is a named clone of the universal tree filtered by a
// GroupSelector; derived trees are cached per name and never share mutable
// state with each other or with universal.
type Registry struct {
	selectors map[string]*GroupSelector
	trees     map[string]Action
	universal Action

	current     Action
	currentName string
}

// NewRegistry creates a registry holding the given universal tree.
func NewRegistry(universal Action) *Registry {
	return &Registry{
		selectors: make(map[string]*GroupSelector),
		trees:     map[string]Action{UniversalName: universal},
		universal: universal,
	}
}

// Universal returns the master tree.
func (r *Registry) Universal() Action { return r.universal }

// ResetDefaults drops every derived tree (the universal tree survives),
// installs copies of the supplied default selectors, and makes defaultName
// the active pipeline.
func (r *Registry) ResetDefaults(selectors map[string]*GroupSelector, defaultName string) error {
	r.trees = map[string]Action{UniversalName: r.universal}
	r.selectors = make(map[string]*GroupSelector, len(selectors))
	for name, sel := range selectors {
		r.selectors[name] = sel.Copy()
	}
	return r.SetCurrent(defaultName)
}

// SetGroup installs or replaces the selector for a pipeline name. Cached
// trees are not re-derived; edits take effect via ToggleAction or after
// ResetDefaults.
func (r *Registry) SetGroup(name string, sel *GroupSelector) {
	r.selectors[name] = sel.Copy()
}

// Selector returns the selector registered for a pipeline name.
func (r *Registry) Selector(name string) (*GroupSelector, error) {
	sel, ok := r.selectors[name]
	if !ok {
		return nil, fmt.Errorf("action: unknown pipeline %q", name)
	}
	return sel, nil
}

// CloneGroup copies the selector registered under src to dst.
func (r *Registry) CloneGroup(dst, src string) error {
	sel, err := r.Selector(src)
	if err != nil {
		return err
	}
	r.selectors[dst] = sel.Copy()
	return nil
}

// AddToGroup inserts a group tag into a pipeline's selector. The cached
// tree, if any, is not re-derived.
func (r *Registry) AddToGroup(name, group string) (bool, error) {
	sel, err := r.Selector(name)
	if err != nil {
		return false, err
	}
	return sel.Add(group), nil
}

// RemoveFromGroup deletes a group tag from a pipeline's selector. The
// cached tree, if any, is not re-derived.
func (r *Registry) RemoveFromGroup(name, group string) (bool, error) {
	sel, err := r.Selector(name)
	if err != nil {
		return false, err
	}
	return sel.Remove(group), nil
}

// ToggleAction adds or removes a group tag from a pipeline's selector and
// forces a fresh derivation, replacing the cached tree. If the pipeline is
// currently active the active pointer is swapped to the new tree.
func (r *Registry) ToggleAction(name, group string, enable bool) error {
	sel, err := r.Selector(name)
	if err != nil {
		return err
	}
	var changed bool
	if enable {
		changed = sel.Add(group)
	} else {
		changed = sel.Remove(group)
	}
	tree, ok := r.universal.Clone(sel)
	if !ok {
		// Undo the selector edit so it keeps matching the cached tree.
		if changed {
			if enable {
				sel.Remove(group)
			} else {
				sel.Add(group)
			}
		}
		return fmt.Errorf("action: pipeline %q selects nothing after toggling %q", name, group)
	}
	r.trees[name] = tree
	if r.currentName == name {
		r.current = tree
	}
	return nil
}

// Derive returns the cached tree for a pipeline, cloning the universal tree
// against the pipeline's selector on first use. A selector that matches
// nothing in the universal tree is a configuration error.
func (r *Registry) Derive(name string) (Action, error) {
	if tree, ok := r.trees[name]; ok {
		return tree, nil
	}
	sel, err := r.Selector(name)
	if err != nil {
		return nil, err
	}
	tree, ok := r.universal.Clone(sel)
	if !ok {
		return nil, fmt.Errorf("action: pipeline %q derives an empty tree", name)
	}
	r.trees[name] = tree
	return tree, nil
}

// SetCurrent makes the named pipeline active, deriving it if necessary.
func (r *Registry) SetCurrent(name string) error {
	tree, err := r.Derive(name)
	if err != nil {
		return err
	}
	r.current = tree
	r.currentName = name
	return nil
}

// Current returns the active pipeline's name and tree.
func (r *Registry) Current() (string, Action) {
	return r.currentName, r.current
}

// CloneCurrentTree builds a brand-new, independent clone of the active
// pipeline with fresh statistics and cursors. The clone is never cached and
// never aliases the registry's own instance, so concurrent work can drive
// it privately.
func (r *Registry) CloneCurrentTree() (Action, error) {
	if r.current == nil {
		return nil, fmt.Errorf("action: no active pipeline")
	}
	var sel *GroupSelector // nil matches everything, for the universal pipeline
	if r.currentName != UniversalName {
		sel = r.selectors[r.currentName]
	}
	tree, ok := r.universal.Clone(sel)
	if !ok {
		return nil, fmt.Errorf("action: pipeline %q derives an empty tree", r.currentName)
	}
	return tree, nil
}

// Pipelines returns the registered pipeline names in sorted order.
func (r *Registry) Pipelines() []string {
	names := make([]string, 0, len(r.selectors)+1)
	names = append(names, UniversalName)
	for name := range r.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Name-path configuration
// ---------------------------------------------------------------------------

// SetBreakpoint arms breakpoints on the action or rule named by a dotted
// path within a pipeline's tree.
func (r *Registry) SetBreakpoint(pipeline, path string, flags BreakFlags) error {
	tree, err := r.Derive(pipeline)
	if err != nil {
		return err
	}
	if a, err := FindAction(tree, path); err == nil {
		SetBreak(a, flags)
		return nil
	}
	rule, err := FindRule(tree, path)
	if err != nil {
		return err
	}
	rule.SetBreak(flags)
	return nil
}

// ClearBreakpoints disarms every breakpoint on the action or rule named by
// a dotted path.
func (r *Registry) ClearBreakpoints(pipeline, path string) error {
	tree, err := r.Derive(pipeline)
	if err != nil {
		return err
	}
	all := BreakStart | BreakAction | TmpBreakStart | TmpBreakAction
	if a, err := FindAction(tree, path); err == nil {
		ClearBreak(a, all)
		return nil
	}
	rule, err := FindRule(tree, path)
	if err != nil {
		return err
	}
	rule.ClearBreak(all)
	return nil
}

// EnableRule enables or disables the rule named by a dotted path.
func (r *Registry) EnableRule(pipeline, path string, on bool) error {
	tree, err := r.Derive(pipeline)
	if err != nil {
		return err
	}
	rule, err := FindRule(tree, path)
	if err != nil {
		return err
	}
	rule.SetEnabled(on)
	return nil
}

// EnableWarnings turns applied warnings on or off for the action or rule
// named by a dotted path.
func (r *Registry) EnableWarnings(pipeline, path string, on bool) error {
	tree, err := r.Derive(pipeline)
	if err != nil {
		return err
	}
	if a, err := FindAction(tree, path); err == nil {
		EnableWarnings(a, on)
		return nil
	}
	rule, err := FindRule(tree, path)
	if err != nil {
		return err
	}
	rule.EnableWarnings(on)
	return nil
}

// PrintStatistics writes test/apply counts for a pipeline's whole tree.
func (r *Registry) PrintStatistics(pipeline string, w io.Writer) error {
	tree, err := r.Derive(pipeline)
	if err != nil {
		return err
	}
	tree.PrintStatistics(w)
	return nil
}
