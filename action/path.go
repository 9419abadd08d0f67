package action

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Dotted name-path lookup
// ---------------------------------------------------------------------------
//
// Breakpoints, warnings and rule enables are configured by dotted paths such
// as "universal.mainloop.peephole.identmult". Each component names a
// descendant of the action resolved so far; resolution searches the whole
// subtree and fails when a component matches more than one candidate rather
// than guessing.

// FindAction resolves a dotted path to an action within root's subtree.
func FindAction(root Action, path string) (Action, error) {
	comps, err := splitPath(root, path)
	if err != nil {
		return nil, err
	}
	cur := root
	for _, comp := range comps {
		sub, rule, err := findComponent(cur, comp)
		if err != nil {
			return nil, fmt.Errorf("action: path %q: %w", path, err)
		}
		if sub == nil || rule != nil {
			return nil, fmt.Errorf("action: path %q: no action named %q under %q", path, comp, cur.Name())
		}
		cur = sub
	}
	return cur, nil
}

// FindRule resolves a dotted path whose final component names a rule.
func FindRule(root Action, path string) (*Rule, error) {
	comps, err := splitPath(root, path)
	if err != nil {
		return nil, err
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("action: path %q does not name a rule", path)
	}
	cur := root
	for _, comp := range comps[:len(comps)-1] {
		sub, rule, err := findComponent(cur, comp)
		if err != nil {
			return nil, fmt.Errorf("action: path %q: %w", path, err)
		}
		if sub == nil || rule != nil {
			return nil, fmt.Errorf("action: path %q: no action named %q under %q", path, comp, cur.Name())
		}
		cur = sub
	}
	last := comps[len(comps)-1]
	sub, rule, err := findComponent(cur, last)
	if err != nil {
		return nil, fmt.Errorf("action: path %q: %w", path, err)
	}
	if rule == nil || sub != nil {
		return nil, fmt.Errorf("action: path %q: no rule named %q under %q", path, last, cur.Name())
	}
	return rule, nil
}

func splitPath(root Action, path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("action: empty path")
	}
	comps := strings.Split(path, ".")
	// The path may start at the root's own name.
	if comps[0] == root.Name() {
		comps = comps[1:]
	}
	return comps, nil
}

// findComponent searches cur's subtree for a unique action or rule with the
// given name. Exactly one of the results is non-nil on success; an error is
// returned when more than one candidate matches.
func findComponent(cur Action, name string) (Action, *Rule, error) {
	var actions []Action
	var rules []*Rule
	collect(cur, name, &actions, &rules)
	switch {
	case len(actions)+len(rules) == 0:
		return nil, nil, fmt.Errorf("no component named %q", name)
	case len(actions)+len(rules) > 1:
		return nil, nil, fmt.Errorf("ambiguous component %q (%d matches)", name, len(actions)+len(rules))
	case len(actions) == 1:
		return actions[0], nil, nil
	default:
		return nil, rules[0], nil
	}
}

func collect(a Action, name string, actions *[]Action, rules *[]*Rule) {
	for _, child := range a.childActions() {
		if child.Name() == name {
			*actions = append(*actions, child)
		}
		collect(child, name, actions, rules)
	}
	for _, r := range a.localRules() {
		if r.Name() == name {
			*rules = append(*rules, r)
		}
	}
}
