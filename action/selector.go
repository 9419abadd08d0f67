package action

import "sort"

// GroupSelector is a set of group tags used to filter which rules and
// sub-actions participate in a derived pipeline. A nil selector matches
// every tag.
type GroupSelector struct {
	set map[string]struct{}
}

// NewGroupSelector creates a selector containing the given tags.
func NewGroupSelector(groups ...string) *GroupSelector {
	sel := &GroupSelector{set: make(map[string]struct{}, len(groups))}
	for _, g := range groups {
		sel.set[g] = struct{}{}
	}
	return sel
}

// Contains reports whether the tag is selected.
func (s *GroupSelector) Contains(group string) bool {
	if s == nil {
		return true
	}
	_, ok := s.set[group]
	return ok
}

// Add inserts a tag. Reports whether the selector changed.
func (s *GroupSelector) Add(group string) bool {
	if _, ok := s.set[group]; ok {
		return false
	}
	s.set[group] = struct{}{}
	return true
}

// Remove deletes a tag. Reports whether the selector changed.
func (s *GroupSelector) Remove(group string) bool {
	if _, ok := s.set[group]; !ok {
		return false
	}
	delete(s.set, group)
	return true
}

// Len returns the number of selected tags.
func (s *GroupSelector) Len() int {
	if s == nil {
		return 0
	}
	return len(s.set)
}

// Groups returns the selected tags in sorted order.
func (s *GroupSelector) Groups() []string {
	if s == nil {
		return nil
	}
	groups := make([]string, 0, len(s.set))
	for g := range s.set {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Copy returns an independent copy of the selector.
func (s *GroupSelector) Copy() *GroupSelector {
	if s == nil {
		return nil
	}
	return NewGroupSelector(s.Groups()...)
}
