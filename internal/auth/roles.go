package auth

import (
	"sort"
	"strings"
)

// RoleSet is an unordered, duplicate-free collection of role names. Names
// are normalized (lower-cased, trimmed) on entry so authorization checks
// never depend on how a role was spelled in the database or a token.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from raw names, dropping empty entries.
func NewRoleSet(names ...string) RoleSet {
	s := make(RoleSet, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether the set contains the given role name.
func (s RoleSet) Has(name string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for n := range small {
		if _, ok := large[n]; ok {
			return true
		}
	}
	return false
}

// Empty reports whether the set holds no roles.
func (s RoleSet) Empty() bool { return len(s) == 0 }

// Names returns the role names in sorted order, for stable serialization.
func (s RoleSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
