package catalog

import (
	"encoding/json"
	"sort"
)

// Set is a set of permissions. The zero value is an empty, usable set for
// reads; use make or SetOf before adding.
type Set map[Permission]struct{}

// SetOf builds a set from the given permissions.
func SetOf(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAll reports whether every given permission is in the set.
func (s Set) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Add inserts p into the set.
func (s Set) Add(p Permission) { s[p] = struct{}{} }

// Remove deletes p from the set.
func (s Set) Remove(p Permission) { delete(s, p) }

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Equal reports whether both sets contain exactly the same permissions.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Has(p) {
			return false
		}
	}
	return true
}

// Slice returns the permissions in lexical order.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted JSON array of tokens.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes a JSON array of tokens. Tokens outside the catalog
// are dropped rather than failing the whole document, so a stale or
// corrupted stored set degrades toward the defaults instead of erroring.
func (s *Set) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	out := make(Set, len(tokens))
	for _, t := range tokens {
		p, err := ParsePermission(t)
		if err != nil {
			continue
		}
		out[p] = struct{}{}
	}
	*s = out
	return nil
}
