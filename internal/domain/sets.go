package domain

import (
	"encoding/json"
	"slices"
	"sort"
)

// IntSet is a set of integers kept in ascending order.
// It encodes as a plain JSON array so documents written by other clients
// (which store sets as arrays, possibly unsorted or with duplicates) load cleanly.
type IntSet []int

// NewIntSet builds a canonical set from arbitrary members
func NewIntSet(members ...int) IntSet {
	s := IntSet(nil)
	for _, m := range members {
		s = s.With(m)
	}
	if s == nil {
		return IntSet{}
	}
	return s
}

// Contains reports whether v is a member
func (s IntSet) Contains(v int) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}

// With returns a set that also contains v. The receiver is not modified.
func (s IntSet) With(v int) IntSet {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	out := make(IntSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	out = append(out, s[i:]...)
	return out
}

// Union returns every member of s and other
func (s IntSet) Union(other IntSet) IntSet {
	out := make(IntSet, 0, len(s)+len(other))
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] < other[j]:
			out = append(out, s[i])
			i++
		case s[i] > other[j]:
			out = append(out, other[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	out = append(out, other[j:]...)
	return out
}

// SubsetOf reports whether every member of s is in other
func (s IntSet) SubsetOf(other IntSet) bool {
	for _, v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Len returns the number of members
func (s IntSet) Len() int { return len(s) }

// Clone returns an independent copy
func (s IntSet) Clone() IntSet {
	if s == nil {
		return IntSet{}
	}
	return slices.Clone(s)
}

// MarshalJSON encodes the set as an array, never null
func (s IntSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(s))
}

// UnmarshalJSON decodes an array and canonicalizes it
func (s *IntSet) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewIntSet(raw...)
	return nil
}

// StringSet is a set of strings kept in lexical order
type StringSet []string

// NewStringSet builds a canonical set from arbitrary members
func NewStringSet(members ...string) StringSet {
	out := make(StringSet, 0, len(members))
	out = append(out, members...)
	sort.Strings(out)
	return slices.Compact(out)
}

// Contains reports whether v is a member
func (s StringSet) Contains(v string) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}

// With returns a set that also contains v. The receiver is not modified.
func (s StringSet) With(v string) StringSet {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	out := make(StringSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	out = append(out, s[i:]...)
	return out
}

// Union returns every member of s and other
func (s StringSet) Union(other StringSet) StringSet {
	merged := make([]string, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewStringSet(merged...)
}

// Len returns the number of members
func (s StringSet) Len() int { return len(s) }

// Clone returns an independent copy
func (s StringSet) Clone() StringSet {
	if s == nil {
		return StringSet{}
	}
	return slices.Clone(s)
}

// MarshalJSON encodes the set as an array, never null
func (s StringSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// UnmarshalJSON decodes an array and canonicalizes it
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewStringSet(raw...)
	return nil
}
