/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workitem

// Set is an insertion-ordered collection of references keyed by id.
// The first reference added for an id wins.
type Set struct {
	order []string
	refs  map[string]Reference
}

// NewSet returns a set holding refs, in order.
func NewSet(refs ...Reference) *Set {
	s := &Set{refs: make(map[string]Reference, len(refs))}
	for _, ref := range refs {
		s.Add(ref)
	}
	return s
}

// Add inserts ref unless its id is already present.
// It returns true if the reference was added.
func (s *Set) Add(ref Reference) bool {
	if s.refs == nil {
		s.refs = make(map[string]Reference)
	}
	if _, ok := s.refs[ref.ID]; ok {
		return false
	}
	s.refs[ref.ID] = ref
	s.order = append(s.order, ref.ID)
	return true
}

// Has reports whether id is in the set.
func (s *Set) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.refs[id]
	return ok
}

// Get returns the reference recorded for id.
func (s *Set) Get(id string) (Reference, bool) {
	if s == nil {
		return Reference{}, false
	}
	ref, ok := s.refs[id]
	return ref, ok
}

// Len returns the number of distinct ids.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns the ids in insertion order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// References returns the references in insertion order.
func (s *Set) References() []Reference {
	if s == nil {
		return nil
	}
	refs := make([]Reference, 0, len(s.order))
	for _, id := range s.order {
		refs = append(refs, s.refs[id])
	}
	return refs
}

// Union returns a new set with the references of s followed by those of
// other that s does not already hold.
func (s *Set) Union(other *Set) *Set {
	out := NewSet(s.References()...)
	for _, ref := range other.References() {
		out.Add(ref)
	}
	return out
}

// Scan extracts references from every commit message in order.
// It returns every distinct reference (attributed to the first commit that
// mentions it) and the commits that reference no work item.
func Scan(commits []Commit) (refs *Set, unlinked []Commit) {
	refs = NewSet()
	for i := range commits {
		c := commits[i]
		ids := Extract(c.Message)
		if len(ids) == 0 {
			unlinked = append(unlinked, c)
			continue
		}
		for _, id := range ids {
			refs.Add(Reference{ID: id, Commit: &c})
		}
	}
	return refs, unlinked
}
