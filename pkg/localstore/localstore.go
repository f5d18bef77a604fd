// Package localstore implements per-frame variable storage keyed by small
// integer IDs, with an overlay that aliases certain IDs to named global
// "flags" (spec.md §3, §4.4).
//
// Design note (spec.md §9 "Cyclic ownership"): rather than giving Store a
// back-reference to the VM, Get/Set take a FlagHost explicitly. This keeps
// the store a plain value type with no cycle back into the VM, at the cost
// of threading the host through every call — the same tradeoff spec.md's
// design note calls out.
package localstore

import (
	"github.com/diannexlang/dx/pkg/value"
)

// FlagHost resolves reads and writes for local slots that have been bound
// to a named flag via BindFlag. The VM implements this interface.
type FlagHost interface {
	GetFlag(name string) value.Value
	SetFlag(name string, v value.Value)
}

// Store is a dense, gap-tolerant array of local variable slots (spec.md §9
// design note 5 prefers a dense sequence with explicit length tracking over
// a map, so that a deletion never misaligns subsequent slot indices).
type Store struct {
	slots   []value.Value
	flagMap map[int]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Count returns the number of allocated slots.
func (s *Store) Count() int { return len(s.slots) }

// BindFlag records that slot index aliases the global flag named name, per
// the call convention's flag-initializer protocol (spec.md §4.4 step 4).
func (s *Store) BindFlag(index int, name string) {
	if s.flagMap == nil {
		s.flagMap = make(map[int]string)
	}
	s.flagMap[index] = name
}

// Get reads slot i, redirecting through host when i is flag-bound.
func (s *Store) Get(i int, host FlagHost) value.Value {
	if name, bound := s.flagMap[i]; bound && host != nil {
		return host.GetFlag(name)
	}
	if i < 0 || i >= len(s.slots) {
		return value.Undef
	}
	return s.slots[i]
}

// Set writes slot i, redirecting through host when i is flag-bound, and
// transparently extending the slot array (with Undefined padding) when i
// is beyond the current length, per spec.md §4.3's set_var_local semantics.
func (s *Store) Set(i int, v value.Value, host FlagHost) {
	if name, bound := s.flagMap[i]; bound && host != nil {
		host.SetFlag(name, v)
		return
	}
	if i < 0 {
		return
	}
	if i < len(s.slots) {
		s.slots[i] = v
		return
	}
	for len(s.slots) < i {
		s.slots = append(s.slots, value.Undef)
	}
	s.slots = append(s.slots, v)
}

// FreeLocal implements the `free_local` opcode. Freeing the tail slot
// truncates the store; freeing any other index leaves an Undefined gap
// rather than shifting subsequent slots (spec.md §9 design note 5 flags
// tombstoning-by-deletion as the bug to avoid: a map-backed store whose
// Count comes from map size would misalign every later slot index after a
// deletion). FreeLocal reports whether the free was a tail truncation, so
// the VM can log a warning when it wasn't.
func (s *Store) FreeLocal(i int) (truncated bool) {
	if i < 0 || i >= len(s.slots) {
		return false
	}
	delete(s.flagMap, i)
	if i == len(s.slots)-1 {
		s.slots = s.slots[:i]
		return true
	}
	s.slots[i] = value.Undef
	return false
}
