// Package wirebuf implements the L0 layer of the mDNS core: a
// fixed-capacity ordered sequence type and a positional byte writer with a
// name-compression memo, grounded on the teacher repo's reserve/back-patch
// RDLENGTH pattern in internal/message/builder.go but generalized into an
// explicit two-phase API any record codec can reuse.
package wirebuf

import "github.com/mtlynch/mdnscore/internal/errors"

// Seq is a fixed-capacity ordered sequence of T. The core's bounded
// containers (QLEN questions, ALEN answers, SLEN services and local IPs, LK
// compression-memo entries) are all Seqs. Label segments are not: a label
// holds them in a plain slice, bounded only by the name-length check.
//
// Push and InsertAt fail when the sequence is full; ExtendFromSlice
// silently truncates at capacity, matching spec.md §4.1's distinction
// between the two.
type Seq[T any] struct {
	name     string
	capacity int
	items    []T
}

// NewSeq creates an empty sequence with the given fixed capacity. name is
// used only to label CapacityError when the sequence overflows.
func NewSeq[T any](name string, capacity int) *Seq[T] {
	return &Seq[T]{name: name, capacity: capacity, items: make([]T, 0, capacity)}
}

// Len returns the number of elements currently stored.
func (s *Seq[T]) Len() int { return len(s.items) }

// Cap returns the sequence's fixed capacity.
func (s *Seq[T]) Cap() int { return s.capacity }

// At returns the element at index i.
func (s *Seq[T]) At(i int) T { return s.items[i] }

// Set overwrites the element at index i.
func (s *Seq[T]) Set(i int, v T) { s.items[i] = v }

// All returns the underlying elements as a slice. Callers must not retain
// the slice past the sequence's next mutation.
func (s *Seq[T]) All() []T { return s.items }

// Push appends v, failing with a CapacityError if the sequence is full.
func (s *Seq[T]) Push(v T) error {
	if len(s.items) >= s.capacity {
		return &errors.CapacityError{Container: s.name, Capacity: s.capacity, Attempted: len(s.items) + 1}
	}
	s.items = append(s.items, v)
	return nil
}

// InsertAt inserts v at index i, shifting subsequent elements right. It
// fails with a CapacityError if the sequence is already full.
func (s *Seq[T]) InsertAt(i int, v T) error {
	if len(s.items) >= s.capacity {
		return &errors.CapacityError{Container: s.name, Capacity: s.capacity, Attempted: len(s.items) + 1}
	}
	s.items = append(s.items, v)
	copy(s.items[i+1:], s.items[i:len(s.items)-1])
	s.items[i] = v
	return nil
}

// ExtendFromSlice appends as many elements of vs as fit, silently
// truncating the rest. It returns the number of elements actually added.
func (s *Seq[T]) ExtendFromSlice(vs []T) int {
	room := s.capacity - len(s.items)
	if room <= 0 {
		return 0
	}
	if room > len(vs) {
		room = len(vs)
	}
	s.items = append(s.items, vs[:room]...)
	return room
}

// RetainFunc removes every element for which keep returns false, preserving order.
func (s *Seq[T]) RetainFunc(keep func(T) bool) {
	out := s.items[:0]
	for _, v := range s.items {
		if keep(v) {
			out = append(out, v)
		}
	}
	s.items = out
}
