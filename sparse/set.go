// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse implements a sparse set of 24-bit keys: O(1) insert,
// O(1) membership test, and O(k) enumeration of the keys currently in
// the set, at the cost of one uint32 slot per possible key.
package sparse

// A Set is a sparse set of keys in [0, n), where n is fixed at
// construction. The zero value is not usable; use NewSet.
//
// The set does not need to be zeroed between uses: Reset only resets
// the logical size, leaving sparse's contents stale but harmless,
// because Contains double-checks dense[sparse[key]] == key.
type Set struct {
	dense  []uint32 // dense[0:n] holds the inserted keys, insertion order
	sparse []uint32 // sparse[key] holds an index into dense, valid only if < n
}

// NewSet returns a new Set holding keys in [0, max).
func NewSet(max uint32) *Set {
	return &Set{
		dense:  make([]uint32, 0, max),
		sparse: make([]uint32, max),
	}
}

// Add inserts x into the set. Adding an element already present is a
// no-op.
func (s *Set) Add(x uint32) {
	if s.Contains(x) {
		return
	}
	s.sparse[x] = uint32(len(s.dense))
	s.dense = append(s.dense, x)
}

// Contains reports whether x is in the set.
func (s *Set) Contains(x uint32) bool {
	i := s.sparse[x]
	return i < uint32(len(s.dense)) && s.dense[i] == x
}

// Len returns the number of elements currently in the set.
func (s *Set) Len() int {
	return len(s.dense)
}

// Dense returns the elements of the set, in insertion order. The
// returned slice is only valid until the next call to Add or Reset.
func (s *Set) Dense() []uint32 {
	return s.dense
}

// TakeDense returns the elements of the set, in insertion order, and
// resets the set to empty. Unlike Dense, the caller owns the returned
// slice: it survives subsequent Add calls, which allocate a fresh
// backing array.
func (s *Set) TakeDense() []uint32 {
	v := s.dense
	s.dense = nil
	return v
}

// Reset empties the set. It does not zero the sparse array; the size
// check in Contains makes that unnecessary.
func (s *Set) Reset() {
	s.dense = s.dense[:0]
}
