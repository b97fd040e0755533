// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "testing"

func TestBasic(t *testing.T) {
	s := NewSet(1 << 24)
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	s.Add(5)
	s.Add(5)
	s.Add(7)
	s.Add(3)
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if !s.Contains(5) || !s.Contains(7) || !s.Contains(3) {
		t.Fatal("missing inserted element")
	}
	if s.Contains(4) {
		t.Fatal("Contains(4) = true, want false")
	}
	want := []uint32{5, 7, 3}
	got := s.Dense()
	if len(got) != len(want) {
		t.Fatalf("Dense() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Dense() = %v, want %v", got, want)
		}
	}
}

func TestResetWithoutZeroing(t *testing.T) {
	s := NewSet(16)
	s.Add(1)
	s.Add(2)
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", s.Len())
	}
	if s.Contains(1) {
		t.Fatal("Contains(1) after Reset = true, want false")
	}
	s.Add(1)
	if !s.Contains(1) || s.Len() != 1 {
		t.Fatal("re-inserting after Reset failed")
	}
}

func TestTakeDense(t *testing.T) {
	s := NewSet(16)
	s.Add(9)
	s.Add(4)
	v := s.TakeDense()
	if len(v) != 2 || v[0] != 9 || v[1] != 4 {
		t.Fatalf("TakeDense() = %v", v)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after TakeDense = %d, want 0", s.Len())
	}
}
