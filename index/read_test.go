// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"os"
	"sort"
	"strings"
	"testing"
)

// buildIndex writes a fresh index for fileData under out, adding files
// in sorted-name order the way a corpus walk would present them.
func buildIndex(t *testing.T, out string, paths []string, fileData map[string]string) {
	t.Helper()
	w, err := Create(out)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w.AddPaths(paths)
	names := make([]string, 0, len(fileData))
	for name := range fileData {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data := fileData[name]
		if err := w.Add(name, strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

var postFiles = map[string]string{
	"file0": "",
	"file1": "Google Code Search",
	"file2": "Google Code Project Hosting",
	"file3": "Google Web Search",
}

func tri(x, y, z byte) uint32 {
	return uint32(x)<<16 | uint32(y)<<8 | uint32(z)
}

func equalList(x, y []uint32) bool {
	if len(x) != len(y) {
		return false
	}
	for i, xi := range x {
		if xi != y[i] {
			return false
		}
	}
	return true
}

func TestTrivialPosting(t *testing.T) {
	f, err := os.CreateTemp("", "index-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	out := f.Name()
	buildIndex(t, out, nil, postFiles)
	ix, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}

	checkPosting := func(label string, want []uint32) func([]uint32, error) {
		return func(got []uint32, err error) {
			if err != nil {
				t.Errorf("%s: %v", label, err)
			} else if !equalList(got, want) {
				t.Errorf("%s = %v, want %v", label, got, want)
			}
		}
	}

	checkPosting("List(Sea)", []uint32{1, 3})(ix.List(tri('S', 'e', 'a'), nil))
	checkPosting("List(Goo)", []uint32{1, 2, 3})(ix.List(tri('G', 'o', 'o'), nil))
	checkPosting("And(Sea,Goo)", []uint32{1, 3})(ix.And([]uint32{1, 3}, tri('G', 'o', 'o'), nil))
	checkPosting("And(Goo,Sea)", []uint32{1, 3})(ix.And([]uint32{1, 2, 3}, tri('S', 'e', 'a'), nil))
	checkPosting("Or(Sea,Goo)", []uint32{1, 2, 3})(ix.Or([]uint32{1, 3}, tri('G', 'o', 'o'), nil))
	checkPosting("Or(Goo,Sea)", []uint32{1, 2, 3})(ix.Or([]uint32{1, 2, 3}, tri('S', 'e', 'a'), nil))
}

func TestListRestrict(t *testing.T) {
	f, err := os.CreateTemp("", "index-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	out := f.Name()
	buildIndex(t, out, nil, postFiles)
	ix, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ix.List(tri('G', 'o', 'o'), []uint32{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{2, 3}; !equalList(got, want) {
		t.Errorf("List(Goo, {2,3}) = %v, want %v", got, want)
	}
}

func TestEmptyIndex(t *testing.T) {
	f, err := os.CreateTemp("", "index-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	out := f.Name()
	buildIndex(t, out, nil, nil)
	ix, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if ix.NumNames() != 0 {
		t.Errorf("NumNames() = %d, want 0", ix.NumNames())
	}
	if ix.NumPosts() != 0 {
		t.Errorf("NumPosts() = %d, want 0", ix.NumPosts())
	}
	got, err := ix.List(tri('x', 'y', 'z'), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("List on empty index = %v, want empty", got)
	}
}

func TestNamesRoundTrip(t *testing.T) {
	f, err := os.CreateTemp("", "index-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	out := f.Name()
	buildIndex(t, out, []string{"/src"}, postFiles)
	ix, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}

	paths, err := ix.Paths()
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(paths, []string{"/src"}) {
		t.Errorf("Paths() = %v, want [/src]", paths)
	}

	names, err := ix.Names()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"file0", "file1", "file2", "file3"}
	if !equalStrings(names, want) {
		t.Errorf("Names() = %v, want %v", names, want)
	}
	for i, want := range want {
		got, err := ix.Name(uint32(i))
		if err != nil {
			t.Errorf("Name(%d): %v", i, err)
			continue
		}
		if got != want {
			t.Errorf("Name(%d) = %s, want %s", i, got, want)
		}
	}
}

func equalStrings(x, y []string) bool {
	if len(x) != len(y) {
		return false
	}
	for i, xi := range x {
		if xi != y[i] {
			return false
		}
	}
	return true
}

func TestOpenRejectsGarbage(t *testing.T) {
	f, err := os.CreateTemp("", "index-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if err := os.WriteFile(f.Name(), []byte("not an index"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(f.Name()); err == nil {
		t.Fatal("Open of garbage file succeeded")
	}
}
