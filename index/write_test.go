// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	f, err := os.CreateTemp("", "index-test")
	if err != nil {
		t.Fatal(err)
	}
	name := f.Name()
	t.Cleanup(func() { os.Remove(name) })
	w, err := Create(name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(w.cleanup)
	return w
}

// wantAddError calls Add and asserts it failed with exactly kind,
// leaving the Writer's file/post state untouched.
func wantAddError(t *testing.T, w *Writer, label, name, data string, kind AddErrorKind) {
	t.Helper()
	numName, numPost := w.numName, len(w.post)

	err := w.Add(name, strings.NewReader(data), int64(len(data)))
	if err == nil {
		t.Fatalf("%s: Add succeeded, want %v", label, kind)
	}
	var ae *AddError
	if !errors.As(err, &ae) {
		t.Fatalf("%s: err = %v, want *AddError", label, err)
	}
	if ae.Kind != kind {
		t.Fatalf("%s: Kind = %v, want %v", label, ae.Kind, kind)
	}
	if ae.IsFatal() {
		t.Fatalf("%s: %v reported as fatal, want non-fatal", label, kind)
	}
	if w.numName != numName {
		t.Fatalf("%s: numName changed from %d to %d; rejected file must not consume a file ID", label, numName, w.numName)
	}
	if len(w.post) != numPost {
		t.Fatalf("%s: post buffer changed from %d to %d entries; rejected file must not push trigrams", label, numPost, len(w.post))
	}
}

func TestAddFileNameErrorNUL(t *testing.T) {
	w := newTestWriter(t)
	wantAddError(t, w, "NUL in name", "bad\x00name", "hello", FileNameError)
}

func TestAddFileNameErrorInvalidUTF8(t *testing.T) {
	w := newTestWriter(t)
	// \xff is not a valid UTF-8 lead byte in any position.
	wantAddError(t, w, "invalid UTF-8 name", "bad\xffname", "hello", FileNameError)
}

func TestAddFileTooLong(t *testing.T) {
	w := newTestWriter(t)
	w.MaxFileLen = 5
	wantAddError(t, w, "oversized file", "big.txt", "0123456789", FileTooLong)
}

func TestAddBinaryDataPresent(t *testing.T) {
	w := newTestWriter(t)
	wantAddError(t, w, "NUL in content", "binary.dat", "ab\x00cd", BinaryDataPresent)
}

func TestAddLineTooLong(t *testing.T) {
	w := newTestWriter(t)
	w.MaxLineLen = 10
	wantAddError(t, w, "long line", "longline.txt", strings.Repeat("x", 20), LineTooLong)
}

func TestAddTooManyTrigrams(t *testing.T) {
	w := newTestWriter(t)
	w.MaxTrigramCount = 2
	// "abcdefgh" contains 6 distinct trigrams: abc, bcd, cde, def, efg, fgh.
	wantAddError(t, w, "too many trigrams", "many.txt", "abcdefgh", TooManyTrigrams)
}

// TestAddSucceedsAfterRejections checks that a rejected Add truly
// leaves the Writer's file-ID sequence untouched: the first
// successfully added file still gets file ID 0 even after several
// prior calls were rejected.
func TestAddSucceedsAfterRejections(t *testing.T) {
	w := newTestWriter(t)
	wantAddError(t, w, "NUL in name", "bad\x00name", "hello", FileNameError)
	wantAddError(t, w, "NUL in content", "binary.dat", "ab\x00cd", BinaryDataPresent)

	if err := w.Add("ok.txt", strings.NewReader("hello world"), int64(len("hello world"))); err != nil {
		t.Fatalf("Add(ok.txt): %v", err)
	}
	if w.numName != 1 {
		t.Fatalf("numName = %d, want 1 (only the accepted file should have consumed an ID)", w.numName)
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
