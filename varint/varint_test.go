// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varint

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 129, 1 << 14, 1<<21 - 1, 1 << 21, 1<<28 - 1, 0xFFFFFFFF}
	for _, v := range values {
		buf := AppendUvarint(nil, v)
		got, n := ReadUvarint(buf)
		if n != len(buf) {
			t.Errorf("ReadUvarint(%v): consumed %d, want %d", buf, n, len(buf))
		}
		if got != v {
			t.Errorf("ReadUvarint(%v) = %d, want %d", buf, got, v)
		}
	}
}

func TestWriteUvarint(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteUvarint(&buf, 300); err != nil {
		t.Fatal(err)
	}
	got, n := ReadUvarint(buf.Bytes())
	if n != buf.Len() || got != 300 {
		t.Errorf("got %d (n=%d), want 300", got, n)
	}
}

func TestReadUvarintShort(t *testing.T) {
	// A byte with the continuation bit set but nothing after it.
	_, n := ReadUvarint([]byte{0x80})
	if n != 0 {
		t.Errorf("ReadUvarint(truncated) n = %d, want 0", n)
	}
}

func TestMaxLen32(t *testing.T) {
	buf := AppendUvarint(nil, 0xFFFFFFFF)
	if len(buf) != MaxLen32 {
		t.Errorf("len(AppendUvarint(MaxUint32)) = %d, want %d", len(buf), MaxLen32)
	}
}
