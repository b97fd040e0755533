// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import "unsafe"

// postEntriesFromBytes reinterprets a byte slice written by
// postEntriesToBytes as a []postEntry, without copying. It is only
// ever applied to the writer's own spill files, so native byte order
// and alignment are guaranteed to match.
func postEntriesFromBytes(d []byte) []postEntry {
	if len(d) == 0 {
		return nil
	}
	return unsafe.Slice((*postEntry)(unsafe.Pointer(&d[0])), len(d)/8)
}

// postEntriesToBytes reinterprets a []postEntry as its raw bytes, for
// a single unbuffered write to a spill file.
func postEntriesToBytes(post []postEntry) []byte {
	if len(post) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&post[0])), len(post)*8)
}
