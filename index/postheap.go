// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import "os"

// postEndTrigram is the sentinel trigram (all 24 bits set) that marks
// end-of-directory; a postHeap reports it once every run is drained.
const postEndTrigram = 1<<24 - 1

// A postChunk is one sorted run of post entries, either an in-memory
// vector (a flushed buffer read back via mmap, or the writer's final
// in-progress buffer) or — equivalently, once addFile mmaps it — a
// file-backed one. Either way it is just a []postEntry slice by the
// time it reaches the heap.
type postChunk struct {
	e postEntry   // current head entry
	m []postEntry // remaining entries after e
}

// A postHeap is a min-heap (priority queue) of postChunks, used to
// perform the k-way merge of sorted runs spilled during indexing.
// All runs must be added with addMem/addFile before the first call to
// next.
type postHeap struct {
	ch []*postChunk
}

// addMem adds an in-memory sorted run to the heap.
func (h *postHeap) addMem(x []postEntry) {
	h.add(&postChunk{m: x})
}

// addFile mmaps a spilled run and adds it to the heap. The run was
// written as a raw array of postEntry values in native byte order by
// Writer.flushPost, so it is read back by reinterpreting the mapped
// bytes rather than by decoding a portable format.
func (h *postHeap) addFile(f *os.File) error {
	data, err := mmapFile(f)
	if err != nil {
		return err
	}
	h.addMem(postEntriesFromBytes(data.d))
	return nil
}

// add adds a chunk to the heap. All adds must happen before the
// first call to next.
func (h *postHeap) add(ch *postChunk) {
	if len(ch.m) == 0 {
		return
	}
	ch.e, ch.m = ch.m[0], ch.m[1:]
	h.push(ch)
}

// empty reports whether the heap has any runs left.
func (h *postHeap) empty() bool {
	return len(h.ch) == 0
}

// next returns the next entry in global sorted order across every
// added run. Once every run is drained it returns a postEntry whose
// trigram is postEndTrigram forever after.
func (h *postHeap) next() postEntry {
	if len(h.ch) == 0 {
		return makePostEntry(postEndTrigram, 0)
	}
	ch := h.ch[0]
	e := ch.e
	if len(ch.m) == 0 {
		h.pop()
	} else {
		ch.e, ch.m = ch.m[0], ch.m[1:]
		h.siftDown(0)
	}
	return e
}

func (h *postHeap) pop() *postChunk {
	ch := h.ch[0]
	n := len(h.ch) - 1
	h.ch[0] = h.ch[n]
	h.ch = h.ch[:n]
	if n > 1 {
		h.siftDown(0)
	}
	return ch
}

func (h *postHeap) push(ch *postChunk) {
	n := len(h.ch)
	h.ch = append(h.ch, ch)
	if len(h.ch) >= 2 {
		h.siftUp(n)
	}
}

func (h *postHeap) siftDown(i int) {
	ch := h.ch
	for {
		j1 := 2*i + 1
		if j1 >= len(ch) {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < len(ch) && ch[j1].e >= ch[j2].e {
			j = j2
		}
		if ch[i].e <= ch[j].e {
			break
		}
		ch[i], ch[j] = ch[j], ch[i]
		i = j
	}
}

func (h *postHeap) siftUp(j int) {
	ch := h.ch
	for {
		i := (j - 1) / 2
		if i == j || ch[i].e <= ch[j].e {
			break
		}
		ch[i], ch[j] = ch[j], ch[i]
		j = i
	}
}
