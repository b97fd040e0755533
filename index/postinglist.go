// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

// A postPacker partitions a sorted stream of post entries —
// possibly containing duplicate (trigram, fileID) pairs — into
// maximal runs of equal trigram. It is a peekable take-while
// adaptor: HasList latches onto the next run and its trigram, and
// NextID must be called until it reports exhaustion before HasList
// is called again.
//
// Whether external runs can ever actually produce a duplicate
// (trigram, fileID) pair at the merge point is unclear (see
// DESIGN.md); NextID collapses them defensively rather than treating
// them as corruption, since a silently-dropped duplicate is always
// safe and a spurious zero delta would otherwise corrupt the output.
type postPacker struct {
	next    func() postEntry
	cur     postEntry
	trigram uint32
}

// newPostPacker wraps a merged, non-decreasing sequence of post
// entries. next must return entries with trigram() == postEndTrigram
// forever after the sequence is exhausted, matching postHeap.next.
func newPostPacker(next func() postEntry) *postPacker {
	p := &postPacker{next: next}
	p.cur = next()
	return p
}

// HasList reports whether a posting list remains to be drained, and
// if so latches its trigram onto Trigram.
func (p *postPacker) HasList() bool {
	if p.cur.trigram() == postEndTrigram {
		return false
	}
	p.trigram = p.cur.trigram()
	return true
}

// Trigram returns the trigram of the run currently being drained.
func (p *postPacker) Trigram() uint32 {
	return p.trigram
}

// NextID drains the next file ID of the current run, collapsing any
// duplicates, and reports whether one was available.
func (p *postPacker) NextID() (uint32, bool) {
	if p.cur.trigram() != p.trigram {
		return 0, false
	}
	id := p.cur.fileID()
	for {
		p.cur = p.next()
		if p.cur.trigram() != p.trigram || p.cur.fileID() != id {
			break
		}
	}
	return id, true
}
