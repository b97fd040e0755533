// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

// Merging indexes.
//
// To merge two indexes A and B (newer) into a combined index C:
//
// Load the path list from B and determine for each path the docID ranges
// that it will replace in A.
//
// Read A's and B's name lists together, merging them into C's name list.
// Discard the identified ranges from A during the merge. Also during the merge,
// record the mapping from A's docids to C's docids, and also the mapping from
// B's docids to C's docids. Both mappings can be summarized in a table like
//
//	10-14 map to 20-24
//	15-24 is deleted
//	25-34 maps to 40-49
//
// The number of ranges will be at most the combined number of paths.
// Also during the merge, write the name index to a temporary file as usual.
//
// Now merge the posting lists (this is why they begin with the trigram).
// During the merge, translate the docID numbers to the new C docID space.
// Also during the merge, write the posting list index to a temporary file as usual.
//
// Copy the name index and posting list index into C's index and write the trailer.
// Rename C's index onto the new index.

import (
	"os"
	"strings"

	"github.com/trigrex/trix/varint"
)

// An IDRange records that the half-open interval [Low, High) of one
// source index's file IDs maps to [New, New+High-Low) in the merged
// index's file-ID space.
type IDRange struct {
	Low, High, New uint32
}

// Merge creates a new index in the file dst that corresponds to
// merging the two indexes src1 and src2. If both src1 and src2 claim
// responsibility for a path, src2 is assumed to be newer and is given
// preference. It is a thin path-prefix-driven wrapper around opening
// both indexes, deriving their IDRange tables, and calling
// MergeIndexes.
func Merge(dst, src1, src2 string) error {
	ix1, err := Open(src1)
	if err != nil {
		return err
	}
	ix2, err := Open(src2)
	if err != nil {
		return err
	}
	map1, map2, err := shadowRanges(ix1, ix2)
	if err != nil {
		return err
	}
	return MergeIndexes(dst, ix1, map1, ix2, map2)
}

// shadowRanges walks ix1's and ix2's path lists together and returns
// the IDRange tables describing which of ix1's files are shadowed by
// a path that ix2 also claims, and where every surviving file lands
// in the merged ID space.
func shadowRanges(ix1, ix2 *Index) (map1, map2 []IDRange, err error) {
	paths2, err := ix2.Paths()
	if err != nil {
		return nil, nil, err
	}

	var i1, i2, new uint32
	for _, path := range paths2 {
		old := i1
		for i1 < uint32(ix1.numName) {
			name, err := ix1.Name(i1)
			if err != nil {
				return nil, nil, err
			}
			if name >= path {
				break
			}
			i1++
		}
		lo := i1
		limit := path[:len(path)-1] + string(path[len(path)-1]+1)
		for i1 < uint32(ix1.numName) {
			name, err := ix1.Name(i1)
			if err != nil {
				return nil, nil, err
			}
			if name >= limit {
				break
			}
			i1++
		}
		hi := i1

		if old < lo {
			map1 = append(map1, IDRange{old, lo, new})
			new += lo - old
		}

		// Because we are iterating over ix2's paths, there can't be
		// gaps, so this range must start at i2.
		if i2 < uint32(ix2.numName) {
			name, err := ix2.Name(i2)
			if err != nil {
				return nil, nil, err
			}
			if name < path {
				return nil, nil, corrupt("path list out of order during merge")
			}
		}
		lo = i2
		for i2 < uint32(ix2.numName) {
			name, err := ix2.Name(i2)
			if err != nil {
				return nil, nil, err
			}
			if name >= limit {
				break
			}
			i2++
		}
		hi = i2
		if lo < hi {
			map2 = append(map2, IDRange{lo, hi, new})
			new += hi - lo
		}
	}

	if i1 < uint32(ix1.numName) {
		map1 = append(map1, IDRange{i1, uint32(ix1.numName), new})
		new += uint32(ix1.numName) - i1
	}
	if i2 < uint32(ix2.numName) {
		return nil, nil, corrupt("path list did not cover every name during merge")
	}
	return map1, map2, nil
}

// MergeIndexes writes a new index to dst combining every file named in
// ix1 and ix2, remapped through map1 and map2 respectively. A file ID
// absent from its index's map (shadowed by a newer path) is dropped
// entirely. Both maps must be sorted by New and must partition
// [0, numName) of their index without gaps, other than intentionally
// shadowed ranges. This is the operation the original spec.md
// componentizes as the index merger; Merge derives map1 and map2 from
// the two indexes' path lists, but callers that already know the
// desired ID remapping (for example, a caller merging indexes that
// don't use filesystem paths as their unit of replacement) can call it
// directly.
func MergeIndexes(dst string, ix1 *Index, map1 []IDRange, ix2 *Index, map2 []IDRange) error {
	paths1, err := ix1.Paths()
	if err != nil {
		return err
	}
	paths2, err := ix2.Paths()
	if err != nil {
		return err
	}

	var numName uint32
	for _, r := range map1 {
		if hi := r.New + (r.High - r.Low); hi > numName {
			numName = hi
		}
	}
	for _, r := range map2 {
		if hi := r.New + (r.High - r.Low); hi > numName {
			numName = hi
		}
	}

	ix3, err := bufCreate(dst)
	if err != nil {
		return err
	}
	if err := ix3.writeString(magic); err != nil {
		return err
	}

	// Merged list of paths.
	pathData := ix3.offset()
	mi1 := 0
	mi2 := 0
	last := "\x00" // not a prefix of anything
	for mi1 < len(paths1) || mi2 < len(paths2) {
		var p string
		if mi2 >= len(paths2) || mi1 < len(paths1) && paths1[mi1] <= paths2[mi2] {
			p = paths1[mi1]
			mi1++
		} else {
			p = paths2[mi2]
			mi2++
		}
		if strings.HasPrefix(p, last) {
			continue
		}
		last = p
		if err := ix3.writeString(p); err != nil {
			return err
		}
		if err := ix3.writeByte('\x00'); err != nil {
			return err
		}
	}
	if err := ix3.writeByte('\x00'); err != nil {
		return err
	}

	// Merged list of names.
	nameData := ix3.offset()
	nameIndexFile, err := bufCreate("")
	if err != nil {
		return err
	}
	var new uint32
	mi1 = 0
	mi2 = 0
	for new < numName {
		switch {
		case mi1 < len(map1) && map1[mi1].New == new:
			for i := map1[mi1].Low; i < map1[mi1].High; i++ {
				name, err := ix1.Name(i)
				if err != nil {
					return err
				}
				if err := nameIndexFile.writeUint32(ix3.offset() - nameData); err != nil {
					return err
				}
				if err := ix3.writeString(name); err != nil {
					return err
				}
				if err := ix3.writeByte('\x00'); err != nil {
					return err
				}
				new++
			}
			mi1++
		case mi2 < len(map2) && map2[mi2].New == new:
			for i := map2[mi2].Low; i < map2[mi2].High; i++ {
				name, err := ix2.Name(i)
				if err != nil {
					return err
				}
				if err := nameIndexFile.writeUint32(ix3.offset() - nameData); err != nil {
					return err
				}
				if err := ix3.writeString(name); err != nil {
					return err
				}
				if err := ix3.writeByte('\x00'); err != nil {
					return err
				}
				new++
			}
			mi2++
		default:
			return corrupt("id map does not partition merged name space")
		}
	}
	if new*4 != nameIndexFile.offset() {
		return corrupt("id map length mismatch during merge")
	}
	// The name list ends with an empty name, as in Writer.Flush.
	if err := nameIndexFile.writeUint32(ix3.offset() - nameData); err != nil {
		return err
	}
	if err := ix3.writeByte('\x00'); err != nil {
		return err
	}

	// Merged list of posting lists.
	postData := ix3.offset()
	var r1 PostMapReader
	var r2 PostMapReader
	var w postDataWriter
	if err := r1.init(ix1, map1); err != nil {
		return err
	}
	if err := r2.init(ix2, map2); err != nil {
		return err
	}
	if err := w.init(ix3); err != nil {
		return err
	}
	for {
		switch {
		case r1.trigram < r2.trigram:
			w.trigram(r1.trigram)
			for {
				ok, err := r1.nextID()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				if err := w.fileID(r1.fileID); err != nil {
					return err
				}
			}
			if err := r1.nextTrigram(); err != nil {
				return err
			}
			if err := w.endTrigram(); err != nil {
				return err
			}
		case r2.trigram < r1.trigram:
			w.trigram(r2.trigram)
			for {
				ok, err := r2.nextID()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				if err := w.fileID(r2.fileID); err != nil {
					return err
				}
			}
			if err := r2.nextTrigram(); err != nil {
				return err
			}
			if err := w.endTrigram(); err != nil {
				return err
			}
		default:
			if r1.trigram == sentinelTrigram {
				goto done
			}
			w.trigram(r1.trigram)
			if _, err := r1.nextID(); err != nil {
				return err
			}
			if _, err := r2.nextID(); err != nil {
				return err
			}
			for r1.fileID != noFile || r2.fileID != noFile {
				switch {
				case r1.fileID < r2.fileID:
					if err := w.fileID(r1.fileID); err != nil {
						return err
					}
					if _, err := r1.nextID(); err != nil {
						return err
					}
				case r2.fileID < r1.fileID:
					if err := w.fileID(r2.fileID); err != nil {
						return err
					}
					if _, err := r2.nextID(); err != nil {
						return err
					}
				default:
					return corrupt("duplicate file ID for one trigram during merge")
				}
			}
			if err := r1.nextTrigram(); err != nil {
				return err
			}
			if err := r2.nextTrigram(); err != nil {
				return err
			}
			if err := w.endTrigram(); err != nil {
				return err
			}
		}
	}
done:
	if err := w.finish(); err != nil {
		return err
	}

	// Name index.
	nameIndex := ix3.offset()
	if err := copyFile(ix3, nameIndexFile); err != nil {
		return err
	}

	// Posting list index.
	postIndex := ix3.offset()
	if err := copyFile(ix3, w.postIndexFile); err != nil {
		return err
	}

	for _, v := range [...]uint32{pathData, nameData, postData, nameIndex, postIndex} {
		if err := ix3.writeUint32(v); err != nil {
			return err
		}
	}
	if err := ix3.writeString(trailerMagic); err != nil {
		return err
	}
	if err := ix3.flush(); err != nil {
		return err
	}

	os.Remove(nameIndexFile.name)
	os.Remove(w.postIndexFile.name)
	return nil
}

// A PostMapReader decodes one source index's posting lists in trigram
// order, remapping each file ID through an IDRange table and dropping
// IDs that fall in a gap (shadowed by the other index's newer paths).
type PostMapReader struct {
	ix      *Index
	idMap   []IDRange
	triNum  uint32
	trigram uint32
	count   uint32
	offset  uint32
	d       []byte
	oldID   uint32
	fileID  uint32
	i       int
}

func (r *PostMapReader) init(ix *Index, idMap []IDRange) error {
	r.ix = ix
	r.idMap = idMap
	r.trigram = sentinelTrigram
	return r.load()
}

func (r *PostMapReader) nextTrigram() error {
	r.triNum++
	return r.load()
}

func (r *PostMapReader) load() error {
	if r.triNum >= uint32(r.ix.numPost) {
		r.trigram = sentinelTrigram
		r.count = 0
		r.fileID = noFile
		return nil
	}
	var err error
	r.trigram, r.count, r.offset, err = r.ix.listAt(r.triNum * postEntrySize)
	if err != nil {
		return err
	}
	if r.trigram == sentinelTrigram {
		// The terminator entry's count is not count-1 encoded: it
		// always describes zero real entries.
		r.count = 0
		r.fileID = noFile
		return nil
	}
	r.count++ // undo the on-disk count-1 encoding
	r.d, err = r.ix.slice(r.ix.postData+r.offset+3, -1)
	r.oldID = noFile
	r.i = 0
	return err
}

func (r *PostMapReader) nextID() (bool, error) {
	for r.count > 0 {
		r.count--
		delta, n := varint.ReadUvarint(r.d)
		if n == 0 || delta == 0 {
			return false, corrupt("zero or unterminated delta in posting list during merge")
		}
		r.d = r.d[n:]
		r.oldID += delta
		for r.i < len(r.idMap) && r.idMap[r.i].High <= r.oldID {
			r.i++
		}
		if r.i >= len(r.idMap) {
			r.count = 0
			break
		}
		if r.oldID < r.idMap[r.i].Low {
			continue
		}
		r.fileID = r.idMap[r.i].New + r.oldID - r.idMap[r.i].Low
		return true, nil
	}

	r.fileID = noFile
	return false, nil
}

// A postDataWriter streams the merged posting-list output, writing
// each list's trigram and delta-encoded file IDs to out and its
// directory entry to postIndexFile, mirroring the layout Writer.
// mergePost produces.
type postDataWriter struct {
	out           *bufWriter
	postIndexFile *bufWriter
	base          uint32
	count, offset uint32
	last          uint32
	t             uint32
}

func (w *postDataWriter) init(out *bufWriter) error {
	b, err := bufCreate("")
	if err != nil {
		return err
	}
	w.out = out
	w.postIndexFile = b
	w.base = out.offset()
	return nil
}

func (w *postDataWriter) trigram(t uint32) {
	w.offset = w.out.offset()
	w.count = 0
	w.t = t
	w.last = noFile
}

func (w *postDataWriter) fileID(id uint32) error {
	if w.count == 0 {
		if err := w.out.writeTrigram(w.t); err != nil {
			return err
		}
	}
	if err := w.out.writeUvarint(id - w.last); err != nil {
		return err
	}
	w.last = id
	w.count++
	return nil
}

func (w *postDataWriter) endTrigram() error {
	if w.count == 0 {
		return nil
	}
	if err := w.out.writeUvarint(0); err != nil {
		return err
	}
	if err := w.postIndexFile.writeTrigram(w.t); err != nil {
		return err
	}
	if err := w.postIndexFile.writeUint32(w.count - 1); err != nil {
		return err
	}
	return w.postIndexFile.writeUint32(w.offset - w.base)
}

// finish appends the terminator posting-list entry that marks
// end-of-directory, matching what Writer.mergePost produces.
func (w *postDataWriter) finish() error {
	relOffset := w.out.offset() - w.base
	if err := w.out.writeTrigram(sentinelTrigram); err != nil {
		return err
	}
	if err := w.out.writeUvarint(0); err != nil {
		return err
	}
	if err := w.postIndexFile.writeTrigram(sentinelTrigram); err != nil {
		return err
	}
	if err := w.postIndexFile.writeUint32(0); err != nil {
		return err
	}
	return w.postIndexFile.writeUint32(relOffset)
}
