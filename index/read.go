// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

// Index format.
//
// An index stored on disk has the format:
//
//	"csearch index 1\n"
//	list of paths
//	list of names
//	list of posting lists
//	name index
//	posting list index
//	trailer
//
// The list of paths is a sorted sequence of NUL-terminated file or
// directory names. The index covers the file trees rooted at those
// paths. The list ends with an empty name ("\x00").
//
// The list of names is a sorted sequence of NUL-terminated file
// names. The initial entry in the list corresponds to file #0, the
// next to file #1, and so on. The list ends with an empty name
// ("\x00").
//
// The list of posting lists is a sequence of posting lists. Each
// posting list has the form:
//
//	trigram [3]
//	deltas [v]...
//
// The trigram gives the 3-byte trigram that this list describes. The
// delta list is a sequence of varint-encoded deltas between file IDs,
// starting from an implicit previous ID of -1, ending with a zero
// delta. For example the delta list [2,5,1,1,0] encodes the file ID
// list 1, 6, 7, 8. The list of posting lists ends with an entry whose
// trigram is "\xff\xff\xff" and whose delta list is a single zero.
//
// The indexes enable efficient random access to the lists. The name
// index is a sequence of 4-byte big-endian values listing the byte
// offset in the name list where each name begins, with one extra
// trailing entry pointing past the last name. The posting list index
// is a sequence of 11-byte index entries describing each successive
// posting list:
//
//	trigram [3]
//	file count - 1 [4]
//	offset, relative to the start of the posting data [4]
//
// Index entries are only written for non-empty posting lists, so
// finding the posting list for a specific trigram requires a binary
// search over the posting list index; in practice the majority of
// possible trigrams are never seen, so omitting the missing ones is a
// significant storage savings. The stored file count is one less
// than the true number of deltas, so that a reader decodes count+1
// entries; this compact form must be preserved byte for byte.
//
// The trailer has the form:
//
//	offset of path list [4]
//	offset of name list [4]
//	offset of posting lists [4]
//	offset of name index [4]
//	offset of posting list index [4]
//	"\ncsearch trailr\n"

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/trigrex/trix/varint"
)

const (
	magic        = "csearch index 1\n"
	trailerMagic = "\ncsearch trailr\n"

	// sentinelTrigram is the reserved end-of-directory marker; it
	// must never appear as a real trigram in any posting list.
	sentinelTrigram = 1<<24 - 1
	// noFile is the reserved "no more files" file-ID sentinel.
	noFile = 1<<32 - 1
)

// postEntrySize is the size in bytes of one posting-directory entry:
// a 3-byte trigram, a 4-byte count, and a 4-byte offset.
const postEntrySize = 3 + 4 + 4

// An Index is read-only, memory-mapped access to a trigram index
// built by a Writer (or by Merge).
type Index struct {
	data      mmapData
	pathData  uint32
	nameData  uint32
	postData  uint32
	nameIndex uint32
	postIndex uint32
	numName   int
	numPost   int
}

// Open memory-maps the index file at name and validates its header
// and trailer.
func Open(name string) (*Index, error) {
	mm, err := mmap(name)
	if err != nil {
		return nil, err
	}
	if len(mm.d) < len(magic)+5*4+len(trailerMagic) {
		return nil, corrupt("short file")
	}
	if string(mm.d[:len(magic)]) != magic {
		return nil, corrupt("bad magic")
	}
	if string(mm.d[len(mm.d)-len(trailerMagic):]) != trailerMagic {
		return nil, corrupt("bad trailer magic")
	}
	n := uint32(len(mm.d) - len(trailerMagic) - 5*4)
	ix := &Index{data: *mm}
	if ix.pathData, err = ix.uint32(n); err != nil {
		return nil, err
	}
	if ix.nameData, err = ix.uint32(n + 4); err != nil {
		return nil, err
	}
	if ix.postData, err = ix.uint32(n + 8); err != nil {
		return nil, err
	}
	if ix.nameIndex, err = ix.uint32(n + 12); err != nil {
		return nil, err
	}
	if ix.postIndex, err = ix.uint32(n + 16); err != nil {
		return nil, err
	}
	if ix.nameData > n || ix.postData > n || ix.nameIndex > n || ix.postIndex > n {
		return nil, corrupt("section offset out of range")
	}
	ix.numName = int((ix.postIndex-ix.nameIndex)/4) - 1
	ix.numPost = int((n-ix.postIndex)/postEntrySize) - 1 // exclude the terminator entry
	if ix.numName < 0 || ix.numPost < 0 {
		return nil, corrupt("negative section length")
	}
	return ix, nil
}

// slice returns the index data starting at the given byte offset. If
// n >= 0, the result is truncated to length n and an error is
// returned if fewer than n bytes remain.
func (ix *Index) slice(off uint32, n int) ([]byte, error) {
	o := int(off)
	if uint32(o) != off || o > len(ix.data.d) || (n >= 0 && o+n > len(ix.data.d)) {
		return nil, corrupt("offset out of range")
	}
	if n < 0 {
		return ix.data.d[o:], nil
	}
	return ix.data.d[o : o+n], nil
}

func (ix *Index) uint32(off uint32) (uint32, error) {
	d, err := ix.slice(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d), nil
}

// Paths returns the list of indexed paths recorded in the header.
func (ix *Index) Paths() ([]string, error) {
	off := ix.pathData
	var x []string
	for {
		s, err := ix.str(off)
		if err != nil {
			return nil, err
		}
		if len(s) == 0 {
			break
		}
		x = append(x, string(s))
		off += uint32(len(s) + 1)
	}
	return x, nil
}

// NameBytes returns the name of fileID as a byte slice into the
// mapped index data.
func (ix *Index) NameBytes(fileID uint32) ([]byte, error) {
	if fileID > uint32(ix.numName) {
		return nil, fmt.Errorf("file ID %d out of range", fileID)
	}
	off, err := ix.uint32(ix.nameIndex + 4*fileID)
	if err != nil {
		return nil, err
	}
	return ix.str(ix.nameData + off)
}

func (ix *Index) str(off uint32) ([]byte, error) {
	str, err := ix.slice(off, -1)
	if err != nil {
		return nil, err
	}
	i := bytes.IndexByte(str, 0)
	if i < 0 {
		return nil, corrupt("unterminated name")
	}
	return str[:i], nil
}

// Name returns the name of fileID as a string.
func (ix *Index) Name(fileID uint32) (string, error) {
	b, err := ix.NameBytes(fileID)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Names returns every file name in the index, in file-ID order.
func (ix *Index) Names() ([]string, error) {
	names := make([]string, 0, ix.numName)
	for i := 0; i < ix.numName; i++ {
		name, err := ix.Name(uint32(i))
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// NumNames returns the number of files recorded in the index.
func (ix *Index) NumNames() int {
	return ix.numName
}

// NumPosts returns the number of non-empty posting lists recorded in
// the index (excluding the terminator).
func (ix *Index) NumPosts() int {
	return ix.numPost
}

// listAt decodes the post-directory entry at byte offset off within
// the posting-index section.
func (ix *Index) listAt(off uint32) (trigram, count, offset uint32, err error) {
	d, err := ix.slice(ix.postIndex+off, postEntrySize)
	if err != nil {
		return 0, 0, 0, err
	}
	trigram = uint32(d[0])<<16 | uint32(d[1])<<8 | uint32(d[2])
	count = binary.BigEndian.Uint32(d[3:])
	offset = binary.BigEndian.Uint32(d[7:])
	return
}

// findList performs a binary search of the post directory for
// trigram, returning its (count, offset) or count == 0 if absent.
func (ix *Index) findList(trigram uint32) (count int, offset uint32, err error) {
	d, err := ix.slice(ix.postIndex, postEntrySize*ix.numPost)
	if err != nil {
		return 0, 0, err
	}
	i := sort.Search(ix.numPost, func(i int) bool {
		i *= postEntrySize
		t := uint32(d[i])<<16 | uint32(d[i+1])<<8 | uint32(d[i+2])
		return t >= trigram
	})
	if i >= ix.numPost {
		return 0, 0, nil
	}
	i *= postEntrySize
	t := uint32(d[i])<<16 | uint32(d[i+1])<<8 | uint32(d[i+2])
	if t != trigram {
		return 0, 0, nil
	}
	count = int(binary.BigEndian.Uint32(d[i+3:])) + 1
	offset = binary.BigEndian.Uint32(d[i+7:])
	return
}

// A PostReader decodes one posting list's delta stream, optionally
// intersecting inline against a sorted restrict set so that
// intersections can short-circuit during decoding rather than after.
type PostReader struct {
	ix       *Index
	count    int
	d        []byte
	fileID   uint32
	restrict []uint32
}

// initPostReader looks up trigram's directory entry and, if present,
// positions r to decode its deltas.
func (ix *Index) initPostReader(r *PostReader, trigram uint32, restrict []uint32) error {
	count, offset, err := ix.findList(trigram)
	if err != nil {
		return err
	}
	if count == 0 {
		r.count = 0
		return nil
	}
	d, err := ix.slice(ix.postData+offset+3, -1)
	if err != nil {
		return err
	}
	r.ix = ix
	r.count = count
	r.fileID = noFile
	r.d = d
	r.restrict = restrict
	return nil
}

func (r *PostReader) next() (bool, error) {
	for r.count > 0 {
		r.count--
		delta, n := varint.ReadUvarint(r.d)
		if n == 0 || delta == 0 {
			return false, corrupt("zero or unterminated delta in posting list")
		}
		r.d = r.d[n:]
		r.fileID += delta // wrap-add: first stored delta is fileID+1 from the implicit -1 start
		if r.restrict != nil {
			i := 0
			for i < len(r.restrict) && r.restrict[i] < r.fileID {
				i++
			}
			r.restrict = r.restrict[i:]
			if len(r.restrict) == 0 || r.restrict[0] != r.fileID {
				continue
			}
		}
		return true, nil
	}
	r.fileID = noFile
	return false, nil
}

// List decodes trigram's entire posting list, intersected inline
// against restrict if non-nil, and returns it as an ascending slice
// of file IDs.
func (ix *Index) List(trigram uint32, restrict []uint32) ([]uint32, error) {
	var r PostReader
	if err := ix.initPostReader(&r, trigram, restrict); err != nil {
		return nil, err
	}
	x := make([]uint32, 0, r.count)
	for {
		ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		x = append(x, r.fileID)
	}
	return x, nil
}

// And returns list ∩ List(trigram, restrict). It decodes trigram's
// posting list directly against list as the restrict set, so
// intersection can short-circuit during decoding.
func (ix *Index) And(list []uint32, trigram uint32, restrict []uint32) ([]uint32, error) {
	listRestrict := list
	if restrict != nil {
		listRestrict = intersectSorted(list, restrict)
	}
	var r PostReader
	if err := ix.initPostReader(&r, trigram, listRestrict); err != nil {
		return nil, err
	}
	x := list[:0]
	for {
		ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		x = append(x, r.fileID)
	}
	return x, nil
}

// Or returns list ∪ List(trigram, restrict).
func (ix *Index) Or(list []uint32, trigram uint32, restrict []uint32) ([]uint32, error) {
	l2, err := ix.List(trigram, restrict)
	if err != nil {
		return nil, err
	}
	return unionSorted(list, l2), nil
}

func intersectSorted(a, b []uint32) []uint32 {
	var x []uint32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			x = append(x, a[i])
			i++
			j++
		}
	}
	return x
}

func unionSorted(a, b []uint32) []uint32 {
	x := make([]uint32, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i] < b[j]):
			x = append(x, a[i])
			i++
		case i == len(a) || (j < len(b) && b[j] < a[i]):
			x = append(x, b[j])
			j++
		default:
			x = append(x, a[i])
			i++
			j++
		}
	}
	return x
}

// An mmapData is mmap'ed read-only data from a file.
type mmapData struct {
	f *os.File
	d []byte
}

// mmap maps the given file into memory.
func mmap(name string) (*mmapData, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return mmapFile(f)
}

// File returns the path to the default index file: $CSEARCHINDEX if
// set, else the nearest .csearchindex found by walking up from the
// working directory, else $HOME/.csearchindex
// ($USERPROFILE\.csearchindex on Windows).
func File() string {
	if f := os.Getenv("CSEARCHINDEX"); f != "" {
		return f
	}

	if cwd, err := os.Getwd(); err == nil {
		for {
			f := filepath.Join(cwd, ".csearchindex")
			if _, err := os.Lstat(f); err == nil {
				return f
			}
			parent := filepath.Dir(cwd)
			if parent == cwd {
				break
			}
			cwd = parent
		}
	}

	home := os.Getenv("HOME")
	if runtime.GOOS == "windows" && home == "" {
		home = os.Getenv("USERPROFILE")
	}
	return filepath.Clean(home + "/.csearchindex")
}
