// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

// Index writing. See read.go for details of the on-disk format.
//
// It would suffice to make a single large list of (trigram, file#)
// pairs while processing the files one at a time, sort that list by
// trigram, and then create the posting lists from subsequences of the
// list. However, we do not assume the entire index fits in memory.
// Instead, we sort and flush the list to a new temporary file each
// time it reaches its maximum in-memory size, and then at the end we
// create the final posting lists by merging the temporary files as we
// read them back in, via postHeap and postPacker.

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/trigrex/trix/sparse"
	"github.com/trigrex/trix/trigram"
)

// Default resource caps, overridable per Writer before the first Add.
const (
	DefaultMaxFileLen      = 1 << 30
	DefaultMaxLineLen      = 2000
	DefaultMaxTrigramCount = 30000
	DefaultMaxUTF8Invalid  = 0.1

	// npost is the number of post entries (8 bytes each) buffered in
	// memory before a flush: 64 MiB worth.
	npost = 64 << 20 / 8
)

// A Writer builds an on-disk trigram index from a corpus of files, one
// Add (or AddFile) call at a time, finished with a single Flush. A
// Writer is single-use: once Flush returns, or any Add returns a fatal
// (IsFatal) error, it must be discarded.
type Writer struct {
	// LogSkip logs each file skipped because its contents failed a
	// trigram-scan check or had too many distinct trigrams. Files
	// rejected for their name or size are returned without logging.
	LogSkip bool
	// Verbose logs per-file and summary progress to the standard logger.
	Verbose bool

	// MaxFileLen rejects any file larger than this many bytes.
	MaxFileLen int64
	// MaxLineLen rejects any file with a line longer than this.
	MaxLineLen int64
	// MaxTrigramCount rejects any file with more distinct trigrams
	// than this, a proxy for "probably not text".
	MaxTrigramCount int
	// MaxUTF8Invalid is the maximum fraction of a file's bytes that may
	// fail UTF-8 validation before the file is rejected outright.
	MaxUTF8Invalid float64

	trigram *sparse.Set // trigrams seen so far in the file currently being added

	paths []string

	nameData  *bufWriter // temp file: NUL-terminated names, in file-ID order
	nameIndex *bufWriter // temp file: name offsets
	numName   int

	bytesWritten int64

	post      []postEntry // buffered (trigram, fileID) pairs awaiting a flush
	postFiles []*os.File  // flushed, sorted runs merged at Flush time
	postIndex *bufWriter  // temp file: posting directory entries

	main *bufWriter // the target index file
	done bool
}

// Create returns a new Writer that will write the completed index to
// file once Flush is called.
func Create(file string) (*Writer, error) {
	w := &Writer{
		MaxFileLen:      DefaultMaxFileLen,
		MaxLineLen:      DefaultMaxLineLen,
		MaxTrigramCount: DefaultMaxTrigramCount,
		MaxUTF8Invalid:  DefaultMaxUTF8Invalid,
		trigram:         sparse.NewSet(1 << 24),
		post:            make([]postEntry, 0, npost),
	}
	var err error
	if w.nameData, err = bufCreate(""); err != nil {
		return nil, err
	}
	if w.nameIndex, err = bufCreate(""); err != nil {
		return nil, err
	}
	if w.postIndex, err = bufCreate(""); err != nil {
		return nil, err
	}
	if w.main, err = bufCreate(file); err != nil {
		return nil, err
	}
	return w, nil
}

// AddPaths records the given top-level corpus paths in the index
// header. It does not itself walk those paths; see the walk package
// for a gitignore-aware walker that feeds AddFile.
func (w *Writer) AddPaths(paths []string) {
	w.paths = append(w.paths, paths...)
}

// AddFile opens name and indexes its contents under that name.
func (w *Writer) AddFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return newAddError(IOError, name, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return newAddError(IOError, name, err)
	}
	return w.Add(name, f, info.Size())
}

// Add indexes the size bytes of content read from r, recording it in
// the index under name. Every AddErrorKind other than IOError is
// non-fatal: the caller should skip the file and may continue calling
// Add on the same Writer.
func (w *Writer) Add(name string, r io.Reader, size int64) error {
	if w.done {
		panic("index: Add called after Flush")
	}
	if !utf8.ValidString(name) {
		return newAddError(FileNameError, name, fmt.Errorf("file name is not valid UTF-8"))
	}
	if strings.IndexByte(name, 0) >= 0 {
		return newAddError(FileNameError, name, fmt.Errorf("file name contains NUL byte"))
	}
	if size > w.MaxFileLen {
		return newAddError(FileTooLong, name, fmt.Errorf("%d > %d", size, w.MaxFileLen))
	}

	w.trigram.Reset()
	maxInvalid := int64(float64(size) * w.MaxUTF8Invalid)
	t := trigram.NewReader(r, maxInvalid, w.MaxLineLen)
	for t.Next() {
		w.trigram.Add(t.Trigram())
	}
	if err := t.Err(); err != nil {
		e := fromTrigramError(name, err)
		if w.LogSkip {
			log.Printf("skip %s: %v", name, e)
		}
		return e
	}
	if w.trigram.Len() > w.MaxTrigramCount {
		e := newAddError(TooManyTrigrams, name, fmt.Errorf("%d distinct trigrams", w.trigram.Len()))
		if w.LogSkip {
			log.Printf("skip %s: %v", name, e)
		}
		return e
	}

	w.bytesWritten += size
	if w.Verbose {
		log.Printf("%d %d %s", size, w.trigram.Len(), name)
	}

	fileID, err := w.addName(name)
	if err != nil {
		return newAddError(IOError, name, err)
	}
	if err := w.pushTrigrams(fileID, w.trigram.Dense()); err != nil {
		return newAddError(IOError, name, err)
	}
	return nil
}

// pushTrigrams appends one post entry per trigram to the in-memory
// buffer, spilling it to a sorted temporary run whenever it fills.
func (w *Writer) pushTrigrams(fileID uint32, trigrams []uint32) error {
	for _, tg := range trigrams {
		if len(w.post) >= cap(w.post) {
			if err := w.flushPost(); err != nil {
				return err
			}
		}
		w.post = append(w.post, makePostEntry(tg, fileID))
	}
	return nil
}

// addName appends name to the name-data section and its offset to the
// name-index section, returning the assigned file ID.
func (w *Writer) addName(name string) (uint32, error) {
	if err := w.nameIndex.writeUint32(w.nameData.offset()); err != nil {
		return 0, err
	}
	if err := w.nameData.writeString(name); err != nil {
		return 0, err
	}
	if err := w.nameData.writeByte(0); err != nil {
		return 0, err
	}
	id := w.numName
	w.numName++
	return uint32(id), nil
}

// flushPost sorts the current post buffer by ascending (trigram,
// fileID) and spills it to a temporary file, to be merged back in
// along with every other run at Flush time.
func (w *Writer) flushPost() error {
	f, err := os.CreateTemp("", "trix-post")
	if err != nil {
		return err
	}
	sortPost(w.post)
	if w.Verbose {
		log.Printf("flush %d entries to %s", len(w.post), f.Name())
	}
	data := postEntriesToBytes(w.post)
	if n, err := f.Write(data); err != nil {
		return err
	} else if n < len(data) {
		return fmt.Errorf("short write spilling to %s", f.Name())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	w.post = w.post[:0]
	w.postFiles = append(w.postFiles, f)
	return nil
}

// Flush finalizes the index: it emits the path list, copies the name
// data, merges every spilled and in-memory post entry into posting
// lists, copies the name and posting indexes, and writes the trailer.
// The Writer's temporary files are removed before Flush returns. The
// Writer must not be used again afterward.
func (w *Writer) Flush() error {
	if w.done {
		panic("index: Flush called twice")
	}
	w.done = true
	defer w.cleanup()

	// The name list, like the path list, ends with an empty entry.
	if _, err := w.addName(""); err != nil {
		return err
	}

	var off [5]uint32
	if err := w.main.writeString(magic); err != nil {
		return err
	}
	off[0] = w.main.offset()
	for _, p := range w.paths {
		if err := w.main.writeString(p); err != nil {
			return err
		}
		if err := w.main.writeByte(0); err != nil {
			return err
		}
	}
	if err := w.main.writeByte(0); err != nil {
		return err
	}
	off[1] = w.main.offset()
	if err := copyFile(w.main, w.nameData); err != nil {
		return err
	}
	off[2] = w.main.offset()
	if err := w.mergePost(); err != nil {
		return err
	}
	off[3] = w.main.offset()
	if err := copyFile(w.main, w.nameIndex); err != nil {
		return err
	}
	off[4] = w.main.offset()
	if err := copyFile(w.main, w.postIndex); err != nil {
		return err
	}
	for _, v := range off {
		if err := w.main.writeUint32(v); err != nil {
			return err
		}
	}
	if err := w.main.writeString(trailerMagic); err != nil {
		return err
	}
	if w.Verbose {
		log.Printf("%d data bytes, %d index bytes", w.bytesWritten, w.main.offset())
	}
	return w.main.flush()
}

// mergePost drains every spilled run plus the final in-memory buffer
// through a postHeap and postPacker, writing each posting list's
// trigram and delta-encoded file IDs to w.main and its directory entry
// to w.postIndex, finishing with the terminator entry that marks
// end-of-directory.
func (w *Writer) mergePost() error {
	var h postHeap
	if w.Verbose {
		log.Printf("merge %d files + mem", len(w.postFiles))
	}
	for _, f := range w.postFiles {
		if err := h.addFile(f); err != nil {
			return err
		}
	}
	sortPost(w.post)
	h.addMem(w.post)

	base := w.main.offset()
	packer := newPostPacker(h.next)
	for packer.HasList() {
		tg := packer.Trigram()
		relOffset := w.main.offset() - base
		if err := w.main.writeTrigram(tg); err != nil {
			return err
		}
		prev := uint32(noFile)
		var count uint32
		for {
			id, ok := packer.NextID()
			if !ok {
				break
			}
			if err := w.main.writeUvarint(id - prev); err != nil {
				return err
			}
			prev = id
			count++
		}
		if err := w.main.writeUvarint(0); err != nil {
			return err
		}
		if err := w.postIndex.writeTrigram(tg); err != nil {
			return err
		}
		if err := w.postIndex.writeUint32(count - 1); err != nil {
			return err
		}
		if err := w.postIndex.writeUint32(relOffset); err != nil {
			return err
		}
	}

	relOffset := w.main.offset() - base
	if err := w.main.writeTrigram(sentinelTrigram); err != nil {
		return err
	}
	if err := w.main.writeUvarint(0); err != nil {
		return err
	}
	if err := w.postIndex.writeTrigram(sentinelTrigram); err != nil {
		return err
	}
	if err := w.postIndex.writeUint32(0); err != nil {
		return err
	}
	return w.postIndex.writeUint32(relOffset)
}

func (w *Writer) cleanup() {
	os.Remove(w.nameData.name)
	os.Remove(w.nameIndex.name)
	os.Remove(w.postIndex.name)
	for _, f := range w.postFiles {
		name := f.Name()
		f.Close()
		os.Remove(name)
	}
}
