// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/trigrex/trix/varint"
)

// bufSize is the minimum buffered-writer capacity used for every
// output and scratch file the writer touches.
const bufSize = 256 << 10

// A bufWriter is a closeable, manually-buffered writer: a thin
// replacement for bufio.Writer that also tracks its own absolute
// offset (needed for section boundaries) and exposes a finish method
// that hands back a read-ready *os.File once flushed.
type bufWriter struct {
	name string
	file *os.File
	buf  []byte
}

// bufCreate creates a new file with the given name and returns a
// bufWriter wrapping it. If name is empty, bufCreate uses a temporary
// file, the way the index writer does for its scratch sections.
func bufCreate(name string) (*bufWriter, error) {
	var (
		f   *os.File
		err error
	)
	if name != "" {
		f, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	} else {
		f, err = ioutil.TempFile("", "trix-index")
	}
	if err != nil {
		return nil, err
	}
	return &bufWriter{name: f.Name(), file: f, buf: make([]byte, 0, bufSize)}, nil
}

func (b *bufWriter) write(x []byte) error {
	n := cap(b.buf) - len(b.buf)
	if len(x) > n {
		if err := b.flush(); err != nil {
			return err
		}
		if len(x) >= cap(b.buf) {
			if _, err := b.file.Write(x); err != nil {
				return fmt.Errorf("writing %s: %w", b.name, err)
			}
			return nil
		}
	}
	b.buf = append(b.buf, x...)
	return nil
}

func (b *bufWriter) writeByte(x byte) error {
	if len(b.buf) >= cap(b.buf) {
		if err := b.flush(); err != nil {
			return err
		}
	}
	b.buf = append(b.buf, x)
	return nil
}

func (b *bufWriter) writeString(s string) error {
	return b.write([]byte(s))
}

// offset returns the current absolute write offset.
func (b *bufWriter) offset() uint32 {
	off, _ := b.file.Seek(0, os.SEEK_CUR)
	off += int64(len(b.buf))
	if int64(uint32(off)) != off {
		panic("index is larger than 4GB")
	}
	return uint32(off)
}

func (b *bufWriter) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	_, err := b.file.Write(b.buf)
	if err != nil {
		return fmt.Errorf("writing %s: %w", b.name, err)
	}
	b.buf = b.buf[:0]
	return nil
}

// finish flushes b and returns its file, seeked back to the start so
// it can be read back.
func (b *bufWriter) finish() (*os.File, error) {
	if err := b.flush(); err != nil {
		return nil, err
	}
	if _, err := b.file.Seek(0, os.SEEK_SET); err != nil {
		return nil, err
	}
	return b.file, nil
}

func (b *bufWriter) writeTrigram(t uint32) error {
	if cap(b.buf)-len(b.buf) < 3 {
		if err := b.flush(); err != nil {
			return err
		}
	}
	b.buf = append(b.buf, byte(t>>16), byte(t>>8), byte(t))
	return nil
}

func (b *bufWriter) writeUint32(x uint32) error {
	if cap(b.buf)-len(b.buf) < 4 {
		if err := b.flush(); err != nil {
			return err
		}
	}
	b.buf = append(b.buf, byte(x>>24), byte(x>>16), byte(x>>8), byte(x))
	return nil
}

func (b *bufWriter) writeUvarint(x uint32) error {
	if cap(b.buf)-len(b.buf) < varint.MaxLen32 {
		if err := b.flush(); err != nil {
			return err
		}
	}
	b.buf = varint.AppendUvarint(b.buf, x)
	return nil
}

// copyFile copies all of src's contents (flushed first) onto the end
// of dst.
func copyFile(dst, src *bufWriter) error {
	if err := dst.flush(); err != nil {
		return err
	}
	f, err := src.finish()
	if err != nil {
		return err
	}
	return copyAll(dst, f)
}

func copyAll(dst *bufWriter, src *os.File) error {
	buf := make([]byte, bufSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := dst.write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("copying %s to %s: %w", src.Name(), dst.name, err)
		}
	}
}
