// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"errors"
	"fmt"

	"github.com/trigrex/trix/trigram"
)

// AddErrorKind classifies why Writer.Add rejected a single file. All
// kinds other than IOError are per-file and non-fatal: the caller
// should skip the file and continue adding the rest of the corpus.
type AddErrorKind int

const (
	// IOError wraps an error returned while reading the file or
	// writing to the index's temporary files. Unlike the other
	// kinds, it is fatal: the Writer's state after an IOError is not
	// safe to continue using.
	IOError AddErrorKind = iota
	// FileNameError indicates the file's name is not valid UTF-8 or
	// contains a NUL byte.
	FileNameError
	// FileTooLong indicates the file is larger than Writer.MaxFileLen.
	FileTooLong
	// LineTooLong indicates a line exceeded Writer.MaxLineLen.
	LineTooLong
	// TooManyTrigrams indicates the file contains more than
	// Writer.MaxTrigramCount distinct trigrams.
	TooManyTrigrams
	// BinaryDataPresent indicates the file contains a NUL byte.
	BinaryDataPresent
	// HighInvalidUtf8Ratio indicates too high a fraction of the
	// file's bytes do not belong to a valid UTF-8 encoding.
	HighInvalidUtf8Ratio
)

func (k AddErrorKind) String() string {
	switch k {
	case IOError:
		return "I/O error"
	case FileNameError:
		return "invalid file name"
	case FileTooLong:
		return "file too long"
	case LineTooLong:
		return "line too long"
	case TooManyTrigrams:
		return "too many trigrams"
	case BinaryDataPresent:
		return "binary data present"
	case HighInvalidUtf8Ratio:
		return "high invalid UTF-8 ratio"
	default:
		return "unknown index error"
	}
}

// AddError reports why Writer.Add rejected a file. Every kind except
// IOError is safe to ignore and continue indexing the rest of the
// corpus; IsFatal reports which case applies.
type AddError struct {
	Kind AddErrorKind
	Name string
	err  error
}

func (e *AddError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Kind)
}

func (e *AddError) Unwrap() error { return e.err }

// IsFatal reports whether e leaves the Writer unsafe to use further.
func (e *AddError) IsFatal() bool { return e.Kind == IOError }

func newAddError(kind AddErrorKind, name string, err error) *AddError {
	return &AddError{Kind: kind, Name: name, err: err}
}

// fromTrigramError translates a trigram.Error, raised while scanning
// a file's bytes, into the equivalent AddError.
func fromTrigramError(name string, err error) *AddError {
	var te *trigram.Error
	if errors.As(err, &te) {
		switch te.Kind {
		case trigram.LineTooLong:
			return newAddError(LineTooLong, name, err)
		case trigram.BinaryDataPresent:
			return newAddError(BinaryDataPresent, name, err)
		case trigram.HighInvalidUtf8Ratio:
			return newAddError(HighInvalidUtf8Ratio, name, err)
		}
	}
	return newAddError(IOError, name, err)
}

// corrupt reports on-disk corruption discovered while reading an
// index: a malformed trailer, an out-of-range section offset, or a
// posting list that violates the strictly-positive-delta invariant.
func corrupt(reason string) error {
	return fmt.Errorf("corrupt index (%s): remove %s and reindex", reason, File())
}
