// Package storage implements the page file store (PFS): a fixed-size-page
// file format with random access read/write and append, addressed by a
// zero-based page number and fronted by a sequential cursor for
// convenience traversal.
package storage

import (
	"errors"
	"fmt"

	perrors "github.com/pkg/errors"
)

// ReturnCode is the return-code taxonomy surfaced to callers. Every non-nil
// error returned by this package carries one of these via Code(err).
type ReturnCode int

const (
	// OK is never actually returned as an error - it is what Code(nil)
	// reports.
	OK ReturnCode = iota
	// FileNotFound: path missing, cannot be opened, or a nil name was passed.
	FileNotFound
	// FileHandleNotInit: operation invoked on an uninitialised/closed handle.
	FileHandleNotInit
	// ReadNonExistingPage: page index out of range.
	ReadNonExistingPage
	// WriteFailed: any write, allocation, or flush failure.
	WriteFailed
)

func (c ReturnCode) String() string {
	switch c {
	case OK:
		return "OK"
	case FileNotFound:
		return "FILE_NOT_FOUND"
	case FileHandleNotInit:
		return "FILE_HANDLE_NOT_INIT"
	case ReadNonExistingPage:
		return "READ_NON_EXISTING_PAGE"
	case WriteFailed:
		return "WRITE_FAILED"
	default:
		return "UNKNOWN_CODE"
	}
}

// storeError pairs a taxonomy code with the wrapped cause so diagnostics
// (path, page number) travel with the error instead of being discarded.
type storeError struct {
	code ReturnCode
	err  error
}

func (e *storeError) Error() string {
	if e.err == nil {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *storeError) Unwrap() error { return e.err }

func newErr(code ReturnCode, cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	var wrapped error
	if cause != nil {
		wrapped = perrors.Wrap(cause, msg)
	} else {
		wrapped = perrors.New(msg)
	}
	return &storeError{code: code, err: wrapped}
}

// Code extracts the taxonomy code carried by err: OK if err is nil,
// WriteFailed if err has no storage cause in its chain.
func Code(err error) ReturnCode {
	if err == nil {
		return OK
	}
	var se *storeError
	if errors.As(err, &se) {
		return se.code
	}
	return WriteFailed
}
