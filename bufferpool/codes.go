package bufferpool

import (
	"errors"
	"fmt"

	perrors "github.com/pkg/errors"

	"github.com/pnathan/pagestore/storage"
)

// Code is the BPM-layer mirror of the storage package's return-code
// taxonomy. Errors surfaced from the underlying FileStore propagate through
// unchanged in meaning - translateStorageErr maps the storage.Code
// underneath to the matching bufferpool Code while preserving the original
// error as the wrapped cause.
type Code int

const (
	CodeOK Code = iota
	CodeFileNotFound
	CodeFileHandleNotInit
	CodeReadNonExistingPage
	CodeWriteFailed
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeFileNotFound:
		return "FILE_NOT_FOUND"
	case CodeFileHandleNotInit:
		return "FILE_HANDLE_NOT_INIT"
	case CodeReadNonExistingPage:
		return "READ_NON_EXISTING_PAGE"
	case CodeWriteFailed:
		return "WRITE_FAILED"
	default:
		return "UNKNOWN_CODE"
	}
}

type bpError struct {
	code Code
	err  error
}

func (e *bpError) Error() string {
	if e.err == nil {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *bpError) Unwrap() error { return e.err }

func newErr(code Code, cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	var wrapped error
	if cause != nil {
		wrapped = perrors.Wrap(cause, msg)
	} else {
		wrapped = perrors.New(msg)
	}
	return &bpError{code: code, err: wrapped}
}

// ErrCode extracts the taxonomy code carried by err: CodeOK if err is nil,
// CodeWriteFailed if err carries no bufferpool code.
func ErrCode(err error) Code {
	if err == nil {
		return CodeOK
	}
	var be *bpError
	if errors.As(err, &be) {
		return be.code
	}
	return CodeWriteFailed
}

func translateStorageErr(err error) error {
	if err == nil {
		return nil
	}
	var code Code
	switch storage.Code(err) {
	case storage.FileNotFound:
		code = CodeFileNotFound
	case storage.FileHandleNotInit:
		code = CodeFileHandleNotInit
	case storage.ReadNonExistingPage:
		code = CodeReadNonExistingPage
	case storage.WriteFailed:
		code = CodeWriteFailed
	default:
		code = CodeWriteFailed
	}
	return &bpError{code: code, err: err}
}
