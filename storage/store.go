package storage

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// PageSize is the fixed page size, in bytes, of every data page addressed
// by this store. It is a compile-time constant by design: the format does
// not support mixed or runtime-variable page sizes.
const PageSize = 4096

// headerSize is sizeof(int) in the original C layout: a little-endian
// 32-bit page count at offset 0.
const headerSize = 4

// PageNumber identifies a page within a file. NoPage means "no page
// resident" when used as a frame's resident page id elsewhere.
type PageNumber = int

// NoPage is the sentinel page number meaning "none".
const NoPage PageNumber = -1

// Options configure FileStore construction.
type options struct {
	directIO bool
	log      *logrus.Logger
}

// Option configures Create/Open.
type Option func(*options)

// WithDirectIO requests the O_DIRECT-backed backend (that backend is
// Linux-only; it falls back to the buffered backend elsewhere, see directio_other.go).
func WithDirectIO() Option { return func(o *options) { o.directIO = true } }

// WithLogger attaches a logrus logger; a disabled (io.Discard-out) default
// logger is used otherwise.
func WithLogger(l *logrus.Logger) Option { return func(o *options) { o.log = l } }

func resolveOptions(opts []Option) *options {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	}
	if o.log == nil {
		o.log = logrus.New()
		o.log.SetOutput(io.Discard)
	}
	return o
}

func openDevice(name string, flag int, o *options) (blockDevice, error) {
	if o.directIO {
		if dev, err := openDirectDevice(name, flag, 0o600); err == nil {
			return dev, nil
		} else if !directIOSupported {
			o.log.WithField("file", name).Debug("direct I/O unavailable, using buffered backend")
		} else {
			return nil, err
		}
	}
	return openOSDevice(name, flag, 0o600)
}

// FileStore is a FileHandle: per-open-file state over a fixed-size-page
// file, together with the page-store operations. The zero value is not
// usable; obtain one via Open.
type FileStore struct {
	fileName      string
	totalNumPages int
	curPagePos    int
	dev           blockDevice
	log           *logrus.Entry
}

// Create creates a new page file containing header value 1 followed by one
// zero-filled page. On any short write the partial file is removed.
func Create(name string, opts ...Option) error {
	if name == "" {
		return newErr(FileNotFound, nil, "file name is empty")
	}
	o := resolveOptions(opts)

	dev, err := openDevice(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, o)
	if err != nil {
		return newErr(WriteFailed, err, "create page file %q", name)
	}

	fail := func(cause error, format string, args ...interface{}) error {
		dev.Close()
		os.Remove(name)
		return newErr(WriteFailed, cause, format, args...)
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], 1)
	if _, err := dev.WriteAt(header[:], 0); err != nil {
		return fail(err, "write header of %q", name)
	}

	blank := make([]byte, PageSize)
	if _, err := dev.WriteAt(blank, headerSize); err != nil {
		return fail(err, "write initial page of %q", name)
	}

	if err := dev.Sync(); err != nil {
		return fail(err, "flush %q", name)
	}
	if err := dev.Close(); err != nil {
		return newErr(WriteFailed, err, "close %q after create", name)
	}
	o.log.WithField("file", name).Debug("page file created")
	return nil
}

// Open opens an existing page file read/write. If the file is longer than
// the header declares, totalNumPages is recomputed from the file length
// and the header is rewritten (tolerates a trailing-complete-page overrun,
// not a truncation).
func Open(name string, opts ...Option) (*FileStore, error) {
	if name == "" {
		return nil, newErr(FileNotFound, nil, "file name is empty")
	}
	o := resolveOptions(opts)

	info, statErr := os.Stat(name)
	if statErr != nil {
		return nil, newErr(FileNotFound, statErr, "open page file %q", name)
	}

	dev, err := openDevice(name, os.O_RDWR, o)
	if err != nil {
		return nil, newErr(FileNotFound, err, "open page file %q", name)
	}

	var header [headerSize]byte
	if n, err := dev.ReadAt(header[:], 0); err != nil || n < headerSize {
		dev.Close()
		return nil, newErr(ReadNonExistingPage, err, "read header of %q", name)
	}
	totalNumPages := int(binary.LittleEndian.Uint32(header[:]))

	fileLen := info.Size()
	expected := int64(headerSize) + int64(totalNumPages)*PageSize
	if fileLen < expected {
		dev.Close()
		return nil, newErr(ReadNonExistingPage, nil, "%q is shorter than its header declares (have %d, want %d)", name, fileLen, expected)
	}
	if fileLen > expected {
		recomputed := int((fileLen - headerSize) / PageSize)
		var newHeader [headerSize]byte
		binary.LittleEndian.PutUint32(newHeader[:], uint32(recomputed))
		if _, err := dev.WriteAt(newHeader[:], 0); err != nil {
			dev.Close()
			return nil, newErr(WriteFailed, err, "rewrite header of %q", name)
		}
		if err := dev.Sync(); err != nil {
			dev.Close()
			return nil, newErr(WriteFailed, err, "flush rewritten header of %q", name)
		}
		o.log.WithFields(logrus.Fields{"file": name, "declared": totalNumPages, "recomputed": recomputed}).
			Warn("page file longer than its header, recomputed page count")
		totalNumPages = recomputed
	}

	return &FileStore{
		fileName:      name,
		totalNumPages: totalNumPages,
		curPagePos:    0,
		dev:           dev,
		log:           o.log.WithField("file", name),
	}, nil
}

// Close flushes, closes, and frees handle state. Idempotent failure with
// FileHandleNotInit if already closed.
func (fs *FileStore) Close() error {
	if fs == nil || fs.dev == nil {
		return newErr(FileHandleNotInit, nil, "close on uninitialised handle")
	}
	if err := fs.dev.Sync(); err != nil {
		return newErr(WriteFailed, err, "flush %q before close", fs.fileName)
	}
	if err := fs.dev.Close(); err != nil {
		return newErr(WriteFailed, err, "close %q", fs.fileName)
	}
	fs.dev = nil
	fs.fileName = ""
	fs.totalNumPages = 0
	fs.curPagePos = 0
	return nil
}

// Destroy removes a page file.
func Destroy(name string) error {
	if err := os.Remove(name); err != nil {
		return newErr(FileNotFound, err, "destroy page file %q", name)
	}
	return nil
}

func (fs *FileStore) checkInit() error {
	if fs == nil || fs.dev == nil {
		return newErr(FileHandleNotInit, nil, "file handle not initialised")
	}
	return nil
}

func pageOffset(n PageNumber) int64 {
	return int64(headerSize) + int64(n)*PageSize
}

// ReadBlock seeks to page n and reads exactly PageSize bytes into buf.
// Requires 0 <= n < TotalNumPages.
func (fs *FileStore) ReadBlock(n PageNumber, buf []byte) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	if n < 0 || n >= fs.totalNumPages {
		return newErr(ReadNonExistingPage, nil, "page %d out of range [0,%d)", n, fs.totalNumPages)
	}
	if len(buf) != PageSize {
		return newErr(ReadNonExistingPage, nil, "buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	read, err := fs.dev.ReadAt(buf, pageOffset(n))
	if err != nil || read < PageSize {
		return newErr(ReadNonExistingPage, err, "read page %d of %q", n, fs.fileName)
	}
	fs.curPagePos = n
	return nil
}

// WriteBlock seeks to page n and writes exactly PageSize bytes from buf,
// then flushes. Requires 0 <= n < TotalNumPages.
func (fs *FileStore) WriteBlock(n PageNumber, buf []byte) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	if n < 0 || n >= fs.totalNumPages {
		return newErr(WriteFailed, nil, "page %d out of range [0,%d)", n, fs.totalNumPages)
	}
	if len(buf) != PageSize {
		return newErr(WriteFailed, nil, "buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	written, err := fs.dev.WriteAt(buf, pageOffset(n))
	if err != nil || written < PageSize {
		return newErr(WriteFailed, err, "write page %d of %q", n, fs.fileName)
	}
	if err := fs.dev.Sync(); err != nil {
		return newErr(WriteFailed, err, "flush page %d of %q", n, fs.fileName)
	}
	fs.curPagePos = n
	return nil
}

// ReadFirstBlock reads page 0.
func (fs *FileStore) ReadFirstBlock(buf []byte) error { return fs.ReadBlock(0, buf) }

// ReadLastBlock reads the final page.
func (fs *FileStore) ReadLastBlock(buf []byte) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	if fs.totalNumPages-1 < 0 {
		return newErr(ReadNonExistingPage, nil, "%q has no pages", fs.fileName)
	}
	return fs.ReadBlock(fs.totalNumPages-1, buf)
}

// ReadPreviousBlock reads the page before curPagePos.
func (fs *FileStore) ReadPreviousBlock(buf []byte) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	prev := fs.curPagePos - 1
	if prev < 0 {
		return newErr(ReadNonExistingPage, nil, "no previous page before %d", fs.curPagePos)
	}
	return fs.ReadBlock(prev, buf)
}

// ReadCurrentBlock re-reads curPagePos.
func (fs *FileStore) ReadCurrentBlock(buf []byte) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	return fs.ReadBlock(fs.curPagePos, buf)
}

// ReadNextBlock reads the page after curPagePos.
func (fs *FileStore) ReadNextBlock(buf []byte) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	next := fs.curPagePos + 1
	if next >= fs.totalNumPages {
		return newErr(ReadNonExistingPage, nil, "no next page after %d", fs.curPagePos)
	}
	return fs.ReadBlock(next, buf)
}

// WriteCurrentBlock writes curPagePos.
func (fs *FileStore) WriteCurrentBlock(buf []byte) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	return fs.WriteBlock(fs.curPagePos, buf)
}

// AppendEmptyBlock writes one zero-filled page at EOF, bumps
// TotalNumPages, rewrites the header, restores the pre-append cursor, and
// flushes.
func (fs *FileStore) AppendEmptyBlock() error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	priorPos := fs.curPagePos
	newTotal := fs.totalNumPages + 1
	offset := pageOffset(fs.totalNumPages)

	blank := make([]byte, PageSize)
	written, err := fs.dev.WriteAt(blank, offset)
	if err != nil || written < PageSize {
		return newErr(WriteFailed, err, "append empty block to %q", fs.fileName)
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(newTotal))
	if _, err := fs.dev.WriteAt(header[:], 0); err != nil {
		return newErr(WriteFailed, err, "update header of %q", fs.fileName)
	}

	fs.totalNumPages = newTotal
	fs.curPagePos = priorPos
	if err := fs.dev.Sync(); err != nil {
		return newErr(WriteFailed, err, "flush append to %q", fs.fileName)
	}
	return nil
}

// EnsureCapacity appends empty blocks until TotalNumPages >= k. A no-op if
// already sufficient.
func (fs *FileStore) EnsureCapacity(k int) error {
	if err := fs.checkInit(); err != nil {
		return err
	}
	for fs.totalNumPages < k {
		if err := fs.AppendEmptyBlock(); err != nil {
			return err
		}
	}
	return nil
}

// GetBlockPos returns curPagePos, or -1 if the handle is uninitialised.
func (fs *FileStore) GetBlockPos() int {
	if fs == nil || fs.dev == nil {
		return -1
	}
	return fs.curPagePos
}

// TotalNumPages returns the number of data pages currently in the file.
func (fs *FileStore) TotalNumPages() int {
	if fs == nil {
		return 0
	}
	return fs.totalNumPages
}

// FileName returns the store's backing file name.
func (fs *FileStore) FileName() string {
	if fs == nil {
		return ""
	}
	return fs.fileName
}
