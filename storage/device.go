package storage

import "os"

// blockDevice is the minimal surface FileStore needs from its backing
// storage. The default backend satisfies it with a buffered *os.File; the
// Linux direct-I/O backend (directio_linux.go) satisfies it with aligned
// O_DIRECT reads/writes over the same byte range.
type blockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Sync() error
	Close() error
}

// osDevice is the default, portable backend: a plain buffered file handle.
type osDevice struct {
	f *os.File
}

func openOSDevice(name string, flag int, perm os.FileMode) (*osDevice, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &osDevice{f: f}, nil
}

func (d *osDevice) ReadAt(p []byte, off int64) (int, error)  { return d.f.ReadAt(p, off) }
func (d *osDevice) WriteAt(p []byte, off int64) (int, error) { return d.f.WriteAt(p, off) }
func (d *osDevice) Truncate(size int64) error                { return d.f.Truncate(size) }
func (d *osDevice) Sync() error                              { return d.f.Sync() }
func (d *osDevice) Close() error                             { return d.f.Close() }
