package sffs

import (
	"os"
)

// diskBackend abstracts positioned I/O against the backing image file.
// This is the seam a test or an alternative host (memory-backed image,
// network block device) would implement instead of fileBackend.
type diskBackend interface {
	readAt(p []byte, off int64) error
	writeAt(p []byte, off int64) error
	sync() error
	close() error
	truncate(size int64) error
	stat() (os.FileInfo, error)
}

// fileBackend implements diskBackend against a regular *os.File.
type fileBackend struct {
	f *os.File
}

func openFileBackend(path string, flag int, perm os.FileMode) (*fileBackend, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, newErr(KindDevStat, "open", err)
	}
	return &fileBackend{f: f}, nil
}

func (fb *fileBackend) readAt(p []byte, off int64) error {
	if _, err := fb.f.ReadAt(p, off); err != nil {
		return newErr(KindDevRead, "readAt", err)
	}
	return nil
}

func (fb *fileBackend) writeAt(p []byte, off int64) error {
	if _, err := fb.f.WriteAt(p, off); err != nil {
		return newErr(KindDevWrite, "writeAt", err)
	}
	return nil
}

func (fb *fileBackend) sync() error {
	if err := fb.f.Sync(); err != nil {
		return newErr(KindDevWrite, "sync", err)
	}
	return nil
}

func (fb *fileBackend) close() error {
	if err := fb.f.Close(); err != nil {
		return newErr(KindDevStat, "close", err)
	}
	return nil
}

func (fb *fileBackend) truncate(size int64) error {
	if err := fb.f.Truncate(size); err != nil {
		return newErr(KindDevWrite, "truncate", err)
	}
	return nil
}

func (fb *fileBackend) stat() (os.FileInfo, error) {
	fi, err := fb.f.Stat()
	if err != nil {
		return nil, newErr(KindDevStat, "stat", err)
	}
	return fi, nil
}
