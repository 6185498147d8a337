package fs

import (
	"fmt"
	"os"
	"sync"
)

// FaultyFS is a FileSystem wrapper that fails writes after a byte limit.
// Test utility for exercising partial-download cleanup.
type FaultyFS struct {
	FS  FileSystem
	Err error

	mu      sync.Mutex
	written int64
	limit   int64
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default
// if nil).
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{
		FS:    fsys,
		Err:   fmt.Errorf("injected fault error"),
		limit: -1,
	}
}

// SetLimit makes writes fail after limit total bytes. Negative disables.
func (f *FaultyFS) SetLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f}, nil
}

func (f *FaultyFS) Remove(name string) error              { return f.FS.Remove(name) }
func (f *FaultyFS) Rename(oldpath, newpath string) error  { return f.FS.Rename(oldpath, newpath) }
func (f *FaultyFS) Stat(name string) (os.FileInfo, error) { return f.FS.Stat(name) }
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

type faultyFile struct {
	File
	fs *FaultyFS
}

func (f *faultyFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	limit := f.fs.limit
	written := f.fs.written
	f.fs.mu.Unlock()

	if limit >= 0 && written+int64(len(p)) > limit {
		return 0, f.fs.Err
	}

	n, err := f.File.Write(p)
	f.fs.mu.Lock()
	f.fs.written += int64(n)
	f.fs.mu.Unlock()
	return n, err
}
