package passthrough

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// fileHandle wraps an open descriptor on the real path an open resolved
// to. The rewrite decision is made once at open; reads and writes stick
// to that file even if the ruleset would now pick differently.
type fileHandle struct {
	fd int
}

var (
	_ fs.FileReader   = (*fileHandle)(nil)
	_ fs.FileWriter   = (*fileHandle)(nil)
	_ fs.FileFlusher  = (*fileHandle)(nil)
	_ fs.FileFsyncer  = (*fileHandle)(nil)
	_ fs.FileReleaser = (*fileHandle)(nil)
)

func (f *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := unix.Pread(f.fd, dest, off)
	if err != nil {
		return nil, fs.ToErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (f *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := unix.Pwrite(f.fd, data, off)
	return uint32(n), fs.ToErrno(err)
}

// Flush runs on every close of a descriptor. Closing a dup keeps the
// handle usable for later flushes while still surfacing write errors.
func (f *fileHandle) Flush(ctx context.Context) syscall.Errno {
	fd, err := unix.Dup(f.fd)
	if err != nil {
		return fs.ToErrno(err)
	}
	return fs.ToErrno(unix.Close(fd))
}

func (f *fileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return fs.ToErrno(unix.Fsync(f.fd))
}

func (f *fileHandle) Release(ctx context.Context) syscall.Errno {
	if f.fd < 0 {
		return 0
	}
	err := unix.Close(f.fd)
	f.fd = -1
	return fs.ToErrno(err)
}
