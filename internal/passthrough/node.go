// Package passthrough serves the mount point. Every operation derives
// its virtual path from the inode tree, resolves it through the rewrite
// engine, and performs the matching syscall on the real path, so the
// kernel's own permission and consistency semantics apply to whatever
// the rules decided.
package passthrough

import (
	"context"
	"log/slog"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/rewritefs/rewritefs/internal/rewrite"
)

type filesystem struct {
	engine *rewrite.Engine
	log    *slog.Logger
}

// NewRoot returns the root node of a rewriting passthrough tree backed
// by engine.
func NewRoot(engine *rewrite.Engine, log *slog.Logger) fs.InodeEmbedder {
	if log == nil {
		log = slog.Default()
	}
	return &node{fsys: &filesystem{engine: engine, log: log}}
}

type node struct {
	fs.Inode
	fsys *filesystem
}

var (
	_ fs.NodeGetattrer  = (*node)(nil)
	_ fs.NodeSetattrer  = (*node)(nil)
	_ fs.NodeLookuper   = (*node)(nil)
	_ fs.NodeReaddirer  = (*node)(nil)
	_ fs.NodeOpener     = (*node)(nil)
	_ fs.NodeCreater    = (*node)(nil)
	_ fs.NodeMkdirer    = (*node)(nil)
	_ fs.NodeRmdirer    = (*node)(nil)
	_ fs.NodeUnlinker   = (*node)(nil)
	_ fs.NodeRenamer    = (*node)(nil)
	_ fs.NodeSymlinker  = (*node)(nil)
	_ fs.NodeReadlinker = (*node)(nil)
	_ fs.NodeLinker     = (*node)(nil)
	_ fs.NodeAccesser   = (*node)(nil)
	_ fs.NodeStatfser   = (*node)(nil)
)

// virtPath reconstructs the path of this inode as seen on the mount
// point, beginning with a slash.
func (n *node) virtPath() string {
	rel := n.Path(n.Root())
	if rel == "" || rel == "." {
		return "/"
	}
	return "/" + rel
}

func (n *node) childVirt(name string) string {
	base := n.virtPath()
	if base == "/" {
		return "/" + name
	}
	return base + "/" + name
}

// resolve maps a virtual path to its real one, attributing the request
// to the process behind the kernel call. The engine's only error is a
// rule whose template references a capture its pattern cannot supply;
// that is a configuration defect, surfaced as EIO rather than a
// plausible-looking lookup failure.
func (n *node) resolve(ctx context.Context, virt string) (string, syscall.Errno) {
	req := rewrite.Request{Path: virt}
	if caller, ok := fuse.FromContext(ctx); ok {
		req.PID = int(caller.Pid)
		req.UID = caller.Uid
		req.GID = caller.Gid
	}
	real, err := n.fsys.engine.Resolve(ctx, req)
	if err != nil {
		n.fsys.log.LogAttrs(ctx, slog.LevelError, "resolution failed",
			slog.String("path", virt), slog.Any("error", err))
		return "", syscall.EIO
	}
	return real, 0
}

func (n *node) newChild(ctx context.Context, st *syscall.Stat_t) *fs.Inode {
	return n.NewInode(ctx, &node{fsys: n.fsys}, fs.StableAttr{Mode: uint32(st.Mode), Ino: uint64(st.Ino)})
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	var st syscall.Stat_t
	if fh, ok := f.(*fileHandle); ok {
		if err := syscall.Fstat(fh.fd, &st); err != nil {
			return fs.ToErrno(err)
		}
	} else {
		p, errno := n.resolve(ctx, n.virtPath())
		if errno != 0 {
			return errno
		}
		if err := syscall.Lstat(p, &st); err != nil {
			return fs.ToErrno(err)
		}
	}
	out.FromStat(&st)
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return nil, errno
	}
	var st syscall.Stat_t
	if err := syscall.Lstat(p, &st); err != nil {
		return nil, fs.ToErrno(err)
	}
	out.FromStat(&st)
	return n.newChild(ctx, &st), 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	p, errno := n.resolve(ctx, n.virtPath())
	if errno != 0 {
		return nil, errno
	}
	return fs.NewLoopbackDirStream(p)
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	p, errno := n.resolve(ctx, n.virtPath())
	if errno != 0 {
		return nil, 0, errno
	}
	fd, err := unix.Open(p, int(flags), 0)
	if err != nil {
		return nil, 0, fs.ToErrno(err)
	}
	return &fileHandle{fd: fd}, 0, 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	p, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return nil, nil, 0, errno
	}
	fd, err := unix.Open(p, int(flags)|unix.O_CREAT, mode)
	if err != nil {
		return nil, nil, 0, fs.ToErrno(err)
	}
	var st syscall.Stat_t
	if err := syscall.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, nil, 0, fs.ToErrno(err)
	}
	out.FromStat(&st)
	return n.newChild(ctx, &st), &fileHandle{fd: fd}, 0, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return nil, errno
	}
	if err := unix.Mkdir(p, mode); err != nil {
		return nil, fs.ToErrno(err)
	}
	var st syscall.Stat_t
	if err := syscall.Lstat(p, &st); err != nil {
		return nil, fs.ToErrno(err)
	}
	out.FromStat(&st)
	return n.newChild(ctx, &st), 0
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	p, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return errno
	}
	return fs.ToErrno(unix.Rmdir(p))
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	p, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return errno
	}
	return fs.ToErrno(unix.Unlink(p))
}

func (n *node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if flags != 0 {
		return syscall.EINVAL
	}
	np, ok := newParent.(*node)
	if !ok {
		return syscall.EXDEV
	}
	oldPath, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return errno
	}
	newPath, errno := np.resolve(ctx, np.childVirt(newName))
	if errno != 0 {
		return errno
	}
	return fs.ToErrno(unix.Rename(oldPath, newPath))
}

// Symlink stores the target verbatim; only the link's own path is
// rewritten. The target is interpreted by the kernel on traversal like
// any other path on the mount.
func (n *node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return nil, errno
	}
	if err := unix.Symlink(target, p); err != nil {
		return nil, fs.ToErrno(err)
	}
	var st syscall.Stat_t
	if err := syscall.Lstat(p, &st); err != nil {
		return nil, fs.ToErrno(err)
	}
	out.FromStat(&st)
	return n.newChild(ctx, &st), 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	p, errno := n.resolve(ctx, n.virtPath())
	if errno != 0 {
		return nil, errno
	}
	for size := 256; ; size *= 2 {
		buf := make([]byte, size)
		sz, err := unix.Readlink(p, buf)
		if err != nil {
			return nil, fs.ToErrno(err)
		}
		if sz < size {
			return buf[:sz], 0
		}
	}
}

func (n *node) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	tn, ok := target.(*node)
	if !ok {
		return nil, syscall.EXDEV
	}
	oldPath, errno := tn.resolve(ctx, tn.virtPath())
	if errno != 0 {
		return nil, errno
	}
	newPath, errno := n.resolve(ctx, n.childVirt(name))
	if errno != 0 {
		return nil, errno
	}
	if err := unix.Link(oldPath, newPath); err != nil {
		return nil, fs.ToErrno(err)
	}
	var st syscall.Stat_t
	if err := syscall.Lstat(newPath, &st); err != nil {
		return nil, fs.ToErrno(err)
	}
	out.FromStat(&st)
	return n.newChild(ctx, &st), 0
}

func (n *node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	p, errno := n.resolve(ctx, n.virtPath())
	if errno != 0 {
		return errno
	}

	if mode, ok := in.GetMode(); ok {
		if err := unix.Chmod(p, mode); err != nil {
			return fs.ToErrno(err)
		}
	}

	uid, hasUID := in.GetUID()
	gid, hasGID := in.GetGID()
	if hasUID || hasGID {
		cuid, cgid := -1, -1
		if hasUID {
			cuid = int(uid)
		}
		if hasGID {
			cgid = int(gid)
		}
		if err := unix.Lchown(p, cuid, cgid); err != nil {
			return fs.ToErrno(err)
		}
	}

	if size, ok := in.GetSize(); ok {
		var err error
		if fh, isFH := f.(*fileHandle); isFH {
			err = unix.Ftruncate(fh.fd, int64(size))
		} else {
			err = unix.Truncate(p, int64(size))
		}
		if err != nil {
			return fs.ToErrno(err)
		}
	}

	atime, hasAtime := in.GetATime()
	mtime, hasMtime := in.GetMTime()
	if hasAtime || hasMtime {
		ts := []unix.Timespec{
			{Nsec: unix.UTIME_OMIT},
			{Nsec: unix.UTIME_OMIT},
		}
		if hasAtime {
			ts[0] = unix.NsecToTimespec(atime.UnixNano())
		}
		if hasMtime {
			ts[1] = unix.NsecToTimespec(mtime.UnixNano())
		}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, p, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return fs.ToErrno(err)
		}
	}

	var st syscall.Stat_t
	if err := syscall.Lstat(p, &st); err != nil {
		return fs.ToErrno(err)
	}
	out.FromStat(&st)
	return 0
}

func (n *node) Access(ctx context.Context, mask uint32) syscall.Errno {
	p, errno := n.resolve(ctx, n.virtPath())
	if errno != 0 {
		return errno
	}
	return fs.ToErrno(unix.Access(p, mask))
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	p, errno := n.resolve(ctx, n.virtPath())
	if errno != 0 {
		return errno
	}
	var st syscall.Statfs_t
	if err := syscall.Statfs(p, &st); err != nil {
		return fs.ToErrno(err)
	}
	out.FromStatfsT(&st)
	return 0
}
