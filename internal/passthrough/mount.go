package passthrough

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/rewritefs/rewritefs/internal/config"
	"github.com/rewritefs/rewritefs/internal/rewrite"
)

// Mount is a served filesystem.
type Mount struct {
	MountPoint string
	Server     *fuse.Server
}

// MountAt serves engine at cfg.MountPoint. The kernel handshake can
// block indefinitely when a previous mount is wedged, so the mount runs
// under ctx; cancel it to abort.
func MountAt(ctx context.Context, cfg *config.Config, engine *rewrite.Engine, log *slog.Logger) (*Mount, error) {
	if err := os.MkdirAll(cfg.MountPoint, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir mount point: %w", err)
	}

	root := NewRoot(engine, log)

	// default_permissions: the kernel applies ordinary uid/gid checks
	// against the backing attributes, as if callers accessed the real
	// tree directly.
	options := append([]string{"default_permissions"}, cfg.MountOptions...)
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     cfg.Root,
			Name:       "rewritefs",
			AllowOther: cfg.AllowOther,
			Debug:      cfg.FuseDebug,
			Options:    options,
		},
	}

	type mountResult struct {
		server *fuse.Server
		err    error
	}
	ch := make(chan mountResult, 1)
	go func() {
		server, err := fs.Mount(cfg.MountPoint, root, opts)
		if err != nil {
			ch <- mountResult{nil, err}
			return
		}
		if err := server.WaitMount(); err != nil {
			ch <- mountResult{nil, err}
			return
		}
		ch <- mountResult{server, nil}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return &Mount{MountPoint: cfg.MountPoint, Server: res.server}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("mounting %s timed out", cfg.MountPoint)
	}
}

// Wait blocks until the filesystem is unmounted.
func (m *Mount) Wait() {
	if m != nil && m.Server != nil {
		m.Server.Wait()
	}
}

// Unmount detaches the filesystem.
func (m *Mount) Unmount() error {
	if m == nil || m.Server == nil {
		return nil
	}
	return m.Server.Unmount()
}
