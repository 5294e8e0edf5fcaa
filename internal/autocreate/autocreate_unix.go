//go:build unix && !linux

package autocreate

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Without per-thread filesystem identity the switch is process-wide, so
// the whole switch+create+restore sequence runs as one critical section.
var identityMu sync.Mutex

func (c *Creator) mkdirAs(ctx context.Context, dir string, uid, gid uint32) error {
	identityMu.Lock()
	defer identityMu.Unlock()

	prevUID, prevGID := unix.Geteuid(), unix.Getegid()

	// gid first: dropping uid first could leave us unable to change gid.
	gidErr := unix.Setegid(int(gid))
	uidErr := unix.Seteuid(int(uid))
	if gidErr != nil || uidErr != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "switching effective identity failed",
			slog.Int("uid", int(uid)), slog.Int("gid", int(gid)))
	}
	defer func() {
		if uidErr == nil {
			_ = unix.Seteuid(prevUID)
		}
		if gidErr == nil {
			_ = unix.Setegid(prevGID)
		}
	}()

	return os.MkdirAll(dir, 0o777)
}
