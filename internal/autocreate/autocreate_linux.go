//go:build linux

package autocreate

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// mkdirAs creates dir and its missing ancestors with the filesystem
// identity of the requesting process. Linux scopes fsuid/fsgid to the
// calling thread, so pinning the goroutine to its thread confines the
// switch to this one creation; other workers keep the server identity.
func (c *Creator) mkdirAs(ctx context.Context, dir string, uid, gid uint32) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// gid first: dropping uid first could leave us unable to change gid.
	prevGID, _ := unix.SetfsgidRetGid(int(gid))
	prevUID, _ := unix.SetfsuidRetUid(int(uid))

	// setfsuid reports nothing on failure: without CAP_SETUID the call
	// silently keeps the old id. Re-invoking returns the id now in
	// effect, the only way to see whether the switch took.
	nowGID, _ := unix.SetfsgidRetGid(int(gid))
	nowUID, _ := unix.SetfsuidRetUid(int(uid))
	if nowGID != int(gid) || nowUID != int(uid) {
		c.log.LogAttrs(ctx, slog.LevelWarn, "switching filesystem identity failed",
			slog.Int("uid", int(uid)), slog.Int("gid", int(gid)))
	}
	defer func() {
		unix.Setfsuid(prevUID)
		unix.Setfsgid(prevGID)
	}()

	return os.MkdirAll(dir, 0o777)
}
