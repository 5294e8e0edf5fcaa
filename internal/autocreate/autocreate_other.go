//go:build !unix

package autocreate

import (
	"context"
	"log/slog"
	"os"
)

// No per-process filesystem identity to assume on this platform;
// directories are created as the server itself.
func (c *Creator) mkdirAs(ctx context.Context, dir string, uid, gid uint32) error {
	c.log.LogAttrs(ctx, slog.LevelWarn, "identity switching unsupported, creating as server",
		slog.Int("uid", int(uid)), slog.Int("gid", int(gid)))
	return os.MkdirAll(dir, 0o777)
}
