// Package autocreate materializes missing parent directories for
// rewritten paths, so a redirected file can be created where its rule
// points without the target tree existing beforehand. Creation runs
// under the identity of the requesting process, so ownership and
// permission checks come out as if that process had run mkdir itself.
package autocreate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// Creator creates parent directories as a caller identity. Safe for
// concurrent use.
type Creator struct {
	log *slog.Logger
}

// New returns a Creator logging through log, or slog.Default when nil.
func New(log *slog.Logger) *Creator {
	if log == nil {
		log = slog.Default()
	}
	return &Creator{log: log}
}

// MkdirParents creates every missing ancestor of path with mode 0777
// before umask; the final component itself is never created. A failed
// identity switch is logged and creation proceeds under the server
// identity, the same outcome a plain mkdir from the wrong user would
// have.
func (c *Creator) MkdirParents(ctx context.Context, path string, uid, gid uint32) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	return c.mkdirAs(ctx, dir, uid, gid)
}
