package autocreate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Running as the server's own identity keeps the switch a no-op, so
// these exercise the full switch+create+restore sequence without
// requiring privileges.
func selfIdentity() (uint32, uint32) {
	return uint32(os.Getuid()), uint32(os.Getgid())
}

func TestMkdirParents_CreatesMissingAncestors(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "c", "file.txt")
	uid, gid := selfIdentity()

	err := New(nil).MkdirParents(context.Background(), target, uid, gid)
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(root, "a", "b", "c"))

	// The final component is never created.
	_, err = os.Lstat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestMkdirParents_ExistingParentIsNoop(t *testing.T) {
	root := t.TempDir()
	uid, gid := selfIdentity()

	err := New(nil).MkdirParents(context.Background(), filepath.Join(root, "file"), uid, gid)
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMkdirParents_ConcurrentCreations(t *testing.T) {
	root := t.TempDir()
	uid, gid := selfIdentity()
	c := New(nil)

	done := make(chan error)
	for i := 0; i < 8; i++ {
		go func(i int) {
			p := filepath.Join(root, "w", string(rune('a'+i)), "leaf")
			done <- c.MkdirParents(context.Background(), p, uid, gid)
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
