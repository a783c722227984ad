package sffs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRootHandle(t *testing.T, ctx *Context) *Inode {
	t.Helper()
	root, err := ctx.readInode(RootIno)
	require.NoError(t, err)
	return root
}

func TestInsertAndLookupDirEntry(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	root := newRootHandle(t, ctx)

	require.NoError(t, ctx.insertDirEntry(root, "hello", 42, ModeReg|0644))

	ino, _, err := ctx.lookupDirEntry(root, "hello")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), ino)
}

func TestInsertDirEntryRejectsDuplicate(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	root := newRootHandle(t, ctx)

	require.NoError(t, ctx.insertDirEntry(root, "dup", 5, ModeReg|0644))
	err := ctx.insertDirEntry(root, "dup", 6, ModeReg|0644)
	require.Error(t, err)
	assert.True(t, Is(err, KindEntExists))
}

func TestLookupMissingEntry(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	root := newRootHandle(t, ctx)

	_, _, err := ctx.lookupDirEntry(root, "nope")
	require.Error(t, err)
	assert.True(t, Is(err, KindNoEnt))
}

func TestInsertDirEntryExtendsBlockWhenFull(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	root := newRootHandle(t, ctx)

	for i := 0; i < 100; i++ {
		require.NoError(t, ctx.insertDirEntry(root, fmt.Sprintf("file-%02d", i), uint32(i+10), ModeReg|0644))
	}
	assert.Greater(t, root.BlocksCount, uint32(1))

	ino, _, err := ctx.lookupDirEntry(root, "file-99")
	require.NoError(t, err)
	assert.Equal(t, uint32(109), ino)
}

func TestInitDirectoryHasSelfAndParent(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	root := newRootHandle(t, ctx)

	ino, _, err := ctx.lookupDirEntry(root, ".")
	require.NoError(t, err)
	assert.Equal(t, uint32(RootIno), ino)

	ino, _, err = ctx.lookupDirEntry(root, "..")
	require.NoError(t, err)
	assert.Equal(t, uint32(RootIno), ino)
}
