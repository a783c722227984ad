package sffs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesRootDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)
	defer img.Unmount()

	attr, err := img.Getattr(RootIno)
	require.NoError(t, err)
	assert.Equal(t, FileTypeDir, fileTypeNibble(attr.Mode))

	entries, err := img.Readdir(RootIno)
	require.NoError(t, err)
	names := make(map[string]uint32)
	for _, e := range entries {
		names[e.Name] = e.Ino
	}
	assert.Equal(t, uint32(RootIno), names["."])
	assert.Equal(t, uint32(RootIno), names[".."])
}

func TestMkdirCreatesChildVisibleInReaddir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)
	defer img.Unmount()

	childIno, err := img.Mkdir(RootIno, "sub", 0755, 1000, 1000)
	require.NoError(t, err)

	entries, err := img.Readdir(RootIno)
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Name == "sub" {
			found = true
			assert.Equal(t, childIno, e.Ino)
			assert.Equal(t, FileTypeDir, e.FileType)
		}
	}
	assert.True(t, found)

	childAttr, err := img.Getattr(childIno)
	require.NoError(t, err)
	assert.Equal(t, FileTypeDir, fileTypeNibble(childAttr.Mode))
	assert.Equal(t, uint16(2), childAttr.LinkCount)

	childEntries, err := img.Readdir(childIno)
	require.NoError(t, err)
	names := make(map[string]uint32)
	for _, e := range childEntries {
		names[e.Name] = e.Ino
	}
	assert.Equal(t, childIno, names["."])
	assert.Equal(t, uint32(RootIno), names[".."])
}

func TestMkdirRejectsDuplicateName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)
	defer img.Unmount()

	_, err = img.Mkdir(RootIno, "dup", 0755, 0, 0)
	require.NoError(t, err)
	_, err = img.Mkdir(RootIno, "dup", 0755, 0, 0)
	require.Error(t, err)
	assert.True(t, Is(err, KindEntExists))
}

// TestMkdirRejectedDuplicateLeavesNoSideEffects verifies that rejecting a
// duplicate name doesn't leak an inode or a data block: the duplicate
// check must run before any allocation, not after.
func TestMkdirRejectedDuplicateLeavesNoSideEffects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)
	defer img.Unmount()

	_, err = img.Mkdir(RootIno, "dup", 0755, 0, 0)
	require.NoError(t, err)

	before := img.Statfs()
	_, err = img.Mkdir(RootIno, "dup", 0755, 0, 0)
	require.Error(t, err)
	assert.True(t, Is(err, KindEntExists))
	after := img.Statfs()

	assert.Equal(t, before.FreeBlocks, after.FreeBlocks)
	assert.Equal(t, before.FreeInodes, after.FreeInodes)
}

func TestStatfsReflectsUsageAfterMkdir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)
	defer img.Unmount()

	before := img.Statfs()
	_, err = img.Mkdir(RootIno, "child", 0755, 0, 0)
	require.NoError(t, err)
	after := img.Statfs()

	assert.Less(t, after.FreeBlocks, before.FreeBlocks)
	assert.Less(t, after.FreeInodes, before.FreeInodes)
	assert.Equal(t, before.TotalBlocks, after.TotalBlocks)
}

// TestUnmountThenMountPersistsState verifies that a directory created
// before Unmount is still visible after reopening the same image with
// Mount, and that the mount count bookkeeping advances.
func TestUnmountThenMountPersistsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)

	childIno, err := img.Mkdir(RootIno, "persisted", 0755, 42, 42)
	require.NoError(t, err)
	statBefore := img.Statfs()
	require.NoError(t, img.Unmount())

	reopened, err := Mount(WithImagePath(path))
	require.NoError(t, err)
	defer reopened.Unmount()

	entries, err := reopened.Readdir(RootIno)
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Name == "persisted" {
			found = true
			assert.Equal(t, childIno, e.Ino)
		}
	}
	assert.True(t, found)

	attr, err := reopened.Getattr(childIno)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), attr.UID)

	statAfter := reopened.Statfs()
	assert.Equal(t, statBefore.FreeBlocks, statAfter.FreeBlocks)
	assert.Equal(t, statBefore.MountCount+1, statAfter.MountCount)
}

func TestMountWarnsWhenMountCountExceedsMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)
	img.ctx.sb.MaxMountCount = 1
	require.NoError(t, img.Unmount())

	var warnings []string
	warnFn := func(msg string) { warnings = append(warnings, msg) }

	first, err := Mount(WithImagePath(path), WithWarnFunc(warnFn))
	require.NoError(t, err)
	require.NoError(t, first.Unmount())
	assert.Empty(t, warnings)

	second, err := Mount(WithImagePath(path), WithWarnFunc(warnFn))
	require.NoError(t, err)
	defer second.Unmount()
	assert.NotEmpty(t, warnings)
}

func TestGetattrUnknownInodeReturnsNoEnt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.sffs")
	img, err := Init(WithImagePath(path), WithSizeInMB(4), WithBlockSize(1024))
	require.NoError(t, err)
	defer img.Unmount()

	_, err = img.Getattr(RootIno + 1)
	require.Error(t, err)
	assert.True(t, Is(err, KindNoEnt))
}
