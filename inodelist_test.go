package sffs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOwnedInode(t *testing.T, ctx *Context, mode uint16) *Inode {
	t.Helper()
	ino, err := ctx.allocateInodeNumber()
	require.NoError(t, err)
	node, err := ctx.createInode(ino, mode, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, ctx.writeInode(node, true))
	return node
}

func TestGrowInodeListLinksSupplementaryRecords(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	node := newOwnedInode(t, ctx, ModeReg|0644)

	require.NoError(t, ctx.growInodeList(node, 2))
	assert.Equal(t, uint32(3), node.ListSize)
	assert.NotZero(t, node.NextEntry)

	first, err := ctx.readListEntry(node.NextEntry)
	require.NoError(t, err)
	assert.NotZero(t, first.NextEntry)

	second, err := ctx.readListEntry(first.NextEntry)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), second.NextEntry)
	assert.Equal(t, node.LastLEntry, second.Ino)
}

func TestGrowInodeListRespectsCap(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	ctx.sb.MaxInodeList = 2
	node := newOwnedInode(t, ctx, ModeReg|0644)

	require.NoError(t, ctx.growInodeList(node, 1))
	err := ctx.growInodeList(node, 1)
	require.Error(t, err)
	assert.True(t, Is(err, KindNoSpc))
}

func TestGrowInodeListUncappedWhenZero(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	ctx.sb.MaxInodeList = 0
	node := newOwnedInode(t, ctx, ModeReg|0644)

	for i := 0; i < 10; i++ {
		require.NoError(t, ctx.growInodeList(node, 1))
	}
	assert.Equal(t, uint32(11), node.ListSize)
}
