package sffs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBlockPrimaryRange(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	node := newOwnedInode(t, ctx, ModeReg|0644)

	p := ctx.primaryPointerCap()
	node.Pointers[p-1] = 777
	node.BlocksCount = p

	res, err := ctx.resolveBlock(node, p-1, ResolveNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(777), res.BlockID)
	assert.Equal(t, node.Ino, res.OwnerIno)
}

func TestResolveBlockCrossesIntoSupplementary(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	node := newOwnedInode(t, ctx, ModeReg|0644)

	p := ctx.primaryPointerCap()
	require.NoError(t, ctx.growInodeList(node, 1))

	require.NoError(t, ctx.setBlockPointer(node, p, 555))
	node.BlocksCount = p + 1

	res, err := ctx.resolveBlock(node, p, ResolveNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(555), res.BlockID)
	assert.Equal(t, node.NextEntry, res.OwnerIno)
}

func TestResolveBlockLastFlag(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	node := newOwnedInode(t, ctx, ModeReg|0644)
	node.Pointers[0] = 10
	node.Pointers[1] = 20
	node.BlocksCount = 2

	res, err := ctx.resolveBlock(node, 0, ResolveLast)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), res.BlockID)
}

func TestSetBlockPointerMatchesResolve(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)
	node := newOwnedInode(t, ctx, ModeReg|0644)

	p := ctx.primaryPointerCap()
	q := ctx.supplementaryPointerCap()
	require.NoError(t, ctx.growInodeList(node, 2))

	n := p + q + 3
	require.NoError(t, ctx.setBlockPointer(node, n, 4242))
	node.BlocksCount = n + 1

	res, err := ctx.resolveBlock(node, n, ResolveNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), res.BlockID)
}
