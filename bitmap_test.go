package sffs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapSetCheckClear(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)

	set, err := ctx.bitmapCheck(bitmapData, 5)
	require.NoError(t, err)
	assert.False(t, set)

	require.NoError(t, ctx.bitmapSet(bitmapData, 5))
	set, err = ctx.bitmapCheck(bitmapData, 5)
	require.NoError(t, err)
	assert.True(t, set)

	require.NoError(t, ctx.bitmapClear(bitmapData, 5))
	set, err = ctx.bitmapCheck(bitmapData, 5)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestBitmapSetRefusesDoubleSet(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)

	require.NoError(t, ctx.bitmapSet(bitmapData, 7))
	err := ctx.bitmapSet(bitmapData, 7)
	require.Error(t, err)
	assert.True(t, Is(err, KindFs))
}

func TestBitmapOutOfRange(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)

	huge := ctx.sb.DataBitmap.SizeBlocks * ctx.sb.BlocksPerGroup
	_, err := ctx.bitmapCheck(bitmapData, huge)
	require.Error(t, err)
	assert.True(t, Is(err, KindInvArg))
}

func TestReadGroupWordReflectsSetBits(t *testing.T) {
	ctx := newTestContext(t, 4, 1024)

	// formatImage already allocated one data block (bit 0) for root's
	// directory; account for it rather than colliding with it.
	before, err := ctx.readGroupWord(bitmapData, 0)
	require.NoError(t, err)
	baseline := countSetBits(before, ctx.groupLimit(0))

	require.NoError(t, ctx.bitmapSet(bitmapData, 10))
	require.NoError(t, ctx.bitmapSet(bitmapData, 11))

	word, err := ctx.readGroupWord(bitmapData, 0)
	require.NoError(t, err)
	assert.False(t, isAllZero(word))
	assert.Equal(t, baseline+2, countSetBits(word, ctx.groupLimit(0)))
}
