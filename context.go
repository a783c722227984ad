package sffs

// Context is the explicit, heap-allocated state for one mounted image.
// It replaces a process-wide global with an object every core operation
// takes as its receiver: callers may hold several Contexts (in tests) or
// exactly one (in a real mount), and are responsible for not calling
// into the same Context from more than one goroutine at a time (see the
// single-threaded, cooperative concurrency model).
type Context struct {
	disk  diskBackend
	sb    Superblock
	debug bool
}

// entrySize is the fixed size, in bytes, of one inode-table slot: header
// plus pointer area. Primary and supplementary records share this slot
// size even though they lay out their bytes differently.
func (c *Context) entrySize() uint32 {
	return uint32(c.sb.InodeSize) + uint32(c.sb.InodeBlockSize)
}

func (c *Context) inodesPerBlock() uint32 {
	return c.sb.BlockSize / c.entrySize()
}

// primaryPointerCap is P: the number of data-block pointers a primary
// inode record carries directly.
func (c *Context) primaryPointerCap() uint32 {
	return uint32(c.sb.InodeBlockSize) / 4
}

// supplementaryPointerCap is Q: the number of data-block pointers a
// supplementary inode-list record carries, which is larger than P since
// it spends none of the slot on file metadata.
func (c *Context) supplementaryPointerCap() uint32 {
	return (uint32(c.sb.InodeSize) + uint32(c.sb.InodeBlockSize) - inodeListHeaderSize) / 4
}

// dataBlockCount is the total number of data-relative block indices the
// data bitmap addresses.
func (c *Context) dataBlockCount() uint32 {
	return c.sb.BlocksCount - c.sb.FirstDataBlock
}

// groupLimit returns the number of valid data-relative bits in group,
// clipped for a final, possibly-short group.
func (c *Context) groupLimit(group uint32) uint32 {
	total := c.dataBlockCount()
	start := group * c.sb.BlocksPerGroup
	if start >= total {
		return 0
	}
	end := start + c.sb.BlocksPerGroup
	if end > total {
		end = total
	}
	return end - start
}
