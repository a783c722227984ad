package sffs

import "fmt"

// readBlock reads one block at an absolute block index (counted from the
// start of the image, block 0 being the unwritten boot region).
func (c *Context) readBlock(abs uint32) ([]byte, error) {
	buf := make([]byte, c.sb.BlockSize)
	if err := c.disk.readAt(buf, int64(abs)*int64(c.sb.BlockSize)); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeBlock writes one block at an absolute block index and forces it
// durable before returning. Block 0 is reserved for the boot region and
// may never be targeted through this path.
func (c *Context) writeBlock(abs uint32, data []byte) error {
	if abs == 0 {
		return newErr(KindInvBlk, "writeBlock", fmt.Errorf("block 0 is reserved for the boot region"))
	}
	if err := c.disk.writeAt(data, int64(abs)*int64(c.sb.BlockSize)); err != nil {
		return err
	}
	return c.disk.sync()
}

// readDataBlock and writeDataBlock address blocks relative to the start
// of the data region, translated to an absolute index via the
// superblock's FirstDataBlock field rather than recomputed from the
// region sizes on every call.
func (c *Context) readDataBlock(rel uint32) ([]byte, error) {
	return c.readBlock(c.sb.FirstDataBlock + rel)
}

func (c *Context) writeDataBlock(rel uint32, data []byte) error {
	return c.writeBlock(c.sb.FirstDataBlock+rel, data)
}
