package sffs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// readSuperblock loads and validates the superblock at its fixed offset.
func (c *Context) readSuperblock() error {
	buf := make([]byte, superblockWireSize)
	if err := c.disk.readAt(buf, SuperblockOffset); err != nil {
		return newErr(KindDevRead, "readSuperblock", err)
	}
	var sb Superblock
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &sb); err != nil {
		return newErr(KindDevRead, "readSuperblock", err)
	}
	if sb.Magic != Magic {
		return newErr(KindInit, "readSuperblock", fmt.Errorf("bad magic %#x, image is not an sffs image", sb.Magic))
	}
	c.sb = sb
	return nil
}

// writeSuperblock persists the in-memory superblock and forces it
// durable. It bypasses writeBlock's block-0 guard deliberately: the
// superblock lives at a fixed byte offset, which falls inside block 0
// when the block size exceeds 1024 bytes, not behind the general
// block-write path.
func (c *Context) writeSuperblock() error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, c.sb); err != nil {
		return newErr(KindMemAlloc, "writeSuperblock", err)
	}
	if err := c.disk.writeAt(buf.Bytes(), SuperblockOffset); err != nil {
		return newErr(KindDevWrite, "writeSuperblock", err)
	}
	return c.disk.sync()
}
