package sffs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// createInode builds a fresh in-memory primary inode record. It does not
// touch disk; callers persist it with writeInode.
func (c *Context) createInode(ino uint32, mode uint16, uid, gid uint32, now int64) (*Inode, error) {
	if !isSingleTypeBit(mode) {
		return nil, newErr(KindInvArg, "createInode", fmt.Errorf("mode %#o must set exactly one file-type bit", mode))
	}
	return &Inode{
		Ino:        ino,
		NextEntry:  0,
		ListSize:   1,
		LastLEntry: ino,
		UID:        uid,
		GID:        gid,
		Mode:       mode,
		LinkCount:  1,
		AccessTime: now,
		ChangeTime: now,
		ModTime:    now,
		CreateTime: now,
		Pointers:   make([]uint32, c.primaryPointerCap()),
	}, nil
}

// inodeSlotOffset locates ino's fixed-size slot in the inode table: the
// absolute table block holding it, and the byte offset within that
// block. Slots never straddle a block boundary because inodesPerBlock
// is a floor division.
func (c *Context) inodeSlotOffset(ino uint32) (blockAbs uint32, byteOff uint32) {
	perBlock := c.inodesPerBlock()
	entrySize := c.entrySize()
	blockAbs = c.sb.InodeTable.StartBlock + ino/perBlock
	byteOff = (ino % perBlock) * entrySize
	return
}

func encodeInode(inode *Inode, primaryCap uint32) ([]byte, error) {
	hdr := onDiskInode{
		Ino: inode.Ino, NextEntry: inode.NextEntry, ListSize: inode.ListSize,
		LastLEntry: inode.LastLEntry, UID: inode.UID, GID: inode.GID,
		Flags: inode.Flags, BlocksCount: inode.BlocksCount,
		ResidualBytes: inode.ResidualBytes, Mode: inode.Mode, LinkCount: inode.LinkCount,
		AccessTime: uint64(inode.AccessTime), ChangeTime: uint64(inode.ChangeTime),
		ModTime: uint64(inode.ModTime), CreateTime: uint64(inode.CreateTime),
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	ptrs := make([]uint32, primaryCap)
	copy(ptrs, inode.Pointers)
	if err := binary.Write(&buf, binary.LittleEndian, ptrs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeInode persists a primary inode record's table slot. When
// newlyAllocated it also decrements the free-inode counter and sets the
// inode's bitmap bit; callers that are only updating an existing
// inode's metadata pass false.
func (c *Context) writeInode(inode *Inode, newlyAllocated bool) error {
	blockAbs, byteOff := c.inodeSlotOffset(inode.Ino)
	block, err := c.readBlock(blockAbs)
	if err != nil {
		return err
	}

	raw, err := encodeInode(inode, c.primaryPointerCap())
	if err != nil {
		return newErr(KindMemAlloc, "writeInode", err)
	}
	copy(block[byteOff:], raw)

	if err := c.writeBlock(blockAbs, block); err != nil {
		return err
	}

	if newlyAllocated {
		c.sb.FreeInodesCount--
		if err := c.bitmapSet(bitmapInode, inode.Ino); err != nil {
			return err
		}
	}
	return nil
}

// readInode reads a primary inode record, failing with KindNoEnt if its
// bitmap bit is clear.
func (c *Context) readInode(ino uint32) (*Inode, error) {
	if ino >= c.sb.InodesCount {
		return nil, newErr(KindInvArg, "readInode", fmt.Errorf("inode %d out of range", ino))
	}
	set, err := c.bitmapCheck(bitmapInode, ino)
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, newErr(KindNoEnt, "readInode", fmt.Errorf("inode %d not allocated", ino))
	}

	blockAbs, byteOff := c.inodeSlotOffset(ino)
	block, err := c.readBlock(blockAbs)
	if err != nil {
		return nil, err
	}

	entrySize := c.entrySize()
	raw := block[byteOff : byteOff+entrySize]

	var hdr onDiskInode
	if err := binary.Read(bytes.NewReader(raw[:inodeHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, newErr(KindFs, "readInode", err)
	}

	primaryCap := c.primaryPointerCap()
	ptrs := make([]uint32, primaryCap)
	if err := binary.Read(bytes.NewReader(raw[inodeHeaderSize:]), binary.LittleEndian, &ptrs); err != nil {
		return nil, newErr(KindFs, "readInode", err)
	}

	return &Inode{
		Ino: hdr.Ino, NextEntry: hdr.NextEntry, ListSize: hdr.ListSize, LastLEntry: hdr.LastLEntry,
		UID: hdr.UID, GID: hdr.GID, Flags: hdr.Flags, BlocksCount: hdr.BlocksCount,
		ResidualBytes: hdr.ResidualBytes, Mode: hdr.Mode, LinkCount: hdr.LinkCount,
		AccessTime: int64(hdr.AccessTime), ChangeTime: int64(hdr.ChangeTime),
		ModTime: int64(hdr.ModTime), CreateTime: int64(hdr.CreateTime),
		Pointers: ptrs,
	}, nil
}

// allocateInodeNumber scans the inode bitmap for the first clear bit.
func (c *Context) allocateInodeNumber() (uint32, error) {
	for ino := uint32(0); ino < c.sb.InodesCount; ino++ {
		set, err := c.bitmapCheck(bitmapInode, ino)
		if err != nil {
			return 0, err
		}
		if !set {
			return ino, nil
		}
	}
	return 0, newErr(KindNoSpc, "allocateInodeNumber", fmt.Errorf("no free inodes"))
}
