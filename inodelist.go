package sffs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// writeListEntry persists a supplementary inode-list record. When
// newlyAllocated it also decrements the free-inode counter and sets the
// entry's own bitmap bit.
func (c *Context) writeListEntry(entry *listEntry, newlyAllocated bool) error {
	blockAbs, byteOff := c.inodeSlotOffset(entry.Ino)
	block, err := c.readBlock(blockAbs)
	if err != nil {
		return err
	}

	hdr := listEntryHeader{Ino: entry.Ino, NextEntry: entry.NextEntry}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return newErr(KindMemAlloc, "writeListEntry", err)
	}
	cap := c.supplementaryPointerCap()
	ptrs := make([]uint32, cap)
	copy(ptrs, entry.Pointers)
	if err := binary.Write(&buf, binary.LittleEndian, ptrs); err != nil {
		return newErr(KindMemAlloc, "writeListEntry", err)
	}

	copy(block[byteOff:], buf.Bytes())
	if err := c.writeBlock(blockAbs, block); err != nil {
		return err
	}

	if newlyAllocated {
		c.sb.FreeInodesCount--
		if err := c.bitmapSet(bitmapInode, entry.Ino); err != nil {
			return err
		}
	}
	return nil
}

// readListEntry reads a supplementary inode-list record. Unlike
// readInode this never returns KindNoEnt: reaching an unallocated slot
// while walking a chain is a corruption, not a lookup miss.
func (c *Context) readListEntry(ino uint32) (*listEntry, error) {
	set, err := c.bitmapCheck(bitmapInode, ino)
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, newErr(KindFs, "readListEntry", fmt.Errorf("inode list chain references unallocated inode %d", ino))
	}

	blockAbs, byteOff := c.inodeSlotOffset(ino)
	block, err := c.readBlock(blockAbs)
	if err != nil {
		return nil, err
	}

	var hdr listEntryHeader
	if err := binary.Read(bytes.NewReader(block[byteOff:byteOff+inodeListHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, newErr(KindFs, "readListEntry", err)
	}
	cap := c.supplementaryPointerCap()
	ptrs := make([]uint32, cap)
	ptrOff := byteOff + inodeListHeaderSize
	if err := binary.Read(bytes.NewReader(block[ptrOff:ptrOff+cap*4]), binary.LittleEndian, &ptrs); err != nil {
		return nil, newErr(KindFs, "readListEntry", err)
	}

	return &listEntry{Ino: hdr.Ino, NextEntry: hdr.NextEntry, Pointers: ptrs}, nil
}

// growInodeList appends size supplementary records to primary's chain.
// It prefers the contiguous range right after LastLEntry when that range
// lies within a single table block, and falls back to a
// full bitmap scan otherwise; the new records need not be contiguous on
// disk, only linked through NextEntry.
func (c *Context) growInodeList(primary *Inode, size uint32) error {
	if size == 0 {
		return nil
	}
	if c.sb.MaxInodeList != 0 && primary.ListSize+size > c.sb.MaxInodeList {
		return newErr(KindNoSpc, "growInodeList", fmt.Errorf("list size %d would exceed cap %d", primary.ListSize+size, c.sb.MaxInodeList))
	}
	if c.sb.FreeInodesCount < size {
		return newErr(KindNoSpc, "growInodeList", fmt.Errorf("need %d free inodes, have %d", size, c.sb.FreeInodesCount))
	}

	slots, err := c.chooseListSlots(primary.LastLEntry, size)
	if err != nil {
		return err
	}

	tailIsPrimary := primary.LastLEntry == primary.Ino

	for i, ino := range slots {
		next := uint32(0)
		if i+1 < len(slots) {
			next = slots[i+1]
		}
		entry := &listEntry{Ino: ino, NextEntry: next, Pointers: make([]uint32, c.supplementaryPointerCap())}
		if err := c.writeListEntry(entry, true); err != nil {
			return err
		}
	}

	if tailIsPrimary {
		primary.NextEntry = slots[0]
	} else {
		tail, err := c.readListEntry(primary.LastLEntry)
		if err != nil {
			return err
		}
		tail.NextEntry = slots[0]
		if err := c.writeListEntry(tail, false); err != nil {
			return err
		}
	}

	primary.ListSize += size
	primary.LastLEntry = slots[len(slots)-1]
	return c.writeInode(primary, false)
}

// chooseListSlots implements the sequential-then-scan slot selection
// policy without marking anything used.
func (c *Context) chooseListSlots(lastLEntry uint32, size uint32) ([]uint32, error) {
	perBlock := c.inodesPerBlock()
	start := lastLEntry + 1

	if start%perBlock+size <= perBlock && start+size <= c.sb.InodesCount {
		allClear := true
		for i := uint32(0); i < size; i++ {
			set, err := c.bitmapCheck(bitmapInode, start+i)
			if err != nil {
				return nil, err
			}
			if set {
				allClear = false
				break
			}
		}
		if allClear {
			slots := make([]uint32, size)
			for i := uint32(0); i < size; i++ {
				slots[i] = start + i
			}
			return slots, nil
		}
	}

	slots := make([]uint32, 0, size)
	for ino := uint32(0); ino < c.sb.InodesCount && uint32(len(slots)) < size; ino++ {
		set, err := c.bitmapCheck(bitmapInode, ino)
		if err != nil {
			return nil, err
		}
		if !set {
			slots = append(slots, ino)
		}
	}
	if uint32(len(slots)) < size {
		return nil, newErr(KindNoSpc, "chooseListSlots", fmt.Errorf("only found %d of %d needed free inodes", len(slots), size))
	}
	return slots, nil
}
