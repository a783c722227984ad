package sffs

import "fmt"

// allocateBlocks grows primary's data by count blocks, following the
// three-tier selection policy (extend the last group, then a fresh
// empty group, then a linear scan) and a two-phase commit: pointers are
// registered and the inode is persisted first, then the bitmap bits are
// set, rolling back any bits already set if the phase fails partway.
// A rollback does not undo the pointer registration already on disk —
// the inode is left holding block IDs the bitmap does not yet mark used,
// which a later fsck-style pass would need to reconcile.
func (c *Context) allocateBlocks(primary *Inode, count uint32, isDir bool) error {
	if count == 0 {
		return nil
	}

	requested := count
	boosted := count
	if isDir {
		boosted += c.sb.PreallocDirBlocks
	} else {
		boosted += c.sb.PreallocBlocks
	}
	if boosted > c.sb.FreeBlocksCount {
		boosted = requested
	}
	if requested > c.sb.FreeBlocksCount {
		return newErr(KindNoSpc, "allocateBlocks", fmt.Errorf("need %d free blocks, have %d", requested, c.sb.FreeBlocksCount))
	}

	if err := c.ensureListCapacity(primary, boosted); err != nil {
		return err
	}

	chosen, allocatedGroups, err := c.chooseFreeBlocks(primary, boosted)
	if err != nil {
		return err
	}

	// Phase A: register pointers, update counters, persist the inode.
	// Commits the full boosted count, not just requested; a caller that
	// wants exactly count blocks and nothing more should pass a zero
	// PreallocBlocks/PreallocDirBlocks.
	start := primary.BlocksCount
	for i, blk := range chosen {
		if err := c.setBlockPointer(primary, start+uint32(i), blk); err != nil {
			return err
		}
	}
	primary.BlocksCount += uint32(len(chosen))
	c.sb.FreeBlocksCount -= uint32(len(chosen))
	c.sb.FreeGroupsCount -= allocatedGroups
	if err := c.writeInode(primary, false); err != nil {
		return err
	}

	// Phase B: commit the bitmap, rolling back bits already set on
	// partial failure.
	for i, blk := range chosen {
		if err := c.bitmapSet(bitmapData, blk); err != nil {
			for _, done := range chosen[:i] {
				_ = c.bitmapClear(bitmapData, done)
			}
			return err
		}
	}

	return nil
}

// ensureListCapacity grows primary's inode list, if needed, so that its
// pointer capacity can hold boosted more blocks than it currently has.
func (c *Context) ensureListCapacity(primary *Inode, boosted uint32) error {
	p := c.primaryPointerCap()
	q := c.supplementaryPointerCap()
	capacity := p
	if primary.ListSize > 1 {
		capacity += (primary.ListSize - 1) * q
	}
	deficit := int64(primary.BlocksCount) + int64(boosted) - int64(capacity)
	if deficit <= 0 {
		return nil
	}
	needed := ceilDivU64(uint64(deficit), uint64(q))
	return c.growInodeList(primary, needed)
}

// chooseFreeBlocks selects up to need data-relative block indices
// without marking any of them used.
func (c *Context) chooseFreeBlocks(primary *Inode, need uint32) ([]uint32, uint32, error) {
	chosen := make([]uint32, 0, need)
	var allocatedGroups uint32

	// Step 1: extend the file's last group.
	if primary.BlocksCount > 0 && uint32(len(chosen)) < need {
		last, err := c.resolveBlock(primary, primary.BlocksCount-1, ResolveLast)
		if err != nil {
			return nil, 0, err
		}
		group := last.BlockID / c.sb.BlocksPerGroup
		offset := last.BlockID % c.sb.BlocksPerGroup
		limit := c.groupLimit(group)

		word, err := c.readGroupWord(bitmapData, group)
		if err != nil {
			return nil, 0, err
		}
		for bit := offset + 1; bit < limit && uint32(len(chosen)) < need; bit++ {
			if word[bit/8]&(1<<(bit%8)) == 0 {
				chosen = append(chosen, group*c.sb.BlocksPerGroup+bit)
			}
		}
	}

	// Step 2: fresh empty groups.
	for g := uint32(0); g < c.sb.DataBitmap.SizeBlocks && uint32(len(chosen)) < need; g++ {
		limit := c.groupLimit(g)
		if limit == 0 {
			continue
		}
		word, err := c.readGroupWord(bitmapData, g)
		if err != nil {
			return nil, 0, err
		}
		if !isAllZero(word[:ceilDiv(limit, 8)]) {
			continue
		}
		groupStart := g * c.sb.BlocksPerGroup
		for bit := uint32(0); bit < limit && uint32(len(chosen)) < need; bit++ {
			chosen = append(chosen, groupStart+bit)
		}
		allocatedGroups++
	}

	// Step 3: linear scan for any remaining clear bits.
	if uint32(len(chosen)) < need {
		already := make(map[uint32]bool, len(chosen))
		for _, b := range chosen {
			already[b] = true
		}
		total := c.dataBlockCount()
		for bit := uint32(0); bit < total && uint32(len(chosen)) < need; bit++ {
			if already[bit] {
				continue
			}
			set, err := c.bitmapCheck(bitmapData, bit)
			if err != nil {
				return nil, 0, err
			}
			if !set {
				chosen = append(chosen, bit)
			}
		}
	}

	if uint32(len(chosen)) < need {
		return nil, 0, newErr(KindNoSpc, "chooseFreeBlocks", fmt.Errorf("only found %d of %d needed blocks", len(chosen), need))
	}
	return chosen, allocatedGroups, nil
}
