package sffs

import "fmt"

// ResolveFlags controls resolveBlock's extra behavior.
type ResolveFlags uint8

const (
	ResolveNone ResolveFlags = 0
	// ResolveLast resolves the file's last allocated logical block
	// instead of a caller-supplied n.
	ResolveLast ResolveFlags = 1 << iota
	// ResolveRead additionally reads the resolved block's contents.
	ResolveRead
)

// ResolveResult identifies one pointer slot and, optionally, the data it
// points to.
type ResolveResult struct {
	BlockID  uint32 // data-relative block id held in the slot
	OwnerIno uint32 // inode number of the record owning the slot
	SlotIdx  uint32 // index of the slot within the owner's pointer array
	Data     []byte // populated only when ResolveRead is set
}

// resolveBlock walks a file's inode list to find the pointer slot for
// logical block n: slots 0..P-1 live in the primary record, and every Q
// slots after that live in the next supplementary record in the chain.
func (c *Context) resolveBlock(primary *Inode, n uint32, flags ResolveFlags) (*ResolveResult, error) {
	if flags&ResolveLast != 0 {
		if primary.BlocksCount == 0 {
			n = 0
		} else {
			n = primary.BlocksCount - 1
		}
	}

	p := c.primaryPointerCap()
	q := c.supplementaryPointerCap()

	var res ResolveResult
	if n < p {
		res = ResolveResult{BlockID: primary.Pointers[n], OwnerIno: primary.Ino, SlotIdx: n}
	} else {
		m := n - p
		hop := m/q + 1
		slot := m % q

		cur := primary.NextEntry
		var entry *listEntry
		for i := uint32(0); i < hop; i++ {
			if cur == 0 {
				return nil, newErr(KindFs, "resolveBlock", fmt.Errorf("inode list chain shorter than expected at hop %d of %d", i, hop))
			}
			e, err := c.readListEntry(cur)
			if err != nil {
				return nil, err
			}
			entry = e
			cur = e.NextEntry
		}
		res = ResolveResult{BlockID: entry.Pointers[slot], OwnerIno: entry.Ino, SlotIdx: slot}
	}

	if flags&ResolveRead != 0 {
		data, err := c.readDataBlock(res.BlockID)
		if err != nil {
			return nil, err
		}
		res.Data = data
	}

	return &res, nil
}

// setBlockPointer writes blockID into primary's logical slot n, walking
// the chain to the owning record the same way resolveBlock does.
func (c *Context) setBlockPointer(primary *Inode, n uint32, blockID uint32) error {
	p := c.primaryPointerCap()
	if n < p {
		primary.Pointers[n] = blockID
		return nil
	}

	q := c.supplementaryPointerCap()
	m := n - p
	hop := m/q + 1
	slot := m % q

	cur := primary.NextEntry
	var entry *listEntry
	for i := uint32(0); i < hop; i++ {
		if cur == 0 {
			return newErr(KindFs, "setBlockPointer", fmt.Errorf("inode list chain shorter than expected at hop %d of %d", i, hop))
		}
		e, err := c.readListEntry(cur)
		if err != nil {
			return err
		}
		entry = e
		cur = e.NextEntry
	}
	entry.Pointers[slot] = blockID
	return c.writeListEntry(entry, false)
}
