package sffs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// dirLocation identifies where a directory record lives, for callers
// that need to splice it out later (rename, unlink).
type dirLocation struct {
	BlockID   uint32 // data-relative
	Offset    uint32 // byte offset within the block
	ParentIno uint32
}

// initDirectory formats one fresh data block as a new directory: "."
// and ".." records followed by a single sentinel filling the rest of
// the block. Root directories pass parentIno == selfIno.
func (c *Context) initDirectory(selfIno, parentIno uint32) ([]byte, error) {
	var buf bytes.Buffer

	writeRec := func(ino uint32, recLen uint16, fileType uint16, name string) error {
		hdr := dirRecordHeader{Ino: ino, RecLen: recLen, FileType: fileType}
		if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
			return err
		}
		buf.WriteString(name)
		return nil
	}

	if err := writeRec(selfIno, dirRecordHeaderSize+1, FileTypeDir, "."); err != nil {
		return nil, newErr(KindMemAlloc, "initDirectory", err)
	}
	if err := writeRec(parentIno, dirRecordHeaderSize+2, FileTypeDir, ".."); err != nil {
		return nil, newErr(KindMemAlloc, "initDirectory", err)
	}

	used := uint32(buf.Len())
	sentinelLen := c.sb.BlockSize - used
	if err := writeRec(0, uint16(sentinelLen), 0, ""); err != nil {
		return nil, newErr(KindMemAlloc, "initDirectory", err)
	}

	block := make([]byte, c.sb.BlockSize)
	copy(block, buf.Bytes())
	return block, nil
}

// newDirRecord builds a packed directory record ready for insertion.
func newDirRecord(ino uint32, mode uint16, name string) ([]byte, error) {
	if len(name) > MaxDirEntry-dirRecordHeaderSize {
		return nil, newErr(KindInvArg, "newDirRecord", fmt.Errorf("name %q exceeds the maximum entry length", name))
	}
	recLen := uint16(dirRecordHeaderSize + len(name))
	hdr := dirRecordHeader{Ino: ino, RecLen: recLen, FileType: fileTypeNibble(mode)}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, newErr(KindMemAlloc, "newDirRecord", err)
	}
	buf.WriteString(name)
	return buf.Bytes(), nil
}

// lookupDirEntry scans dir's data blocks for name.
func (c *Context) lookupDirEntry(dir *Inode, name string) (uint32, *dirLocation, error) {
	for n := uint32(0); n < dir.BlocksCount; n++ {
		res, err := c.resolveBlock(dir, n, ResolveRead)
		if err != nil {
			return 0, nil, err
		}
		offset := uint32(0)
		for offset < c.sb.BlockSize {
			var hdr dirRecordHeader
			if err := binary.Read(bytes.NewReader(res.Data[offset:offset+dirRecordHeaderSize]), binary.LittleEndian, &hdr); err != nil {
				return 0, nil, newErr(KindFs, "lookupDirEntry", err)
			}
			if hdr.RecLen < dirRecordHeaderSize {
				return 0, nil, newErr(KindFs, "lookupDirEntry", fmt.Errorf("record length %d below the minimum", hdr.RecLen))
			}
			// A sentinel has Ino 0 and file type 0; the root's own "."
			// and ".." also carry Ino 0 but have the directory file type.
			if hdr.Ino != 0 || hdr.FileType != 0 {
				nameLen := uint32(hdr.RecLen) - dirRecordHeaderSize
				entryName := string(res.Data[offset+dirRecordHeaderSize : offset+dirRecordHeaderSize+nameLen])
				if entryName == name {
					return hdr.Ino, &dirLocation{BlockID: res.BlockID, Offset: offset, ParentIno: dir.Ino}, nil
				}
			}
			offset += uint32(hdr.RecLen)
		}
	}
	return 0, nil, newErr(KindNoEnt, "lookupDirEntry", fmt.Errorf("no entry named %q", name))
}

// insertDirEntry adds a name -> ino mapping to dir, reusing a
// sufficiently large sentinel gap or extending the directory with a
// fresh block when no existing gap fits.
func (c *Context) insertDirEntry(dir *Inode, name string, ino uint32, mode uint16) error {
	if _, _, err := c.lookupDirEntry(dir, name); err == nil {
		return newErr(KindEntExists, "insertDirEntry", fmt.Errorf("entry %q already exists", name))
	} else if !Is(err, KindNoEnt) {
		return err
	}

	rec, err := newDirRecord(ino, mode, name)
	if err != nil {
		return err
	}
	recLen := uint16(len(rec))

	for n := uint32(0); n < dir.BlocksCount; n++ {
		res, err := c.resolveBlock(dir, n, ResolveRead)
		if err != nil {
			return err
		}
		ok, err := tryInsertIntoBlock(res.Data, rec, recLen)
		if err != nil {
			return err
		}
		if ok {
			return c.writeDataBlock(res.BlockID, res.Data)
		}
	}

	if err := c.allocateBlocks(dir, 1, true); err != nil {
		return err
	}
	res, err := c.resolveBlock(dir, dir.BlocksCount-1, ResolveNone)
	if err != nil {
		return err
	}

	block := make([]byte, c.sb.BlockSize)
	sentinel := dirRecordHeader{Ino: 0, RecLen: uint16(c.sb.BlockSize), FileType: 0}
	var sbuf bytes.Buffer
	if err := binary.Write(&sbuf, binary.LittleEndian, sentinel); err != nil {
		return newErr(KindMemAlloc, "insertDirEntry", err)
	}
	copy(block, sbuf.Bytes())

	ok, err := tryInsertIntoBlock(block, rec, recLen)
	if err != nil {
		return err
	}
	if !ok {
		return newErr(KindFs, "insertDirEntry", fmt.Errorf("record of length %d does not fit in a fresh block", recLen))
	}
	return c.writeDataBlock(res.BlockID, block)
}

// tryInsertIntoBlock scans block for a sentinel gap large enough to hold
// rec, splitting the gap into {rec, smaller trailing sentinel}. A gap is
// only usable if splitting it still leaves room for a full minimum-size
// sentinel afterward; consuming a gap entirely would remove the block's
// terminator, which is never valid.
func tryInsertIntoBlock(block []byte, rec []byte, recLen uint16) (bool, error) {
	offset := uint32(0)
	for offset < uint32(len(block)) {
		var hdr dirRecordHeader
		if err := binary.Read(bytes.NewReader(block[offset:offset+dirRecordHeaderSize]), binary.LittleEndian, &hdr); err != nil {
			return false, newErr(KindFs, "tryInsertIntoBlock", err)
		}
		if hdr.RecLen < dirRecordHeaderSize {
			return false, newErr(KindFs, "tryInsertIntoBlock", fmt.Errorf("record length %d below the minimum", hdr.RecLen))
		}
		if hdr.Ino == 0 && hdr.RecLen >= recLen+dirRecordHeaderSize {
			remaining := hdr.RecLen - recLen
			copy(block[offset:], rec)

			newSentinel := dirRecordHeader{Ino: 0, RecLen: remaining, FileType: 0}
			var sbuf bytes.Buffer
			if err := binary.Write(&sbuf, binary.LittleEndian, newSentinel); err != nil {
				return false, newErr(KindMemAlloc, "tryInsertIntoBlock", err)
			}
			copy(block[offset+uint32(recLen):], sbuf.Bytes())
			return true, nil
		}
		offset += uint32(hdr.RecLen)
	}
	return false, nil
}
