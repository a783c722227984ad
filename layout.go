package sffs

import (
	"fmt"
	"os"
)

// validateBlockSize enforces the two hard constraints on block size
// (power of two, no larger than the host's page size) and reports
// whether the value falls outside the recommended [1024, 4096] range,
// which is a warning, not a failure.
func validateBlockSize(size uint32) (warn bool, err error) {
	if size == 0 || size&(size-1) != 0 {
		return false, newErr(KindInvBlk, "validateBlockSize", fmt.Errorf("block size %d is not a power of two", size))
	}
	if int(size) > os.Getpagesize() {
		return false, newErr(KindInvBlk, "validateBlockSize", fmt.Errorf("block size %d exceeds host page size %d", size, os.Getpagesize()))
	}
	if size < 1024 || size > 4096 {
		return true, nil
	}
	return false, nil
}

// computeSuperblock runs the on-disk layout's init algorithm: given a
// target image size and block size, it lays out the data bitmap, inode
// bitmap, and inode table back to back starting right after the boot
// region and superblock, and returns a fully populated Superblock ready
// to be written by fsinit.go's formatImage.
func computeSuperblock(fsSize uint64, blockSize uint32, inodeRatio uint32, maxInodeList uint32, now uint16) (Superblock, bool, error) {
	warn, err := validateBlockSize(blockSize)
	if err != nil {
		return Superblock{}, false, err
	}
	if inodeRatio == 0 {
		inodeRatio = DefaultInodeRatio
	}

	totalBlocks := uint32(fsSize / uint64(blockSize))
	if totalBlocks == 0 {
		return Superblock{}, warn, newErr(KindInit, "computeSuperblock", fmt.Errorf("image size %d too small for block size %d", fsSize, blockSize))
	}

	totalInodes := (totalBlocks * blockSize) / inodeRatio
	if totalInodes == 0 {
		totalInodes = 1
	}

	entrySize := uint32(inodeHeaderSize + inodeBlockSizeBytes)
	perBlock := blockSize / entrySize
	if perBlock == 0 {
		return Superblock{}, warn, newErr(KindInit, "computeSuperblock", fmt.Errorf("block size %d too small for inode entry size %d", blockSize, entrySize))
	}

	gitSizeBlocks := totalInodes/perBlock + 1
	gitBitmapBytes := totalInodes/8 + 1
	gitBitmapBlocks := gitBitmapBytes/blockSize + 1

	bootBlocks := uint32(0)
	if blockSize <= BootRegionSize {
		bootBlocks = BootRegionSize / blockSize
	}

	// When blockSize <= BootRegionSize, BootRegionSize is an exact
	// multiple of blockSize (both powers of two), so byte offset 1024
	// lands exactly on the boundary of block bootBlocks: the superblock
	// starts its own block rather than sharing one with the boot region,
	// and only spills into a second block if its own wire size exceeds
	// one block. Above BootRegionSize, the superblock instead starts
	// partway through block 0, so the spillover test is against the
	// distance from that offset to the end of the block.
	superblockStart := uint32(0)
	if blockSize <= BootRegionSize {
		if superblockWireSize > blockSize {
			superblockStart = 1
		}
	} else if SuperblockOffset+superblockWireSize > blockSize {
		superblockStart = 1
	}

	metaBlocks := bootBlocks + superblockStart + 1 + gitBitmapBlocks + gitSizeBlocks
	if metaBlocks >= totalBlocks {
		return Superblock{}, warn, newErr(KindInit, "computeSuperblock", fmt.Errorf("image too small for metadata: need more than %d blocks", metaBlocks))
	}
	remaining := totalBlocks - metaBlocks

	dataBitmapBytes := remaining/8 + 1
	dataBitmapBlocks := dataBitmapBytes/blockSize + 1
	if dataBitmapBlocks >= remaining {
		return Superblock{}, warn, newErr(KindInit, "computeSuperblock", fmt.Errorf("image too small for the data bitmap"))
	}
	dataBlocks := remaining - dataBitmapBlocks

	acc := bootBlocks + superblockStart + 1

	sb := Superblock{
		InodesCount:     totalInodes,
		FreeInodesCount: totalInodes,
		BlocksCount:     totalBlocks,
		FreeBlocksCount: dataBlocks,
		BlockSize:       blockSize,
		BlocksPerGroup:  blockSize * 8,
		WriteTime:       now,
		MaxMountCount:   MaxMountDefault,
		InodeSize:       inodeHeaderSize,
		InodeBlockSize:  uint16(inodeBlockSizeBytes),
		Magic:           Magic,
		MaxInodeList:    maxInodeList,
	}

	sb.DataBitmap = RegionDescriptor{StartBlock: acc, SizeBlocks: dataBitmapBlocks}
	acc += dataBitmapBlocks
	sb.InodeBitmap = RegionDescriptor{StartBlock: acc, SizeBlocks: gitBitmapBlocks}
	acc += gitBitmapBlocks
	sb.InodeTable = RegionDescriptor{StartBlock: acc, SizeBlocks: gitSizeBlocks}
	acc += gitSizeBlocks

	sb.FirstDataBlock = acc
	sb.GroupsCount = ceilDiv(dataBlocks, sb.BlocksPerGroup)
	sb.FreeGroupsCount = sb.GroupsCount

	return sb, warn, nil
}
