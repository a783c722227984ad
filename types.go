// Package sffs implements the on-disk layout, allocation engine, and
// inode-list indexing of a single-image, POSIX-style user-space file
// system. It does not itself bridge to a kernel VFS layer; callers embed
// an *Image and translate their own path-based calls into the operations
// exposed here (Mount, Unmount, Getattr, Readdir, Mkdir, Statfs).
//
// Example usage:
//
//	img, err := sffs.Init(sffs.WithImagePath("disk.img"), sffs.WithSize(50<<20))
//	if err != nil {
//		panic(err)
//	}
//	defer img.Unmount()
//
//	ino, err := img.Mkdir(sffs.RootIno, "etc", 0755, 0, 0)
package sffs

import "encoding/binary"

const (
	// Magic identifies a valid SFFS image. Mismatch at mount is fatal.
	Magic = 0x53FF5346

	// DefaultInodeRatio is the default bytes-per-inode ratio used to size
	// the inode table when none is supplied at Init time.
	DefaultInodeRatio = 131072

	// MaxMountDefault is the advisory mount-count ceiling before a caller
	// SHOULD schedule a consistency check; it is not enforced as a hard
	// failure (see SPEC_FULL.md, Supplemented Features).
	MaxMountDefault = 16

	// MaxInodeListDefault caps the number of records, primary included,
	// a single file's inode list may grow to. Zero means uncapped.
	MaxInodeListDefault = 32

	// MaxDirEntry bounds a directory record's total size, header included.
	MaxDirEntry = 256

	// SuperblockOffset is the fixed byte offset of the superblock.
	SuperblockOffset = 1024

	// BootRegionSize is the size in bytes of the unwritten boot area.
	BootRegionSize = 1024

	// RootIno is the inode number of the file system root.
	RootIno = 0

	// inodeHeaderSize is the fixed, on-disk size of a primary inode
	// record's header, including its 58 bytes of trailing padding.
	inodeHeaderSize = 128

	// inodeListHeaderSize is the fixed, on-disk size of a supplementary
	// inode-list record's header: {own inode number, next pointer}.
	inodeListHeaderSize = 8

	// primaryPointerCount is not fixed by the wire format; the on-disk
	// layout leaves the primary pointer-area size a per-image init-time
	// choice. 16 direct pointers matches the classic direct-block count
	// of small extent-free file systems.
	primaryPointerCount = 16
	inodeBlockSizeBytes = primaryPointerCount * 4

	dirRecordHeaderSize = 8

	// Mode bits: the type nibble occupies the top 4 bits.
	ModeFmt  = 0xF000
	ModeDir  = 0x4000
	ModeReg  = 0x8000
	ModePerm = 0x0FFF

	// File-type nibble values stored in directory records; these equal
	// the IFMT nibble directly rather than a sequential enumeration.
	FileTypeUnknown uint16 = 0
	FileTypeDir     uint16 = 0x4
	FileTypeReg     uint16 = 0x8
)

// superblockWireSize is the exact number of bytes a Superblock occupies
// on disk; used to decide whether the superblock spills past block 0.
var superblockWireSize = uint32(binary.Size(Superblock{}))

// RegionDescriptor locates a fixed-size metadata region: a starting
// absolute block number and a length in blocks. Readers use these
// fields rather than recomputing region boundaries from constants.
type RegionDescriptor struct {
	StartBlock uint32
	SizeBlocks uint32
}

// Superblock is the fixed, wire-exact record living at byte offset 1024.
// Every field is a multiple of 2 or 4 bytes, so encoding/binary packs
// them back-to-back with no implicit padding.
type Superblock struct {
	InodesCount     uint32
	FreeInodesCount uint32
	InodesReserved  uint32
	BlocksCount     uint32
	FreeBlocksCount uint32
	GroupsCount     uint32
	FreeGroupsCount uint32

	BlockSize      uint32
	BlocksPerGroup uint32

	MountTime      uint16
	WriteTime      uint16
	MountCount     uint16
	MaxMountCount  uint16
	State          uint16
	LastError      uint16
	InodeSize      uint16
	InodeBlockSize uint16

	Magic             uint32
	MaxInodeList      uint32
	Features          uint32
	PreallocBlocks    uint32
	PreallocDirBlocks uint32

	DataBitmap  RegionDescriptor
	InodeBitmap RegionDescriptor
	InodeTable  RegionDescriptor

	FirstDataBlock uint32
}

// onDiskInode is the fixed, wire-exact header of a primary inode record,
// immediately followed on disk by InodeBlockSize bytes of primary
// data-block pointers.
type onDiskInode struct {
	Ino           uint32
	NextEntry     uint32
	ListSize      uint32
	LastLEntry    uint32
	UID           uint32
	GID           uint32
	Flags         uint32
	BlocksCount   uint32
	ResidualBytes uint16
	Mode          uint16
	LinkCount     uint16
	AccessTime    uint64
	ChangeTime    uint64
	ModTime       uint64
	CreateTime    uint64
	Reserved      [58]byte
}

// listEntryHeader is the fixed header of a supplementary inode-list
// record: it trades away the metadata fields for a longer pointer array
// within the same table-slot size.
type listEntryHeader struct {
	Ino       uint32
	NextEntry uint32
}

// Inode is the runtime representation of a primary inode record: fixed
// metadata plus a pointer slice sized from the mounted superblock.
type Inode struct {
	Ino           uint32
	NextEntry     uint32
	ListSize      uint32
	LastLEntry    uint32
	UID           uint32
	GID           uint32
	Flags         uint32
	BlocksCount   uint32
	ResidualBytes uint16
	Mode          uint16
	LinkCount     uint16
	AccessTime    int64
	ChangeTime    int64
	ModTime       int64
	CreateTime    int64
	Pointers      []uint32
}

// listEntry is the runtime representation of a supplementary inode-list
// record.
type listEntry struct {
	Ino       uint32
	NextEntry uint32
	Pointers  []uint32
}

// dirRecordHeader is the fixed portion of a directory record; the name
// bytes (RecLen - 8 of them) follow immediately and are not
// NUL-terminated.
type dirRecordHeader struct {
	Ino      uint32
	RecLen   uint16
	FileType uint16
}
