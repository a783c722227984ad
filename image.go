package sffs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Image is the public handle to a mounted (or freshly initialized)
// file system. It wraps a *Context and forwards to it the same way
// pilat-go-ext4fs's Image forwards to its internal builder.
type Image struct {
	ctx  *Context
	path string
}

// Init formats a new image at the configured path and size, then mounts
// it. The path and size options are required.
func Init(opts ...ImageOption) (*Image, error) {
	cfg := defaultImageConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.path == "" {
		return nil, newErr(KindInvArg, "Init", fmt.Errorf("image path is required"))
	}
	if cfg.sizeBytes == 0 {
		return nil, newErr(KindInvArg, "Init", fmt.Errorf("image size is required"))
	}

	backend, err := openFileBackend(cfg.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if err := backend.truncate(int64(cfg.sizeBytes)); err != nil {
		_ = backend.close()
		return nil, err
	}

	blockSize := cfg.blockSize
	if blockSize == 0 {
		blockSize = uint32(os.Getpagesize())
		if blockSize > 4096 {
			blockSize = 4096
		}
	}

	sb, warn, err := computeSuperblock(cfg.sizeBytes, blockSize, cfg.inodeRatio, cfg.maxInodeList, lowPrecisionNow())
	if err != nil {
		_ = backend.close()
		return nil, err
	}
	sb.PreallocBlocks = cfg.preallocBlocks
	sb.PreallocDirBlocks = cfg.preallocDirBlocks
	if warn && cfg.warnFn != nil {
		cfg.warnFn(fmt.Sprintf("block size %d is outside the recommended [1024, 4096] range", sb.BlockSize))
	}

	ctx := &Context{disk: backend, sb: sb, debug: cfg.debug}
	if err := ctx.formatImage(); err != nil {
		_ = backend.close()
		return nil, err
	}

	return &Image{ctx: ctx, path: cfg.path}, nil
}

// Mount opens an existing image, validates its superblock, and bumps
// its mount-count bookkeeping.
func Mount(opts ...ImageOption) (*Image, error) {
	cfg := defaultImageConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.path == "" {
		return nil, newErr(KindInvArg, "Mount", fmt.Errorf("image path is required"))
	}

	backend, err := openFileBackend(cfg.path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	ctx := &Context{disk: backend, debug: cfg.debug}
	if err := ctx.readSuperblock(); err != nil {
		_ = backend.close()
		return nil, err
	}

	ctx.sb.MountCount++
	ctx.sb.WriteTime = lowPrecisionNow()
	if ctx.sb.MaxMountCount != 0 && ctx.sb.MountCount > ctx.sb.MaxMountCount && cfg.warnFn != nil {
		cfg.warnFn(fmt.Sprintf("mount count %d exceeds max_mount_count %d, a consistency check is recommended", ctx.sb.MountCount, ctx.sb.MaxMountCount))
	}
	if err := ctx.writeSuperblock(); err != nil {
		_ = backend.close()
		return nil, err
	}
	if ctx.debug {
		ctx.logf("✓ mounted %s, mount count %d", cfg.path, ctx.sb.MountCount)
	}

	return &Image{ctx: ctx, path: cfg.path}, nil
}

// Unmount flushes the superblock and closes the backing file.
func (img *Image) Unmount() error {
	if err := img.ctx.writeSuperblock(); err != nil {
		return err
	}
	return img.ctx.disk.close()
}

// Attr is the subset of inode metadata exposed to callers.
type Attr struct {
	Ino         uint32
	Mode        uint16
	UID         uint32
	GID         uint32
	LinkCount   uint16
	Size        uint64
	BlocksCount uint32
	AccessTime  int64
	ChangeTime  int64
	ModTime     int64
	CreateTime  int64
}

// Getattr returns the metadata for ino.
func (img *Image) Getattr(ino uint32) (*Attr, error) {
	inode, err := img.ctx.readInode(ino)
	if err != nil {
		return nil, err
	}
	size := uint64(inode.BlocksCount)*uint64(img.ctx.sb.BlockSize) - uint64(inode.ResidualBytes)
	return &Attr{
		Ino: inode.Ino, Mode: inode.Mode, UID: inode.UID, GID: inode.GID,
		LinkCount: inode.LinkCount, Size: size, BlocksCount: inode.BlocksCount,
		AccessTime: inode.AccessTime, ChangeTime: inode.ChangeTime,
		ModTime: inode.ModTime, CreateTime: inode.CreateTime,
	}, nil
}

// DirEntry is one name -> inode mapping returned by Readdir.
type DirEntry struct {
	Ino      uint32
	Name     string
	FileType uint16
}

// Readdir lists every live entry in the directory at ino.
func (img *Image) Readdir(ino uint32) ([]DirEntry, error) {
	dir, err := img.ctx.readInode(ino)
	if err != nil {
		return nil, err
	}
	if fileTypeNibble(dir.Mode) != FileTypeDir {
		return nil, newErr(KindInvArg, "Readdir", fmt.Errorf("inode %d is not a directory", ino))
	}

	var entries []DirEntry
	for n := uint32(0); n < dir.BlocksCount; n++ {
		res, err := img.ctx.resolveBlock(dir, n, ResolveRead)
		if err != nil {
			return nil, err
		}
		offset := uint32(0)
		for offset < img.ctx.sb.BlockSize {
			var hdr dirRecordHeader
			if err := binary.Read(bytes.NewReader(res.Data[offset:offset+dirRecordHeaderSize]), binary.LittleEndian, &hdr); err != nil {
				return nil, newErr(KindFs, "Readdir", err)
			}
			if hdr.Ino != 0 || hdr.FileType != 0 {
				nameLen := uint32(hdr.RecLen) - dirRecordHeaderSize
				name := string(res.Data[offset+dirRecordHeaderSize : offset+dirRecordHeaderSize+nameLen])
				entries = append(entries, DirEntry{Ino: hdr.Ino, Name: name, FileType: hdr.FileType})
			}
			offset += uint32(hdr.RecLen)
		}
	}
	return entries, nil
}

// Mkdir creates a new, empty directory named name under parent and
// returns its inode number.
func (img *Image) Mkdir(parent uint32, name string, mode uint16, uid, gid uint32) (uint32, error) {
	mode = (mode &^ ModeFmt) | ModeDir

	parentInode, err := img.ctx.readInode(parent)
	if err != nil {
		return 0, err
	}
	if fileTypeNibble(parentInode.Mode) != FileTypeDir {
		return 0, newErr(KindInvArg, "Mkdir", fmt.Errorf("parent inode %d is not a directory", parent))
	}

	if _, _, err := img.ctx.lookupDirEntry(parentInode, name); err == nil {
		return 0, newErr(KindEntExists, "Mkdir", fmt.Errorf("entry %q already exists", name))
	} else if !Is(err, KindNoEnt) {
		return 0, err
	}

	childIno, err := img.ctx.allocateInodeNumber()
	if err != nil {
		return 0, err
	}
	now := lowPrecisionNow64()
	child, err := img.ctx.createInode(childIno, mode, uid, gid, now)
	if err != nil {
		return 0, err
	}
	child.LinkCount = 2

	if err := img.ctx.allocateBlocks(child, 1, true); err != nil {
		return 0, err
	}
	block, err := img.ctx.initDirectory(childIno, parent)
	if err != nil {
		return 0, err
	}
	res, err := img.ctx.resolveBlock(child, 0, ResolveNone)
	if err != nil {
		return 0, err
	}
	if err := img.ctx.writeDataBlock(res.BlockID, block); err != nil {
		return 0, err
	}
	if err := img.ctx.writeInode(child, true); err != nil {
		return 0, err
	}

	if err := img.ctx.insertDirEntry(parentInode, name, childIno, mode); err != nil {
		return 0, err
	}
	parentInode.LinkCount++
	if err := img.ctx.writeInode(parentInode, false); err != nil {
		return 0, err
	}

	return childIno, nil
}

// StatfsResult reports aggregate file system usage.
type StatfsResult struct {
	BlockSize     uint32
	TotalBlocks   uint32
	FreeBlocks    uint32
	TotalInodes   uint32
	FreeInodes    uint32
	MountCount    uint16
	MaxMountCount uint16
	LastWriteTime uint16
}

// Statfs reports the current superblock counters, including the
// mount-count and last-write-time bookkeeping the wire format carries.
func (img *Image) Statfs() StatfsResult {
	sb := img.ctx.sb
	return StatfsResult{
		BlockSize: sb.BlockSize, TotalBlocks: sb.BlocksCount, FreeBlocks: sb.FreeBlocksCount,
		TotalInodes: sb.InodesCount, FreeInodes: sb.FreeInodesCount,
		MountCount: sb.MountCount, MaxMountCount: sb.MaxMountCount, LastWriteTime: sb.WriteTime,
	}
}

func (c *Context) logf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
