package sffs

// imageConfig accumulates ImageOption settings before Init/Mount act on
// them.
type imageConfig struct {
	path              string
	sizeBytes         uint64
	blockSize         uint32
	inodeRatio        uint32
	maxInodeList      uint32
	preallocBlocks    uint32
	preallocDirBlocks uint32
	debug             bool
	warnFn            func(string)
}

func defaultImageConfig() imageConfig {
	return imageConfig{
		inodeRatio:   DefaultInodeRatio,
		maxInodeList: MaxInodeListDefault,
	}
}

// ImageOption is a functional option for Init and Mount.
type ImageOption func(*imageConfig)

// WithImagePath sets the backing image file path.
func WithImagePath(path string) ImageOption {
	return func(c *imageConfig) { c.path = path }
}

// WithSize sets the image size in bytes. Init only.
func WithSize(sizeBytes uint64) ImageOption {
	return func(c *imageConfig) { c.sizeBytes = sizeBytes }
}

// WithSizeInMB sets the image size in mebibytes. Init only.
func WithSizeInMB(mb int) ImageOption {
	return func(c *imageConfig) { c.sizeBytes = uint64(mb) * 1024 * 1024 }
}

// WithBlockSize sets the block size in bytes. Init only; must be a
// power of two no larger than the host's page size.
func WithBlockSize(blockSize uint32) ImageOption {
	return func(c *imageConfig) { c.blockSize = blockSize }
}

// WithInodeRatio sets the bytes-per-inode ratio used to size the inode
// table. Init only.
func WithInodeRatio(ratio uint32) ImageOption {
	return func(c *imageConfig) { c.inodeRatio = ratio }
}

// WithMaxInodeList caps the number of records, primary included, a
// single file's inode list may grow to. Zero means uncapped. Init only.
func WithMaxInodeList(max uint32) ImageOption {
	return func(c *imageConfig) { c.maxInodeList = max }
}

// WithPreallocBlocks sets how many extra data blocks allocateBlocks
// tries to commit ahead of a regular file's immediate need. Zero (the
// default) disables preallocation. Init only.
func WithPreallocBlocks(count uint32) ImageOption {
	return func(c *imageConfig) { c.preallocBlocks = count }
}

// WithPreallocDirBlocks is WithPreallocBlocks for directories. Init only.
func WithPreallocDirBlocks(count uint32) ImageOption {
	return func(c *imageConfig) { c.preallocDirBlocks = count }
}

// WithDebug enables progress logging during Init/Mount.
func WithDebug(debug bool) ImageOption {
	return func(c *imageConfig) { c.debug = debug }
}

// WithWarnFunc registers a callback invoked with human-readable warnings
// that don't fail the operation (e.g. an out-of-range block size).
func WithWarnFunc(fn func(string)) ImageOption {
	return func(c *imageConfig) { c.warnFn = fn }
}
