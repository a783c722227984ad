package sffs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestContext formats a small scratch image and returns the raw
// Context for direct, package-internal testing of components that sit
// underneath the public Image API.
func newTestContext(t *testing.T, sizeMB int, blockSize uint32) *Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")

	backend, err := openFileBackend(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err)
	require.NoError(t, backend.truncate(int64(sizeMB)*1024*1024))

	if blockSize == 0 {
		blockSize = 4096
	}
	sb, _, err := computeSuperblock(uint64(sizeMB)*1024*1024, blockSize, DefaultInodeRatio, MaxInodeListDefault, 0)
	require.NoError(t, err)

	ctx := &Context{disk: backend, sb: sb}
	require.NoError(t, ctx.formatImage())
	return ctx
}
