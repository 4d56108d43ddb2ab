package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/compute/spirv"
)

func writeSpv(t *testing.T, path string, words []uint32) {
	t.Helper()
	blob := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(blob[i*4:], w)
	}
	require.NoError(t, os.WriteFile(path, blob, 0o644))
}

func TestInitializeScansExistingOverrides(t *testing.T) {
	dir := t.TempDir()
	writeSpv(t, filepath.Join(dir, "calc_vertex_attrs_u16.comp.spv"), []uint32{spirv.Magic, 0x00010000, 0, 1, 0})
	writeSpv(t, filepath.Join(dir, "broken.spv"), []uint32{0xdeadbeef})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a shader"), 0o644))

	so, err := NewShaderOverrides()
	require.NoError(t, err)
	require.NoError(t, so.Initialize(dir))
	defer so.Close()

	words, ok := so.Override("calc_vertex_attrs_u16")
	require.True(t, ok)
	assert.Equal(t, spirv.Magic, words[0])

	_, ok = so.Override("broken")
	assert.False(t, ok, "binaries with a bad magic number must be rejected")

	assert.Equal(t, []string{"calc_vertex_attrs_u16"}, so.Names())
}

func TestOverrideMissingKernel(t *testing.T) {
	so, err := NewShaderOverrides()
	require.NoError(t, err)
	require.NoError(t, so.Initialize(t.TempDir()))
	defer so.Close()

	_, ok := so.Override("decode_rgb_rgba")
	assert.False(t, ok)
}

func TestCloseTwice(t *testing.T) {
	so, err := NewShaderOverrides()
	require.NoError(t, err)
	require.NoError(t, so.Initialize(t.TempDir()))

	require.NoError(t, so.Close())
	assert.ErrorIs(t, so.Close(), core.ErrWatcherClosed)
}
