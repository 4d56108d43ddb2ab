package spirv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedKernels(t *testing.T) {
	kernels := map[string]func() []uint32{
		"calc_vertex_attrs_u16":      CalcVertexAttrsU16,
		"calc_vertex_attrs_u16_skin": CalcVertexAttrsU16Skin,
		"calc_vertex_attrs_u32":      CalcVertexAttrsU32,
		"calc_vertex_attrs_u32_skin": CalcVertexAttrsU32Skin,
		"decode_rgb_rgba":            DecodeRGBRGBA,
	}

	for name, fn := range kernels {
		t.Run(name, func(t *testing.T) {
			words := fn()
			require.NotEmpty(t, words)
			assert.Equal(t, Magic, words[0])
		})
	}
}

func TestWordsRejectsMisalignedBlob(t *testing.T) {
	_, err := Words([]byte{0x03, 0x02, 0x23})
	assert.Error(t, err)
}

func TestWordsRejectsEmptyBlob(t *testing.T) {
	_, err := Words(nil)
	assert.Error(t, err)
}

func TestWordsRejectsBadMagic(t *testing.T) {
	_, err := Words([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Error(t, err)
}

func TestWordsDecodesLittleEndian(t *testing.T) {
	words, err := Words([]byte{0x03, 0x02, 0x23, 0x07, 0x78, 0x56, 0x34, 0x12})
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, uint32(0x12345678), words[1])
}
