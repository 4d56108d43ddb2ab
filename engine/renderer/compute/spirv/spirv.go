// Package spirv carries the precompiled binaries of the fixed-function
// compute kernels. The GLSL sources live in shaders/ and are compiled
// with glslc through the mage build target; the resulting .spv files
// are embedded here so the engine binary is self-contained.
package spirv

import (
	_ "embed"
	"encoding/binary"
	"fmt"
)

// Magic is the SPIR-V magic number in host word order.
const Magic uint32 = 0x07230203

//go:embed shaders/calc_vertex_attrs_u16.comp.spv
var calcVertexAttrsU16 []byte

//go:embed shaders/calc_vertex_attrs_u16_skin.comp.spv
var calcVertexAttrsU16Skin []byte

//go:embed shaders/calc_vertex_attrs_u32.comp.spv
var calcVertexAttrsU32 []byte

//go:embed shaders/calc_vertex_attrs_u32_skin.comp.spv
var calcVertexAttrsU32Skin []byte

//go:embed shaders/decode_rgb_rgba.comp.spv
var decodeRGBRGBA []byte

func CalcVertexAttrsU16() []uint32 {
	return mustWords("calc_vertex_attrs_u16", calcVertexAttrsU16)
}

func CalcVertexAttrsU16Skin() []uint32 {
	return mustWords("calc_vertex_attrs_u16_skin", calcVertexAttrsU16Skin)
}

func CalcVertexAttrsU32() []uint32 {
	return mustWords("calc_vertex_attrs_u32", calcVertexAttrsU32)
}

func CalcVertexAttrsU32Skin() []uint32 {
	return mustWords("calc_vertex_attrs_u32_skin", calcVertexAttrsU32Skin)
}

func DecodeRGBRGBA() []uint32 {
	return mustWords("decode_rgb_rgba", decodeRGBRGBA)
}

// Words decodes a raw SPIR-V blob into its little-endian word stream,
// rejecting blobs that are empty, not word aligned, or missing the
// SPIR-V magic number.
func Words(blob []byte) ([]uint32, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("spirv: empty blob")
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("spirv: blob length %d is not word aligned", len(blob))
	}
	words := make([]uint32, len(blob)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(blob[i*4:])
	}
	if words[0] != Magic {
		return nil, fmt.Errorf("spirv: bad magic number 0x%08x", words[0])
	}
	return words, nil
}

func mustWords(name string, blob []byte) []uint32 {
	words, err := Words(blob)
	if err != nil {
		panic(fmt.Sprintf("spirv: embedded kernel %s is corrupt: %v", name, err))
	}
	return words
}
