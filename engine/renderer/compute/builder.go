package compute

import (
	"github.com/spaghettifunk/astra/engine/renderer/compute/spirv"
)

// Canonical kernel names. Override binaries dropped on disk are matched
// against these.
const (
	KernelCalcVertexAttrsU16     = "calc_vertex_attrs_u16"
	KernelCalcVertexAttrsU16Skin = "calc_vertex_attrs_u16_skin"
	KernelCalcVertexAttrsU32     = "calc_vertex_attrs_u32"
	KernelCalcVertexAttrsU32Skin = "calc_vertex_attrs_u32_skin"
	KernelDecodeRGBRGBA          = "decode_rgb_rgba"
)

// Builder constructs the fixed kernel set on one device. When Override
// is set it is consulted by kernel name before falling back to the
// embedded binaries, so a replacement shader can be swapped in without
// a rebuild.
type Builder struct {
	Device      Device
	MaxDescSets uint32
	Override    func(name string) ([]uint32, bool)
}

func (b *Builder) code(name string, embedded func() []uint32) []uint32 {
	if b.Override != nil {
		if words, ok := b.Override(name); ok {
			return words
		}
	}
	return embedded()
}

func (b *Builder) CalcVertexAttrsU16() (*Kernel, error) {
	return calcVertexAttrs(b.Device, KernelCalcVertexAttrsU16,
		b.code(KernelCalcVertexAttrsU16, spirv.CalcVertexAttrsU16), b.MaxDescSets)
}

func (b *Builder) CalcVertexAttrsU16Skin() (*Kernel, error) {
	return calcVertexAttrs(b.Device, KernelCalcVertexAttrsU16Skin,
		b.code(KernelCalcVertexAttrsU16Skin, spirv.CalcVertexAttrsU16Skin), b.MaxDescSets)
}

func (b *Builder) CalcVertexAttrsU32() (*Kernel, error) {
	return calcVertexAttrs(b.Device, KernelCalcVertexAttrsU32,
		b.code(KernelCalcVertexAttrsU32, spirv.CalcVertexAttrsU32), b.MaxDescSets)
}

func (b *Builder) CalcVertexAttrsU32Skin() (*Kernel, error) {
	return calcVertexAttrs(b.Device, KernelCalcVertexAttrsU32Skin,
		b.code(KernelCalcVertexAttrsU32Skin, spirv.CalcVertexAttrsU32Skin), b.MaxDescSets)
}

func (b *Builder) DecodeRGBRGBA() (*Kernel, error) {
	return decodeRGBRGBA(b.Device, KernelDecodeRGBRGBA,
		b.code(KernelDecodeRGBRGBA, spirv.DecodeRGBRGBA), b.MaxDescSets)
}

// All builds the five kernels. On failure every kernel built so far is
// destroyed and the error of the failing one is returned.
func (b *Builder) All() ([]*Kernel, error) {
	builders := []func() (*Kernel, error){
		b.CalcVertexAttrsU16,
		b.CalcVertexAttrsU16Skin,
		b.CalcVertexAttrsU32,
		b.CalcVertexAttrsU32Skin,
		b.DecodeRGBRGBA,
	}

	kernels := make([]*Kernel, 0, len(builders))
	for _, build := range builders {
		k, err := build()
		if err != nil {
			for _, built := range kernels {
				built.Destroy()
			}
			return nil, err
		}
		kernels = append(kernels, k)
	}
	return kernels, nil
}
