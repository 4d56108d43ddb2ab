package compute

import (
	"github.com/spaghettifunk/astra/engine/renderer/compute/spirv"
)

// The vertex attribute kernels share one layout: three read-only
// structured buffers and one read-write structured buffer per set. Only
// the shader binary differs between the u16/u32 and skinned variants.
func calcVertexAttrs(device Device, label string, code []uint32, maxDescSets uint32) (*Kernel, error) {
	return newKernel(
		device,
		label,
		code,
		[]PushConstantRange{
			{Stages: StageCompute, Offset: 0, Size: 8},
		},
		maxDescSets,
		[]RangeDesc{
			{Kind: StorageBuffer, Access: ReadOnly, Count: 3 * maxDescSets},
			{Kind: StorageBuffer, Access: ReadWrite, Count: maxDescSets},
		},
		[]LayoutBinding{
			{Binding: 0, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},  // idx_buf
			{Binding: 1, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},  // src_buf
			{Binding: 2, Stages: StageCompute, Kind: StorageBuffer, Access: ReadWrite}, // dst_buf
			{Binding: 3, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},  // write_mask
		},
		nil,
	)
}

// CalcVertexAttrsU16 builds the vertex attribute kernel for 16-bit
// index buffers.
func CalcVertexAttrsU16(device Device, label string, maxDescSets uint32) (*Kernel, error) {
	return calcVertexAttrs(device, label, spirv.CalcVertexAttrsU16(), maxDescSets)
}

// CalcVertexAttrsU16Skin builds the 16-bit index kernel with bone
// weight blending.
func CalcVertexAttrsU16Skin(device Device, label string, maxDescSets uint32) (*Kernel, error) {
	return calcVertexAttrs(device, label, spirv.CalcVertexAttrsU16Skin(), maxDescSets)
}

// CalcVertexAttrsU32 builds the vertex attribute kernel for 32-bit
// index buffers.
func CalcVertexAttrsU32(device Device, label string, maxDescSets uint32) (*Kernel, error) {
	return calcVertexAttrs(device, label, spirv.CalcVertexAttrsU32(), maxDescSets)
}

// CalcVertexAttrsU32Skin builds the 32-bit index kernel with bone
// weight blending.
func CalcVertexAttrsU32Skin(device Device, label string, maxDescSets uint32) (*Kernel, error) {
	return calcVertexAttrs(device, label, spirv.CalcVertexAttrsU32Skin(), maxDescSets)
}

// The decode kernel reads a packed source buffer and writes an RGBA
// storage image, one set of each per descriptor set.
func decodeRGBRGBA(device Device, label string, code []uint32, maxDescSets uint32) (*Kernel, error) {
	return newKernel(
		device,
		label,
		code,
		[]PushConstantRange{
			{Stages: StageCompute, Offset: 0, Size: 4},
		},
		maxDescSets,
		[]RangeDesc{
			{Kind: StorageBuffer, Access: ReadOnly, Count: maxDescSets},
			{Kind: StorageImage, Access: ReadWrite, Count: maxDescSets},
		},
		[]LayoutBinding{
			{Binding: 0, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},
			{Binding: 1, Stages: StageCompute, Kind: StorageImage, Access: ReadWrite},
		},
		nil,
	)
}

// DecodeRGBRGBA builds the pixel decode kernel that expands a packed
// R8G8B8 source buffer into an RGBA storage image.
func DecodeRGBRGBA(device Device, label string, maxDescSets uint32) (*Kernel, error) {
	return decodeRGBRGBA(device, label, spirv.DecodeRGBRGBA(), maxDescSets)
}
