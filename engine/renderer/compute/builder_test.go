package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/astra/engine/renderer/compute/spirv"
)

func TestBuilderAllBuildsFiveKernels(t *testing.T) {
	device := &fakeDevice{}
	b := &Builder{Device: device, MaxDescSets: 2}

	kernels, err := b.All()
	require.NoError(t, err)
	require.Len(t, kernels, 5)

	labels := make([]string, len(kernels))
	for i, k := range kernels {
		labels[i] = k.Label()
	}
	assert.Equal(t, []string{
		KernelCalcVertexAttrsU16,
		KernelCalcVertexAttrsU16Skin,
		KernelCalcVertexAttrsU32,
		KernelCalcVertexAttrsU32Skin,
		KernelDecodeRGBRGBA,
	}, labels)

	for _, k := range kernels {
		k.Destroy()
	}
	assert.Zero(t, device.liveTotal(), "leaked GPU handles after destroying the kernel set")
}

func TestBuilderOverrideReplacesEmbedded(t *testing.T) {
	custom := []uint32{spirv.Magic, 0x00010000, 0, 1, 0}
	b := &Builder{
		Device:      &fakeDevice{},
		MaxDescSets: 1,
		Override: func(name string) ([]uint32, bool) {
			if name == KernelDecodeRGBRGBA {
				return custom, true
			}
			return nil, false
		},
	}

	decode, err := b.DecodeRGBRGBA()
	require.NoError(t, err)
	defer decode.Destroy()
	assert.Equal(t, custom, decode.Pipeline().(*fakePipeline).shader.code)

	u16, err := b.CalcVertexAttrsU16()
	require.NoError(t, err)
	defer u16.Destroy()
	assert.Equal(t, spirv.CalcVertexAttrsU16(), u16.Pipeline().(*fakePipeline).shader.code)
}

func TestBuilderAllRollsBackOnFailure(t *testing.T) {
	device := &fakeDevice{failAllocAt: 3}
	b := &Builder{Device: device, MaxDescSets: 1}

	kernels, err := b.All()
	require.Error(t, err)
	assert.Nil(t, kernels)
	assert.Zero(t, device.liveTotal(), "leaked GPU handles after failed kernel set construction")
}
