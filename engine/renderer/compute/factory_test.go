package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vertexFactory struct {
	name  string
	build func(Device, string, uint32) (*Kernel, error)
}

func vertexFactories() []vertexFactory {
	return []vertexFactory{
		{"calc_vertex_attrs_u16", CalcVertexAttrsU16},
		{"calc_vertex_attrs_u16_skin", CalcVertexAttrsU16Skin},
		{"calc_vertex_attrs_u32", CalcVertexAttrsU32},
		{"calc_vertex_attrs_u32_skin", CalcVertexAttrsU32Skin},
	}
}

func TestCalcVertexAttrsShape(t *testing.T) {
	device := &fakeDevice{}
	kernel, err := CalcVertexAttrsU16(device, "vertex", 4)
	require.NoError(t, err)
	defer kernel.Destroy()

	pipeline := kernel.Pipeline().(*fakePipeline)
	require.Len(t, pipeline.pushConstants, 1)
	assert.Equal(t, PushConstantRange{Stages: StageCompute, Offset: 0, Size: 8}, pipeline.pushConstants[0])

	expected := []LayoutBinding{
		{Binding: 0, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},
		{Binding: 1, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},
		{Binding: 2, Stages: StageCompute, Kind: StorageBuffer, Access: ReadWrite},
		{Binding: 3, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},
	}
	assert.Equal(t, expected, pipeline.layout.bindings)

	pool := kernel.descPool.(*fakePool)
	assert.Equal(t, uint32(4), pool.maxSets)
	expectedRanges := []RangeDesc{
		{Kind: StorageBuffer, Access: ReadOnly, Count: 12},
		{Kind: StorageBuffer, Access: ReadWrite, Count: 4},
	}
	assert.Equal(t, expectedRanges, pool.ranges)
}

func TestVertexVariantsShareLayout(t *testing.T) {
	device := &fakeDevice{}

	var reference []LayoutBinding
	codes := map[string][]uint32{}
	for _, factory := range vertexFactories() {
		kernel, err := factory.build(device, factory.name, 2)
		require.NoError(t, err)
		defer kernel.Destroy()

		pipeline := kernel.Pipeline().(*fakePipeline)
		if reference == nil {
			reference = pipeline.layout.bindings
		} else {
			assert.Equal(t, reference, pipeline.layout.bindings,
				"%s layout diverges from the other vertex variants", factory.name)
		}
		codes[factory.name] = pipeline.shader.code
	}

	// Variants are distinguished by the shader binary alone.
	seen := map[string][]uint32{}
	for name, code := range codes {
		for other, otherCode := range seen {
			assert.NotEqual(t, otherCode, code, "%s and %s share a shader binary", name, other)
		}
		seen[name] = code
	}
}

func TestDecodeRGBRGBAShape(t *testing.T) {
	device := &fakeDevice{}
	kernel, err := DecodeRGBRGBA(device, "decode", 1)
	require.NoError(t, err)
	defer kernel.Destroy()

	assert.Equal(t, uint32(1), kernel.MaxDescSets())

	pipeline := kernel.Pipeline().(*fakePipeline)
	require.Len(t, pipeline.pushConstants, 1)
	assert.Equal(t, uint32(4), pipeline.pushConstants[0].Size)

	expected := []LayoutBinding{
		{Binding: 0, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly},
		{Binding: 1, Stages: StageCompute, Kind: StorageImage, Access: ReadWrite},
	}
	assert.Equal(t, expected, pipeline.layout.bindings)
}

func TestDecodeLayoutIndependentOfDescSetCount(t *testing.T) {
	device := &fakeDevice{}
	for _, maxDescSets := range []uint32{1, 2, 5} {
		kernel, err := DecodeRGBRGBA(device, "decode", maxDescSets)
		require.NoError(t, err)

		pipeline := kernel.Pipeline().(*fakePipeline)
		assert.Len(t, pipeline.layout.bindings, 2)
		kernel.Destroy()
	}
}

// Pool range capacities must cover every per-set binding requirement
// times the set count, or allocation would fail part way through.
func TestPoolRangesCoverBindings(t *testing.T) {
	device := &fakeDevice{}
	factories := append(vertexFactories(), vertexFactory{"decode_rgb_rgba", DecodeRGBRGBA})

	for _, factory := range factories {
		for _, maxDescSets := range []uint32{1, 2, 4, 7} {
			kernel, err := factory.build(device, factory.name, maxDescSets)
			require.NoError(t, err)

			pipeline := kernel.Pipeline().(*fakePipeline)
			pool := kernel.descPool.(*fakePool)

			needed := map[RangeDesc]uint32{}
			for _, binding := range pipeline.layout.bindings {
				key := RangeDesc{Kind: binding.Kind, Access: binding.Access}
				needed[key] += maxDescSets
			}
			available := map[RangeDesc]uint32{}
			for _, r := range pool.ranges {
				available[RangeDesc{Kind: r.Kind, Access: r.Access}] += r.Count
			}
			for key, want := range needed {
				assert.GreaterOrEqual(t, available[key], want,
					"%s under-provisions %v for max_desc_sets=%d", factory.name, key, maxDescSets)
			}
			kernel.Destroy()
		}
	}
}
