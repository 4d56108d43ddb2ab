package compute

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/astra/engine/core"
)

type fakeShader struct {
	label string
	code  []uint32
}

type fakeLayout struct {
	label    string
	bindings []LayoutBinding
}

type fakePipeline struct {
	label         string
	shader        *fakeShader
	layout        *fakeLayout
	pushConstants []PushConstantRange
}

type fakePool struct {
	maxSets   uint32
	ranges    []RangeDesc
	allocated uint32
	resets    int
}

type fakeSet struct {
	id int
}

type fakeSampler struct{}

// fakeDevice implements Device with live-handle accounting so the tests
// can assert full rollback and teardown.
type fakeDevice struct {
	nextSetID int

	liveShaders   int
	liveLayouts   int
	livePipelines int
	livePools     int
	liveSamplers  int

	failShaders   bool
	failLayouts   bool
	failPipelines bool
	failPools     bool
	failAllocAt   int // fail the nth allocation (1-based); 0 disables
	allocCalls    int
}

var errFake = errors.New("fake device failure")

func (d *fakeDevice) CreateShaderModule(label string, code []uint32) (ShaderModule, error) {
	if d.failShaders {
		return nil, errFake
	}
	d.liveShaders++
	return &fakeShader{label: label, code: code}, nil
}

func (d *fakeDevice) CreateDescriptorSetLayout(label string, bindings []LayoutBinding) (DescriptorSetLayout, error) {
	if d.failLayouts {
		return nil, errFake
	}
	d.liveLayouts++
	return &fakeLayout{label: label, bindings: bindings}, nil
}

func (d *fakeDevice) CreateComputePipeline(label string, shader ShaderModule, layout DescriptorSetLayout, pushConstants []PushConstantRange) (Pipeline, error) {
	if d.failPipelines {
		return nil, errFake
	}
	d.livePipelines++
	return &fakePipeline{
		label:         label,
		shader:        shader.(*fakeShader),
		layout:        layout.(*fakeLayout),
		pushConstants: pushConstants,
	}, nil
}

func (d *fakeDevice) CreateDescriptorPool(maxSets uint32, ranges []RangeDesc) (DescriptorPool, error) {
	if d.failPools {
		return nil, errFake
	}
	d.livePools++
	return &fakePool{maxSets: maxSets, ranges: ranges}, nil
}

func (d *fakeDevice) AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error) {
	d.allocCalls++
	if d.failAllocAt > 0 && d.allocCalls >= d.failAllocAt {
		return nil, errFake
	}
	p := pool.(*fakePool)
	if p.allocated >= p.maxSets {
		return nil, fmt.Errorf("pool exhausted: %d sets already allocated", p.allocated)
	}
	p.allocated++
	d.nextSetID++
	return &fakeSet{id: d.nextSetID}, nil
}

func (d *fakeDevice) ResetDescriptorPool(pool DescriptorPool) error {
	p := pool.(*fakePool)
	p.allocated = 0
	p.resets++
	return nil
}

func (d *fakeDevice) DestroyShaderModule(ShaderModule)               { d.liveShaders-- }
func (d *fakeDevice) DestroyDescriptorSetLayout(DescriptorSetLayout) { d.liveLayouts-- }
func (d *fakeDevice) DestroyPipeline(Pipeline)                       { d.livePipelines-- }
func (d *fakeDevice) DestroyDescriptorPool(DescriptorPool)           { d.livePools-- }
func (d *fakeDevice) DestroySampler(Sampler)                         { d.liveSamplers-- }

func (d *fakeDevice) liveTotal() int {
	return d.liveShaders + d.liveLayouts + d.livePipelines + d.livePools + d.liveSamplers
}

func TestKernelDescSetsDistinct(t *testing.T) {
	device := &fakeDevice{}
	kernel, err := CalcVertexAttrsU16(device, "test", 4)
	require.NoError(t, err)
	defer kernel.Destroy()

	assert.Equal(t, uint32(4), kernel.MaxDescSets())

	seen := map[DescriptorSet]bool{}
	for i := uint32(0); i < kernel.MaxDescSets(); i++ {
		set := kernel.DescSet(i)
		require.NotNil(t, set)
		assert.False(t, seen[set], "descriptor set %d is not distinct", i)
		seen[set] = true
	}
}

func TestKernelRejectsNilDevice(t *testing.T) {
	_, err := CalcVertexAttrsU32(nil, "test", 1)
	assert.ErrorIs(t, err, core.ErrNilDevice)
}

func TestKernelRejectsZeroDescSets(t *testing.T) {
	_, err := CalcVertexAttrsU32(&fakeDevice{}, "test", 0)
	assert.ErrorIs(t, err, core.ErrInvalidDescSetCount)
}

func TestKernelGeneratesLabelWhenUnnamed(t *testing.T) {
	kernel, err := DecodeRGBRGBA(&fakeDevice{}, "", 1)
	require.NoError(t, err)
	defer kernel.Destroy()

	assert.NotEmpty(t, kernel.Label())
}

func TestConstructionRollsBackOnFailure(t *testing.T) {
	cases := map[string]func(*fakeDevice){
		"shader":   func(d *fakeDevice) { d.failShaders = true },
		"layout":   func(d *fakeDevice) { d.failLayouts = true },
		"pipeline": func(d *fakeDevice) { d.failPipelines = true },
		"pool":     func(d *fakeDevice) { d.failPools = true },
		"allocate": func(d *fakeDevice) { d.failAllocAt = 2 },
	}

	for name, arm := range cases {
		t.Run(name, func(t *testing.T) {
			device := &fakeDevice{}
			arm(device)

			kernel, err := CalcVertexAttrsU16Skin(device, "doomed", 4)
			require.Error(t, err)
			assert.Nil(t, kernel)
			assert.Zero(t, device.liveTotal(), "leaked GPU handles after failed construction")
		})
	}
}

func TestResetReallocatesAllSets(t *testing.T) {
	device := &fakeDevice{}
	kernel, err := CalcVertexAttrsU32Skin(device, "test", 3)
	require.NoError(t, err)
	defer kernel.Destroy()

	before := make([]DescriptorSet, kernel.MaxDescSets())
	for i := range before {
		before[i] = kernel.DescSet(uint32(i))
	}

	require.NoError(t, kernel.Reset())

	assert.Equal(t, uint32(3), kernel.MaxDescSets())
	for i := uint32(0); i < kernel.MaxDescSets(); i++ {
		set := kernel.DescSet(i)
		require.NotNil(t, set)
		assert.NotSame(t, before[i], set, "set %d survived the reset", i)
	}
}

func TestResetTwiceKeepsShape(t *testing.T) {
	device := &fakeDevice{}
	kernel, err := DecodeRGBRGBA(device, "test", 2)
	require.NoError(t, err)
	defer kernel.Destroy()

	require.NoError(t, kernel.Reset())
	require.NoError(t, kernel.Reset())

	assert.Equal(t, uint32(2), kernel.MaxDescSets())
	for i := uint32(0); i < kernel.MaxDescSets(); i++ {
		assert.NotNil(t, kernel.DescSet(i))
	}
}

func TestResetFailsWhenReallocationFails(t *testing.T) {
	device := &fakeDevice{}
	kernel, err := CalcVertexAttrsU16(device, "test", 2)
	require.NoError(t, err)
	defer kernel.Destroy()

	device.failAllocAt = device.allocCalls + 2
	assert.Error(t, kernel.Reset())
}

func TestDescSetOutOfRangePanics(t *testing.T) {
	kernel, err := CalcVertexAttrsU16(&fakeDevice{}, "test", 2)
	require.NoError(t, err)
	defer kernel.Destroy()

	assert.Panics(t, func() { kernel.DescSet(2) })
}

func TestDestroyReleasesEverything(t *testing.T) {
	device := &fakeDevice{}
	device.liveSamplers = 2
	samplers := []Sampler{&fakeSampler{}, &fakeSampler{}}

	kernel, err := newKernel(
		device,
		"sampled",
		[]uint32{0x07230203},
		[]PushConstantRange{{Stages: StageCompute, Size: 4}},
		2,
		[]RangeDesc{{Kind: StorageBuffer, Access: ReadOnly, Count: 2}},
		[]LayoutBinding{{Binding: 0, Stages: StageCompute, Kind: StorageBuffer, Access: ReadOnly}},
		samplers,
	)
	require.NoError(t, err)

	kernel.Destroy()
	assert.Zero(t, device.liveTotal(), "leaked GPU handles after Destroy")
}
