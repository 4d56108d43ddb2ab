package compute

import (
	"fmt"

	"github.com/spaghettifunk/astra/engine/core"
)

// Kernel owns the full GPU state of one fixed-function compute program:
// its shader module, pipeline, descriptor set layout, a bounded
// descriptor pool and a fixed-size sequence of descriptor sets carved
// from it. Kernels are built through the factory functions in this
// package; there is no partially constructed state.
//
// A Kernel does no synchronization of its own. The command submission
// layer must fence GPU work before Reset or Destroy is called.
type Kernel struct {
	device Device
	label  string

	descPool    DescriptorPool
	descSets    []DescriptorSet
	maxDescSets uint32
	pipeline    Pipeline
	setLayout   DescriptorSetLayout
	samplers    []Sampler
	shader      ShaderModule
}

func newKernel(
	device Device,
	label string,
	code []uint32,
	pushConstants []PushConstantRange,
	maxDescSets uint32,
	descRanges []RangeDesc,
	bindings []LayoutBinding,
	samplers []Sampler,
) (*Kernel, error) {
	if device == nil {
		return nil, fmt.Errorf("compute: %w", core.ErrNilDevice)
	}
	if maxDescSets < 1 {
		return nil, fmt.Errorf("compute: %w (got %d)", core.ErrInvalidDescSetCount, maxDescSets)
	}
	if label == "" {
		label = core.GenerateLabel("compute-kernel")
	}

	k := &Kernel{
		device:      device,
		label:       label,
		maxDescSets: maxDescSets,
		samplers:    samplers,
	}

	shader, err := device.CreateShaderModule(label, code)
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("compute: %s: shader module creation failed: %w", label, err)
	}
	k.shader = shader

	setLayout, err := device.CreateDescriptorSetLayout(label, bindings)
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("compute: %s: descriptor set layout creation failed: %w", label, err)
	}
	k.setLayout = setLayout

	pipeline, err := device.CreateComputePipeline(label, shader, setLayout, pushConstants)
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("compute: %s: pipeline creation failed: %w", label, err)
	}
	k.pipeline = pipeline

	descPool, err := device.CreateDescriptorPool(maxDescSets, descRanges)
	if err != nil {
		k.Destroy()
		return nil, fmt.Errorf("compute: %s: descriptor pool creation failed: %w", label, err)
	}
	k.descPool = descPool

	k.descSets = make([]DescriptorSet, maxDescSets)
	for i := range k.descSets {
		set, err := device.AllocateDescriptorSet(k.descPool, k.setLayout)
		if err != nil {
			k.Destroy()
			return nil, fmt.Errorf("compute: %s: descriptor set %d of %d allocation failed: %w", label, i, maxDescSets, err)
		}
		k.descSets[i] = set
	}

	core.LogDebug("compute kernel %q created with %d descriptor sets", label, maxDescSets)
	return k, nil
}

// Reset returns every descriptor set to the pool in bulk, then carves
// the same number of fresh sets against the same layout, index for
// index. Any set handle fetched before the call is stale afterwards and
// must be re-fetched with DescSet.
//
// The caller must guarantee that no in-flight GPU work still reads or
// writes through any of the kernel's descriptor sets.
func (k *Kernel) Reset() error {
	if err := k.device.ResetDescriptorPool(k.descPool); err != nil {
		return fmt.Errorf("compute: %s: descriptor pool reset failed: %w", k.label, err)
	}
	for i := range k.descSets {
		set, err := k.device.AllocateDescriptorSet(k.descPool, k.setLayout)
		if err != nil {
			return fmt.Errorf("compute: %s: descriptor set %d reallocation failed: %w", k.label, i, err)
		}
		k.descSets[i] = set
	}
	return nil
}

// MaxDescSets reports the fixed descriptor set capacity chosen at
// construction.
func (k *Kernel) MaxDescSets() uint32 {
	return k.maxDescSets
}

// Pipeline returns the compute pipeline for binding into a command
// stream.
func (k *Kernel) Pipeline() Pipeline {
	return k.pipeline
}

// DescSet returns the descriptor set at idx. An out-of-range index is a
// caller bug and panics.
func (k *Kernel) DescSet(idx uint32) DescriptorSet {
	if idx >= k.maxDescSets {
		panic(fmt.Sprintf("compute: %s: descriptor set index %d out of range [0, %d)", k.label, idx, k.maxDescSets))
	}
	return k.descSets[idx]
}

// Label returns the kernel's debug label.
func (k *Kernel) Label() string {
	return k.label
}

// Destroy releases every GPU resource the kernel owns. The caller must
// guarantee that no in-flight GPU work still references the pipeline or
// any descriptor set. The kernel is unusable afterwards.
func (k *Kernel) Destroy() {
	if k.descPool != nil {
		// Destroying the pool frees every set carved from it.
		k.device.DestroyDescriptorPool(k.descPool)
		k.descPool = nil
		k.descSets = nil
	}
	if k.pipeline != nil {
		k.device.DestroyPipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.setLayout != nil {
		k.device.DestroyDescriptorSetLayout(k.setLayout)
		k.setLayout = nil
	}
	if k.shader != nil {
		k.device.DestroyShaderModule(k.shader)
		k.shader = nil
	}
	for _, sampler := range k.samplers {
		if sampler != nil {
			k.device.DestroySampler(sampler)
		}
	}
	k.samplers = nil
}
