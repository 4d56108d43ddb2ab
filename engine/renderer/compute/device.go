package compute

// DescriptorKind identifies the resource class a descriptor binding
// expects from a shader's point of view.
type DescriptorKind uint8

const (
	StorageBuffer DescriptorKind = iota
	StorageImage
)

func (k DescriptorKind) String() string {
	switch k {
	case StorageBuffer:
		return "storage_buffer"
	case StorageImage:
		return "storage_image"
	default:
		return "unknown"
	}
}

// Access is the declared access mode of a binding.
type Access uint8

const (
	ReadOnly Access = iota
	ReadWrite
)

// ShaderStage is a bitmask of the pipeline stages a binding or
// push-constant range is visible to.
type ShaderStage uint32

const (
	StageCompute ShaderStage = 1 << iota
)

// LayoutBinding describes one slot of a descriptor set layout.
type LayoutBinding struct {
	Binding uint32
	Stages  ShaderStage
	Kind    DescriptorKind
	Access  Access
}

// RangeDesc declares pool capacity for one descriptor kind. The total
// count across all sets carved from the pool must fit in Count.
type RangeDesc struct {
	Kind   DescriptorKind
	Access Access
	Count  uint32
}

// PushConstantRange is a small per-dispatch byte range handed directly
// to the pipeline without a descriptor binding.
type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

// Backend handles are opaque to this package. Their concrete types are
// owned by whichever Device implementation produced them; the command
// recording layer downcasts them when binding.
type (
	ShaderModule        any
	DescriptorSetLayout any
	Pipeline            any
	DescriptorPool      any
	DescriptorSet       any
	Sampler             any
)

// Device is the narrow capability set a graphics backend must provide
// for compute kernel construction and descriptor recycling. A Device is
// shared: many kernels may hold the same value concurrently, but each
// kernel's own pool, sets and pipeline belong to that kernel alone.
//
// The Device must outlive every kernel created from it.
type Device interface {
	// CreateShaderModule builds a shader module from a SPIR-V word
	// stream. The label is advisory and may be ignored.
	CreateShaderModule(label string, code []uint32) (ShaderModule, error)
	// CreateDescriptorSetLayout builds the immutable binding schema
	// shared by a pipeline and every set allocated against it.
	CreateDescriptorSetLayout(label string, bindings []LayoutBinding) (DescriptorSetLayout, error)
	// CreateComputePipeline compiles a ready-to-dispatch pipeline from
	// the shader's "main" entry point, one set layout and the given
	// push-constant ranges.
	CreateComputePipeline(label string, shader ShaderModule, layout DescriptorSetLayout, pushConstants []PushConstantRange) (Pipeline, error)
	// CreateDescriptorPool builds a bounded pool able to satisfy maxSets
	// set allocations within the given per-kind capacities.
	CreateDescriptorPool(maxSets uint32, ranges []RangeDesc) (DescriptorPool, error)
	// AllocateDescriptorSet carves one set from the pool against the
	// given layout.
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	// ResetDescriptorPool returns every set carved from the pool to it
	// in bulk. Previously allocated set handles become invalid. The
	// caller must have ensured no GPU work still references them.
	ResetDescriptorPool(pool DescriptorPool) error

	DestroyShaderModule(module ShaderModule)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)
	DestroyPipeline(pipeline Pipeline)
	DestroyDescriptorPool(pool DescriptorPool)
	DestroySampler(sampler Sampler)
}
