package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/astra/engine/config"
	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/platform"
	"github.com/spaghettifunk/astra/engine/renderer/compute"
)

var lockPool = NewVulkanLockPool()

// VulkanBackend owns the Vulkan instance and logical device and
// implements compute.Device on top of them.
type VulkanBackend struct {
	platform *platform.Platform
	context  *VulkanContext

	debug       bool
	debugLabels bool
}

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

func New(p *platform.Platform, cfg config.RendererConfig) *VulkanBackend {
	return &VulkanBackend{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{ComputeQueueIndex: -1},
		},
		debug:       cfg.DebugLabels,
		debugLabels: cfg.DebugLabels,
	}
}

func (vb *VulkanBackend) Initialize(appName string) error {
	procAddr := vb.platform.VulkanProcAddress()
	if procAddr == nil {
		core.LogError("GetInstanceProcAddress is nil")
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	// TODO: custom allocator.
	vb.context.Allocator = nil

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Astra Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if vb.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on non-release builds.
	requiredValidationLayerNames := []string{}
	if vb.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res, true))
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res, true))
		}

		for i := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredValidationLayerNames[i] == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					break
				}
			}
			if !found {
				core.LogWarn("Validation layer %s is missing, continuing without validation.", requiredValidationLayerNames[i])
				requiredValidationLayerNames = nil
				break
			}
		}
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if err := lockPool.SafeCall(InstanceManagement, func() error {
		if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &vb.context.Instance); res != vk.Success {
			return fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vb.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vb.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vb.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vb.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	if err := DeviceCreate(vb.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	return nil
}

// Shutdown tears down the device and instance. Every kernel built on
// this backend must have been destroyed first.
func (vb *VulkanBackend) Shutdown() error {
	DeviceDestroy(vb.context)

	if vb.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugMessenger, vb.context.Allocator)
		vb.context.debugMessenger = vk.NullDebugReportCallback
	}

	vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
	vb.context.Instance = nil
	return nil
}

// labelResource reports resource creation for tooling. When debug
// labels are disabled the label argument is carried but never used.
func (vb *VulkanBackend) labelResource(kind, label string) {
	if vb.debugLabels && label != "" {
		core.LogDebug("%s %q created", kind, label)
	}
}

func descriptorType(kind compute.DescriptorKind) (vk.DescriptorType, error) {
	switch kind {
	case compute.StorageBuffer:
		return vk.DescriptorTypeStorageBuffer, nil
	case compute.StorageImage:
		return vk.DescriptorTypeStorageImage, nil
	default:
		return vk.DescriptorTypeStorageBuffer, fmt.Errorf("unknown descriptor kind %d", kind)
	}
}

func stageFlags(stages compute.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	if stages&compute.StageCompute != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	return flags
}

func (vb *VulkanBackend) CreateShaderModule(label string, code []uint32) (compute.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)) * 4,
		PCode:    code,
	}

	var module vk.ShaderModule
	if err := lockPool.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(
			vb.context.Device.LogicalDevice,
			&createInfo,
			vb.context.Allocator,
			&module); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateShaderModule failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	vb.labelResource("shader module", label)
	return module, nil
}

func (vb *VulkanBackend) CreateDescriptorSetLayout(label string, bindings []compute.LayoutBinding) (compute.DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, binding := range bindings {
		descType, err := descriptorType(binding.Kind)
		if err != nil {
			return nil, err
		}
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         binding.Binding,
			DescriptorType:  descType,
			DescriptorCount: 1,
			StageFlags:      stageFlags(binding.Stages),
		}
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	var layout vk.DescriptorSetLayout
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(
			vb.context.Device.LogicalDevice,
			&createInfo,
			vb.context.Allocator,
			&layout); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	vb.labelResource("descriptor set layout", label)
	return layout, nil
}

func (vb *VulkanBackend) CreateComputePipeline(label string, shader compute.ShaderModule, layout compute.DescriptorSetLayout, pushConstants []compute.PushConstantRange) (compute.Pipeline, error) {
	outPipeline := &VulkanPipeline{}

	ranges := make([]vk.PushConstantRange, len(pushConstants))
	for i, pc := range pushConstants {
		ranges[i] = vk.PushConstantRange{
			StageFlags: stageFlags(pc.Stages),
			Offset:     pc.Offset,
			Size:       pc.Size,
		}
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{layout.(vk.DescriptorSetLayout)},
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	if err := lockPool.SafeCall(PipelineManagement, func() error {
		var pPipelineLayout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(
			vb.context.Device.LogicalDevice,
			&pipelineLayoutCreateInfo,
			vb.context.Allocator,
			&pPipelineLayout); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(res, true))
		}
		outPipeline.PipelineLayout = pPipelineLayout
		return nil
	}); err != nil {
		return nil, err
	}

	stageCreateInfo := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageComputeBit,
		Module: shader.(vk.ShaderModule),
		PName:  VulkanSafeString("main"),
	}

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              stageCreateInfo,
		Layout:             outPipeline.PipelineLayout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateComputePipelines(
			vb.context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.ComputePipelineCreateInfo{pipelineCreateInfo},
			vb.context.Allocator,
			pPipelines); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateComputePipelines failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		vb.DestroyPipeline(outPipeline)
		return nil, err
	}
	outPipeline.Handle = pPipelines[0]

	vb.labelResource("compute pipeline", label)
	return outPipeline, nil
}

func (vb *VulkanBackend) CreateDescriptorPool(maxSets uint32, ranges []compute.RangeDesc) (compute.DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(ranges))
	for i, r := range ranges {
		descType, err := descriptorType(r.Kind)
		if err != nil {
			return nil, err
		}
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            descType,
			DescriptorCount: r.Count,
		}
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(
			vb.context.Device.LogicalDevice,
			&createInfo,
			vb.context.Allocator,
			&pool); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateDescriptorPool failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return pool, nil
}

func (vb *VulkanBackend) AllocateDescriptorSet(pool compute.DescriptorPool, layout compute.DescriptorSetLayout) (compute.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.(vk.DescriptorPool),
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.(vk.DescriptorSetLayout)},
	}

	var set vk.DescriptorSet
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(
			vb.context.Device.LogicalDevice,
			&allocateInfo,
			&set); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkAllocateDescriptorSets failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return set, nil
}

// ResetDescriptorPool returns every set carved from the pool. The
// caller must have fenced all GPU work that still references them.
func (vb *VulkanBackend) ResetDescriptorPool(pool compute.DescriptorPool) error {
	return lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.ResetDescriptorPool(
			vb.context.Device.LogicalDevice,
			pool.(vk.DescriptorPool),
			0); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkResetDescriptorPool failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
}

func (vb *VulkanBackend) DestroyShaderModule(module compute.ShaderModule) {
	lockPool.SafeCall(ShaderManagement, func() error {
		vk.DestroyShaderModule(vb.context.Device.LogicalDevice, module.(vk.ShaderModule), vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) DestroyDescriptorSetLayout(layout compute.DescriptorSetLayout) {
	lockPool.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorSetLayout(vb.context.Device.LogicalDevice, layout.(vk.DescriptorSetLayout), vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) DestroyPipeline(pipeline compute.Pipeline) {
	p := pipeline.(*VulkanPipeline)
	lockPool.SafeCall(PipelineManagement, func() error {
		if p.Handle != vk.NullPipeline {
			vk.DestroyPipeline(vb.context.Device.LogicalDevice, p.Handle, vb.context.Allocator)
			p.Handle = vk.NullPipeline
		}
		if p.PipelineLayout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(vb.context.Device.LogicalDevice, p.PipelineLayout, vb.context.Allocator)
			p.PipelineLayout = vk.NullPipelineLayout
		}
		return nil
	})
}

func (vb *VulkanBackend) DestroyDescriptorPool(pool compute.DescriptorPool) {
	lockPool.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(vb.context.Device.LogicalDevice, pool.(vk.DescriptorPool), vb.context.Allocator)
		return nil
	})
}

// CreateSampler builds a nearest-filter clamping sampler. None of the
// current kernels bind one, but sampler-bearing kernels own their
// samplers for life, so creation lives next to the other factories.
func (vb *VulkanBackend) CreateSampler(label string) (compute.Sampler, error) {
	createInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterNearest,
		MinFilter:               vk.FilterNearest,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		AnisotropyEnable:        vk.False,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}

	var sampler vk.Sampler
	if err := lockPool.SafeCall(SamplerManagement, func() error {
		if res := vk.CreateSampler(
			vb.context.Device.LogicalDevice,
			&createInfo,
			vb.context.Allocator,
			&sampler); !VulkanResultIsSuccess(res) {
			return fmt.Errorf("vkCreateSampler failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	vb.labelResource("sampler", label)
	return sampler, nil
}

func (vb *VulkanBackend) DestroySampler(sampler compute.Sampler) {
	lockPool.SafeCall(SamplerManagement, func() error {
		vk.DestroySampler(vb.context.Device.LogicalDevice, sampler.(vk.Sampler), vb.context.Allocator)
		return nil
	})
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
