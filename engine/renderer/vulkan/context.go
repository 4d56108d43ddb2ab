package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	// Only in debug mode.
	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice
}
