package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	// Present modes from the configuration, most preferred first.
	PreferredPresentModes []vk.PresentMode
	ClearColor            [4]float32

	// Rebuilt on every surface change.
	Swapchain *VulkanSwapchain
	Resources *SurfaceResources
}
