package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport *SwapchainSupportInfo
	Families         QueueFamilyIndices

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
}

// QueueFamilyIndices are resolved once per physical device and stay valid
// for the whole life of the logical device.
type QueueFamilyIndices struct {
	Graphics containers.OptionalIndex
	Present  containers.OptionalIndex
}

func (q QueueFamilyIndices) IsComplete() bool {
	return q.Graphics.HasValue() && q.Present.HasValue()
}

// SharesQueue reports whether graphics and presentation use one family.
func (q QueueFamilyIndices) SharesQueue() bool {
	return q.IsComplete() && q.Graphics.MustValue() == q.Present.MustValue()
}

// Unique returns the distinct family indices, graphics first.
func (q QueueFamilyIndices) Unique() []uint32 {
	if !q.IsComplete() {
		return nil
	}
	if q.SharesQueue() {
		return []uint32{q.Graphics.MustValue()}
	}
	return []uint32{q.Graphics.MustValue(), q.Present.MustValue()}
}

// ResolveQueueFamilies picks the first family with graphics support and the
// first family that can present to the surface. presentSupport is asked for
// every family until a present family is found. Either index stays empty when
// no family qualifies.
func ResolveQueueFamilies(families []vk.QueueFamilyProperties, presentSupport func(index uint32) (bool, error)) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	for i := range families {
		index := uint32(i)
		if !indices.Graphics.HasValue() && vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			indices.Graphics.Set(index)
		}
		if !indices.Present.HasValue() {
			supported, err := presentSupport(index)
			if err != nil {
				return QueueFamilyIndices{}, err
			}
			if supported {
				indices.Present.Set(index)
			}
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices, nil
}

func queryQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (QueueFamilyIndices, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
	}

	return ResolveQueueFamilies(queueFamilies, func(index uint32) (bool, error) {
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, index, surface, &supportsPresent); res != vk.Success {
			return false, fmt.Errorf("vkGetPhysicalDeviceSurfaceSupport failed with %s", VulkanResultString(res))
		}
		return supportsPresent == vk.True, nil
	})
}

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoSuitableDevice)
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}

	requirements := VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for _, physicalDevice := range physicalDevices {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()
		name := vk.ToString(properties.DeviceName[:])

		families, support, ok, err := PhysicalDeviceMeetsRequirements(physicalDevice, context.Surface, &requirements)
		if err != nil {
			return err
		}
		if !ok {
			core.LogInfo("Device '%s' does not meet the requirements, skipping.", name)
			continue
		}

		core.LogInfo("Selected device: '%s'.", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo(
			"Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch(),
		)
		core.LogDebug("Graphics Family Index: %s", families.Graphics)
		core.LogDebug("Present Family Index:  %s", families.Present)

		context.Device.PhysicalDevice = physicalDevice
		context.Device.Families = families
		context.Device.SwapchainSupport = support
		context.Device.Properties = properties
		core.LogInfo("Physical device selected.")
		return nil
	}

	return core.ErrNoSuitableDevice
}

// PhysicalDeviceMeetsRequirements checks that the device has both queue
// families, the required extensions and an adequate surface.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, requirements *VulkanPhysicalDeviceRequirements) (QueueFamilyIndices, *SwapchainSupportInfo, bool, error) {
	families, err := queryQueueFamilies(device, surface)
	if err != nil {
		return families, nil, false, err
	}
	if !families.IsComplete() {
		return families, nil, false, nil
	}

	if len(requirements.DeviceExtensionNames) > 0 {
		available, err := deviceExtensionNames(device)
		if err != nil {
			return families, nil, false, err
		}
		for _, required := range requirements.DeviceExtensionNames {
			if _, found := available[required]; !found {
				core.LogInfo("Required extension not found: '%s', skipping device.", required)
				return families, nil, false, nil
			}
		}
	}

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil {
		return families, nil, false, err
	}
	if !support.Adequate() {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return families, nil, false, nil
	}
	return families, support, true, nil
}

func deviceExtensionNames(device vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateDeviceExtensionProperties failed with %s", VulkanResultString(res))
	}
	extensions := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, extensions); res != vk.Success {
			return nil, fmt.Errorf("vkEnumerateDeviceExtensionProperties failed with %s", VulkanResultString(res))
		}
	}
	names := make(map[string]struct{}, count)
	for i := range extensions {
		extensions[i].Deref()
		names[vk.ToString(extensions[i].ExtensionName[:])] = struct{}{}
	}
	return names, nil
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*SwapchainSupportInfo, error) {
	supportInfo := &SwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return nil, fmt.Errorf("vkGetPhysicalDeviceSurfaceCapabilities failed with %s", VulkanResultString(res))
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, fmt.Errorf("vkGetPhysicalDeviceSurfaceFormats failed with %s", VulkanResultString(res))
	}
	if formatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return nil, fmt.Errorf("vkGetPhysicalDeviceSurfaceFormats failed with %s", VulkanResultString(res))
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return nil, fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModes failed with %s", VulkanResultString(res))
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return nil, fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModes failed with %s", VulkanResultString(res))
		}
	}
	return supportInfo, nil
}

// DeviceCreate selects a physical device, then creates the logical device
// with one queue per distinct family and the graphics command pool.
func DeviceCreate(context *VulkanContext) error {
	context.Device = &VulkanDevice{}
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// Do not create additional queues for shared indices.
	families := context.Device.Families.Unique()
	queuePriority := float32(1.0)
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{queuePriority},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensionNames(context.Device.PhysicalDevice)
	if err != nil {
		return err
	}
	if _, ok := available["VK_KHR_portability_subset"]; ok {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		return resultError(core.ErrObjectCreate, "vkCreateDevice", res)
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	graphics := context.Device.Families.Graphics.MustValue()
	present := context.Device.Families.Present.MustValue()
	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, graphics, 0, &graphicsQueue)
	vk.GetDeviceQueue(device, present, 0, &presentQueue)
	context.Device.GraphicsQueue = graphicsQueue
	context.Device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	// Command pool for the graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: graphics,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		vk.DestroyDevice(device, context.Allocator)
		context.Device.LogicalDevice = nil
		return resultError(core.ErrObjectCreate, "vkCreateCommandPool", res)
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	core.LogDebug("Destroying command pools...")
	if context.Device.GraphicsCommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
		context.Device.GraphicsCommandPool = nil
	}

	core.LogDebug("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = nil
	context.Device.Families = QueueFamilyIndices{}
}
