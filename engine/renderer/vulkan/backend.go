package vulkan

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/core"
	"github.com/spaghettifunk/swapper/engine/platform"
	"github.com/spaghettifunk/swapper/engine/renderer/metadata"
)

var _ metadata.Backend = (*VulkanBackend)(nil)

// VulkanBackend owns the instance, the surface and the device, and builds the
// chain and its resources on request of the frame pacer.
type VulkanBackend struct {
	platform *platform.Platform
	context  *VulkanContext
	shaders  ShaderSource

	// instance, debug callback, surface, device
	teardown *containers.TeardownStack
}

func New(p *platform.Platform, shaders ShaderSource) *VulkanBackend {
	return &VulkanBackend{
		platform: p,
		shaders:  shaders,
		context: &VulkanContext{
			Allocator: nil,
		},
		teardown: containers.NewTeardownStack(),
	}
}

func (vb *VulkanBackend) Context() *VulkanContext {
	return vb.context
}

// Initialize creates everything that lives as long as the surface. On failure
// whatever was created is destroyed again.
func (vb *VulkanBackend) Initialize(config *metadata.RendererBackendConfig) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrNoSuitableDevice)
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vb.context.ClearColor = config.ClearColor
	vb.context.PreferredPresentModes = vb.context.PreferredPresentModes[:0]
	for _, name := range config.PreferredPresentModes {
		mode, err := PresentModeFromString(name)
		if err != nil {
			return err
		}
		vb.context.PreferredPresentModes = append(vb.context.PreferredPresentModes, mode)
	}

	if err := vb.createInstance(config.ApplicationName, config.Validation); err != nil {
		vb.teardown.Unwind()
		return err
	}

	if config.Validation {
		if err := createDebugCallback(vb.context); err != nil {
			vb.teardown.Unwind()
			return err
		}
		vb.teardown.Push("debug callback", func() { destroyDebugCallback(vb.context) })
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vb.platform.CreateSurface(vb.context.Instance)
	if err != nil {
		vb.teardown.Unwind()
		return fmt.Errorf("%w: %s", core.ErrNoSuitableDevice, err)
	}
	vb.context.Surface = surface
	vb.teardown.Push("surface", func() {
		vk.DestroySurface(vb.context.Instance, vb.context.Surface, vb.context.Allocator)
		vb.context.Surface = vk.NullSurface
	})
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := DeviceCreate(vb.context); err != nil {
		core.LogError("Failed to create device: %s", err)
		vb.teardown.Unwind()
		return err
	}
	vb.teardown.Push("device", func() { DeviceDestroy(vb.context) })

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vb *VulkanBackend) createInstance(appName string, validation bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Swapper Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := vb.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)

		found, err := validationLayersAvailable()
		if err != nil {
			return err
		}
		if found {
			layers = append(layers, validationLayerName)
		} else {
			core.LogWarn("Validation layer %s is missing, continuing without it.", validationLayerName)
		}
	}

	core.LogInfo("Required extensions:")
	for _, ext := range requiredExtensions {
		core.LogInfo(ext)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &instance); res != vk.Success {
		err := resultError(core.ErrConfiguration, "vkCreateInstance", res)
		core.LogError(err.Error())
		return err
	}
	vb.context.Instance = instance
	vb.teardown.Push("instance", func() {
		vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
		vb.context.Instance = nil
	})

	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

// Shutdown destroys the device, the surface, the debug callback and the
// instance. The pacer must have been shut down first.
func (vb *VulkanBackend) Shutdown() {
	vb.teardown.Unwind()
}

func (vb *VulkanBackend) NewFence(signaled bool) (metadata.Fence, error) {
	fence, err := NewFence(vb.context, signaled)
	if err != nil {
		return nil, err
	}
	return fence, nil
}

func (vb *VulkanBackend) NewSemaphore() (metadata.Semaphore, error) {
	semaphore, err := NewSemaphore(vb.context)
	if err != nil {
		return nil, err
	}
	return semaphore, nil
}

func (vb *VulkanBackend) FramebufferSize() (uint32, uint32) {
	return vb.platform.FramebufferSize()
}

func (vb *VulkanBackend) BuildChain(width, height uint32) error {
	swapchain, err := SwapchainCreate(vb.context, width, height)
	if err != nil {
		return err
	}
	vb.context.Swapchain = swapchain
	return nil
}

func (vb *VulkanBackend) DestroyChain() {
	if vb.context.Swapchain != nil {
		vb.context.Swapchain.Destroy(vb.context)
		vb.context.Swapchain = nil
	}
}

func (vb *VulkanBackend) BuildResources() error {
	resources, err := SurfaceResourcesCreate(vb.context, vb.context.Swapchain, vb.shaders)
	if err != nil {
		return err
	}
	vb.context.Resources = resources
	return nil
}

func (vb *VulkanBackend) DestroyResources() {
	if vb.context.Resources != nil {
		vb.context.Resources.Destroy()
		vb.context.Resources = nil
	}
}

func (vb *VulkanBackend) ImageCount() uint32 {
	if vb.context.Swapchain == nil {
		return 0
	}
	return vb.context.Swapchain.ImageCount()
}

func (vb *VulkanBackend) ResourceCount() uint32 {
	return vb.context.Resources.Count()
}

func (vb *VulkanBackend) AcquireNextImage(signal metadata.Semaphore) (uint32, metadata.PresentStatus, error) {
	sem, err := asSemaphore(signal)
	if err != nil {
		return 0, metadata.PresentSuccess, err
	}
	return vb.context.Swapchain.AcquireNextImage(vb.context, sem.Handle)
}

// Submit replays the command buffer recorded for the image. Color output
// waits on the acquire semaphore.
func (vb *VulkanBackend) Submit(imageIndex uint32, wait, signal metadata.Semaphore, fence metadata.Fence) error {
	waitSem, err := asSemaphore(wait)
	if err != nil {
		return err
	}
	signalSem, err := asSemaphore(signal)
	if err != nil {
		return err
	}
	inFlight, ok := fence.(*VulkanFence)
	if !ok {
		return fmt.Errorf("%w: fence of type %T", core.ErrInvariantViolation, fence)
	}
	commandBuffer, err := vb.context.Resources.CommandBuffer(imageIndex)
	if err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{waitSem.Handle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signalSem.Handle},
	}

	if res := vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, inFlight.Handle); res != vk.Success {
		err := resultError(core.ErrResourceExhaustion, "vkQueueSubmit", res)
		core.LogError(err.Error())
		return err
	}
	inFlight.markPending()
	commandBuffer.UpdateSubmitted()
	return nil
}

func (vb *VulkanBackend) Present(imageIndex uint32, wait metadata.Semaphore) (metadata.PresentStatus, error) {
	waitSem, err := asSemaphore(wait)
	if err != nil {
		return metadata.PresentSuccess, err
	}
	return vb.context.Swapchain.Present(vb.context.Device.PresentQueue, waitSem.Handle, imageIndex)
}

func (vb *VulkanBackend) WaitIdle() error {
	if vb.context.Device == nil || vb.context.Device.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vb.context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("vkDeviceWaitIdle failed with %s", VulkanResultString(res))
	}
	return nil
}

func asSemaphore(s metadata.Semaphore) (*VulkanSemaphore, error) {
	sem, ok := s.(*VulkanSemaphore)
	if !ok {
		return nil, fmt.Errorf("%w: semaphore of type %T", core.ErrInvariantViolation, s)
	}
	return sem, nil
}
