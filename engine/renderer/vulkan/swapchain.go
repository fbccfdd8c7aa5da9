package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/core"
	emath "github.com/spaghettifunk/swapper/engine/math"
	"github.com/spaghettifunk/swapper/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	// Identifies one build of the chain in the logs.
	ID          uuid.UUID
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      *containers.HandleStore[vk.Image]
	Views       *containers.HandleStore[vk.ImageView]
}

type SwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate reports whether a chain can be built at all for the surface.
func (s *SwapchainSupportInfo) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

func (vs *VulkanSwapchain) ImageCount() uint32 {
	return uint32(vs.Images.Len())
}

// PresentModeFromString maps a configuration name to a present mode.
func PresentModeFromString(name string) (vk.PresentMode, error) {
	switch name {
	case core.PresentModeMailbox:
		return vk.PresentModeMailbox, nil
	case core.PresentModeImmediate:
		return vk.PresentModeImmediate, nil
	case core.PresentModeFifo:
		return vk.PresentModeFifo, nil
	default:
		return vk.PresentModeFifo, fmt.Errorf("%w: unknown present mode %q", core.ErrInvalidConfig, name)
	}
}

// selectSurfaceFormat prefers 8-bit BGRA sRGB with the sRGB non-linear color
// space, wherever it appears, and falls back to the first format.
func selectSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// selectPresentMode returns the first preferred mode the surface supports.
// FIFO is always available.
func selectPresentMode(available []vk.PresentMode, preferred []vk.PresentMode) vk.PresentMode {
	for _, want := range preferred {
		for _, mode := range available {
			if mode == want {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

// selectExtent uses the current extent of the surface unless the surface
// lets the chain decide, in which case the requested size is clamped to the
// supported range.
func selectExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  emath.Clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: emath.Clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// selectImageCount asks for one image more than the minimum. A maximum of
// zero means there is no limit.
func selectImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	return emath.ClampMin(capabilities.MinImageCount+1, capabilities.MinImageCount, capabilities.MaxImageCount)
}

// selectSharingMode shares the images between both families when they
// differ.
func selectSharingMode(families QueueFamilyIndices) (vk.SharingMode, []uint32) {
	if families.SharesQueue() {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, families.Unique()
}

// SwapchainCreate builds a chain for the surface at the requested size. The
// surface is queried again since its limits change with the window. On
// failure every object created so far is destroyed.
func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrChainCreateFailed, err)
	}
	if !support.Adequate() {
		return nil, fmt.Errorf("%w: surface has no formats or present modes", core.ErrChainCreateFailed)
	}
	context.Device.SwapchainSupport = support

	swapchain := &VulkanSwapchain{
		ID:          uuid.New(),
		ImageFormat: selectSurfaceFormat(support.Formats),
		PresentMode: selectPresentMode(support.PresentModes, context.PreferredPresentModes),
		Extent:      selectExtent(support.Capabilities, width, height),
	}
	imageCount := selectImageCount(support.Capabilities)
	sharingMode, familyIndices := selectSharingMode(context.Device.Families)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               context.Surface,
		MinImageCount:         imageCount,
		ImageFormat:           swapchain.ImageFormat.Format,
		ImageColorSpace:       swapchain.ImageFormat.ColorSpace,
		ImageExtent:           swapchain.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: uint32(len(familyIndices)),
		PQueueFamilyIndices:   familyIndices,
		PreTransform:          support.Capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           swapchain.PresentMode,
		Clipped:               vk.True,
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		err := resultError(core.ErrChainCreateFailed, "vkCreateSwapchainKHR", res)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	rollback := containers.NewTeardownStack()
	rollback.Push("swapchain", func() {
		vk.DestroySwapchain(context.Device.LogicalDevice, swapchainHandle, context.Allocator)
	})

	// Images
	var count uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &count, nil); res != vk.Success {
		rollback.Unwind()
		return nil, resultError(core.ErrChainCreateFailed, "vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &count, images); res != vk.Success {
		rollback.Unwind()
		return nil, resultError(core.ErrChainCreateFailed, "vkGetSwapchainImagesKHR", res)
	}
	swapchain.Images = containers.NewHandleStoreFrom(images)
	swapchain.Views = containers.NewHandleStore[vk.ImageView](int(count))

	// Views
	for i, image := range images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
			rollback.Unwind()
			return nil, resultError(core.ErrChainCreateFailed, fmt.Sprintf("vkCreateImageView (image %d)", i), res)
		}
		rollback.Push(fmt.Sprintf("image view %d", i), func() {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
		})
		if err := swapchain.Views.Push(view); err != nil {
			rollback.Unwind()
			return nil, err
		}
	}

	core.LogInfo("Swapchain %s created: %d images, %dx%d.", swapchain.ID, count, swapchain.Extent.Width, swapchain.Extent.Height)
	return swapchain, nil
}

// Destroy releases the views and the chain. The images belong to the chain
// and go with it.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, view := range vs.Views.Slice() {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views.Destroy()
	vs.Images.Destroy()

	if vs.Handle != nil {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = nil
	}
	core.LogDebug("Swapchain %s destroyed.", vs.ID)
}

// AcquireNextImage maps out of date to a status. Suboptimal images are still
// usable, so the frame goes on and the present reports the staleness.
func (vs *VulkanSwapchain) AcquireNextImage(context *VulkanContext, imageAvailable vk.Semaphore) (uint32, metadata.PresentStatus, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, vk.MaxUint64, imageAvailable, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, metadata.PresentSuccess, nil
	case vk.ErrorOutOfDate:
		return 0, metadata.PresentOutOfDate, nil
	default:
		err := fmt.Errorf("vkAcquireNextImageKHR failed with %s", VulkanResultString(result))
		core.LogError(err.Error())
		return 0, metadata.PresentSuccess, err
	}
}

func (vs *VulkanSwapchain) Present(presentQueue vk.Queue, renderComplete vk.Semaphore, imageIndex uint32) (metadata.PresentStatus, error) {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return metadata.PresentSuccess, nil
	case vk.Suboptimal:
		return metadata.PresentSuboptimal, nil
	case vk.ErrorOutOfDate:
		return metadata.PresentOutOfDate, nil
	default:
		err := fmt.Errorf("vkQueuePresentKHR failed with %s", VulkanResultString(result))
		core.LogError(err.Error())
		return metadata.PresentSuccess, err
	}
}
