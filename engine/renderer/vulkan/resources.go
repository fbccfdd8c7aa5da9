package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/core"
)

// SurfaceResources is everything that depends on the chain: the render pass,
// the pipeline, and one framebuffer and command buffer per image. The set is
// built and destroyed as a unit.
type SurfaceResources struct {
	Renderpass     *VulkanRenderpass
	Pipeline       *VulkanPipeline
	Framebuffers   *containers.HandleStore[*VulkanFramebuffer]
	CommandBuffers *containers.HandleStore[*VulkanCommandBuffer]

	teardown *containers.TeardownStack
}

// SurfaceResourcesCreate builds the resources for the given chain and records
// one command buffer per image. A failure destroys whatever was built.
func SurfaceResourcesCreate(context *VulkanContext, swapchain *VulkanSwapchain, shaders ShaderSource) (*SurfaceResources, error) {
	res := &SurfaceResources{
		teardown: containers.NewTeardownStack(),
	}
	imageCount := swapchain.Views.Len()

	renderpass, err := RenderpassCreate(context, swapchain.ImageFormat.Format, swapchain.Extent, context.ClearColor)
	if err != nil {
		return nil, err
	}
	res.Renderpass = renderpass
	res.teardown.Push("renderpass", func() { renderpass.Destroy(context) })

	stages, err := loadShaderStages(context, shaders)
	if err != nil {
		res.teardown.Unwind()
		return nil, err
	}
	stageInfos := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, s := range stages {
		stageInfos[i] = s.CreateInfo()
	}
	pipeline, err := NewGraphicsPipeline(context, &VulkanPipelineConfig{
		Renderpass: renderpass,
		Stages:     stageInfos,
		Extent:     swapchain.Extent,
	})
	destroyShaderStages(context, stages)
	if err != nil {
		res.teardown.Unwind()
		return nil, err
	}
	res.Pipeline = pipeline
	res.teardown.Push("pipeline", func() { pipeline.Destroy(context) })

	// Framebuffers
	res.Framebuffers = containers.NewHandleStore[*VulkanFramebuffer](imageCount)
	err = swapchain.Views.All(func(i int, view vk.ImageView) error {
		fb, err := FramebufferCreate(context, renderpass, swapchain.Extent, []vk.ImageView{view})
		if err != nil {
			return err
		}
		res.teardown.Push(fmt.Sprintf("framebuffer %d", i), func() { fb.Destroy(context) })
		return res.Framebuffers.Push(fb)
	})
	if err != nil {
		res.teardown.Unwind()
		return nil, err
	}

	// Command buffers
	res.CommandBuffers = containers.NewHandleStore[*VulkanCommandBuffer](imageCount)
	err = res.Framebuffers.All(func(i int, fb *VulkanFramebuffer) error {
		cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		res.teardown.Push(fmt.Sprintf("command buffer %d", i), func() {
			cb.Free(context, context.Device.GraphicsCommandPool)
		})
		if err := res.CommandBuffers.Push(cb); err != nil {
			return err
		}
		return res.record(cb, fb)
	})
	if err != nil {
		res.teardown.Unwind()
		return nil, err
	}

	core.LogDebug("Surface resources created for %d images.", imageCount)
	return res, nil
}

// record writes the commands for one image: clear, bind and draw a single
// triangle. The buffer is replayed every time the image comes around.
func (res *SurfaceResources) record(cb *VulkanCommandBuffer, fb *VulkanFramebuffer) error {
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}
	res.Renderpass.Begin(cb, fb.Handle)
	res.Pipeline.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdDraw(cb.Handle, 3, 1, 0, 0)
	res.Renderpass.End(cb)
	return cb.End()
}

// Count is the number of framebuffers, which must match the chain images.
func (res *SurfaceResources) Count() uint32 {
	if res == nil || res.Framebuffers == nil {
		return 0
	}
	return uint32(res.Framebuffers.Len())
}

func (res *SurfaceResources) CommandBuffer(imageIndex uint32) (*VulkanCommandBuffer, error) {
	return res.CommandBuffers.Get(int(imageIndex))
}

// Destroy releases the set in reverse creation order. The device must be idle.
func (res *SurfaceResources) Destroy() {
	res.teardown.Unwind()
	if res.Framebuffers != nil {
		res.Framebuffers.Destroy()
	}
	if res.CommandBuffers != nil {
		res.CommandBuffers.Destroy()
	}
	res.Renderpass = nil
	res.Pipeline = nil
}
