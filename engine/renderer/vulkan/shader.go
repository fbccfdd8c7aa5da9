package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/swapper/engine/core"
)

// ShaderSource hands out compiled SPIR-V by stage name ("vert", "frag").
type ShaderSource interface {
	ShaderCode(stage string) ([]byte, error)
}

type VulkanShaderStage struct {
	Module vk.ShaderModule
	Stage  vk.ShaderStageFlagBits
}

func newShaderStage(context *VulkanContext, code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V size %d is not a multiple of 4", core.ErrInvalidConfig, len(code))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    bytesToBytecode(code),
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		err := resultError(core.ErrObjectCreate, "vkCreateShaderModule", res)
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanShaderStage{Module: module, Stage: stage}, nil
}

func (s *VulkanShaderStage) CreateInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Module,
		PName:  "main\x00",
	}
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Module != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Module, context.Allocator)
		s.Module = vk.NullShaderModule
	}
}

// loadShaderStages reads the vertex and fragment stages. The modules are only
// needed while the pipeline is being created.
func loadShaderStages(context *VulkanContext, source ShaderSource) ([]*VulkanShaderStage, error) {
	stages := []struct {
		name string
		flag vk.ShaderStageFlagBits
	}{
		{"vert", vk.ShaderStageVertexBit},
		{"frag", vk.ShaderStageFragmentBit},
	}

	out := make([]*VulkanShaderStage, 0, len(stages))
	for _, s := range stages {
		code, err := source.ShaderCode(s.name)
		if err != nil {
			destroyShaderStages(context, out)
			return nil, err
		}
		stage, err := newShaderStage(context, code, s.flag)
		if err != nil {
			destroyShaderStages(context, out)
			return nil, fmt.Errorf("shader stage %s: %w", s.name, err)
		}
		out = append(out, stage)
	}
	return out, nil
}

func destroyShaderStages(context *VulkanContext, stages []*VulkanShaderStage) {
	for _, s := range stages {
		s.Destroy(context)
	}
}
