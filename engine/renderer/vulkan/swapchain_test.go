package vulkan

import (
	"errors"
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/core"
)

var (
	unorm = vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	srgb  = vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba  = vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	// right format, extended sRGB linear color space
	srgbLinear = vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpace(1000104002)}
)

func TestSelectSurfaceFormat(t *testing.T) {
	for _, x := range [...]struct {
		formats []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{[]vk.SurfaceFormat{srgb}, srgb},
		{[]vk.SurfaceFormat{srgb, unorm, rgba}, srgb},
		{[]vk.SurfaceFormat{unorm, srgb, rgba}, srgb},
		{[]vk.SurfaceFormat{unorm, rgba, srgb}, srgb},
		{[]vk.SurfaceFormat{unorm, rgba}, unorm},
		{[]vk.SurfaceFormat{rgba, srgbLinear}, rgba},
	} {
		if have := selectSurfaceFormat(x.formats); have != x.want {
			t.Fatalf("selectSurfaceFormat(%v)\nhave %v\nwant %v", x.formats, have, x.want)
		}
	}
}

func TestSelectPresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate, vk.PresentModeMailbox}
	fifoOnly := []vk.PresentMode{vk.PresentModeFifo}
	noMailbox := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}

	for _, x := range [...]struct {
		available []vk.PresentMode
		preferred []vk.PresentMode
		want      vk.PresentMode
	}{
		{all, []vk.PresentMode{vk.PresentModeMailbox}, vk.PresentModeMailbox},
		{all, []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox}, vk.PresentModeImmediate},
		{fifoOnly, []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate}, vk.PresentModeFifo},
		{all, nil, vk.PresentModeFifo},
		// immediate is never picked unless listed
		{noMailbox, []vk.PresentMode{vk.PresentModeMailbox}, vk.PresentModeFifo},
		{noMailbox, []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate}, vk.PresentModeImmediate},
	} {
		if have := selectPresentMode(x.available, x.preferred); have != x.want {
			t.Fatalf("selectPresentMode(%v, %v)\nhave %v\nwant %v", x.available, x.preferred, have, x.want)
		}
	}
}

func TestPresentModeFromString(t *testing.T) {
	for name, want := range map[string]vk.PresentMode{
		core.PresentModeMailbox:   vk.PresentModeMailbox,
		core.PresentModeImmediate: vk.PresentModeImmediate,
		core.PresentModeFifo:      vk.PresentModeFifo,
	} {
		have, err := PresentModeFromString(name)
		if err != nil || have != want {
			t.Fatalf("PresentModeFromString(%q)\nhave %v, %v\nwant %v, nil", name, have, err, want)
		}
	}
	if _, err := PresentModeFromString("vsync"); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("PresentModeFromString(vsync)\nhave %v\nwant %v", err, core.ErrConfiguration)
	}
}

func TestSelectExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 2048},
	}
	for _, x := range [...]struct {
		width, height uint32
		want          vk.Extent2D
	}{
		{800, 600, vk.Extent2D{Width: 800, Height: 600}},
		{10, 10, vk.Extent2D{Width: 64, Height: 64}},
		{8000, 3000, vk.Extent2D{Width: 4096, Height: 2048}},
	} {
		if have := selectExtent(caps, x.width, x.height); have != x.want {
			t.Fatalf("selectExtent(%d, %d)\nhave %v\nwant %v", x.width, x.height, have, x.want)
		}
	}

	// a fixed current extent wins over the requested size
	caps.CurrentExtent = vk.Extent2D{Width: 1024, Height: 768}
	if have := selectExtent(caps, 800, 600); have != caps.CurrentExtent {
		t.Fatalf("selectExtent with current extent\nhave %v\nwant %v", have, caps.CurrentExtent)
	}
}

func TestSelectImageCount(t *testing.T) {
	for _, x := range [...]struct {
		min, max uint32
		want     uint32
	}{
		{2, 2, 2},
		{2, 3, 3},
		{2, 8, 3},
		{3, 0, 4},
		{1, 1, 1},
	} {
		caps := vk.SurfaceCapabilities{MinImageCount: x.min, MaxImageCount: x.max}
		if have := selectImageCount(caps); have != x.want {
			t.Fatalf("selectImageCount(min=%d, max=%d)\nhave %d\nwant %d", x.min, x.max, have, x.want)
		}
	}
}

func TestSelectSharingMode(t *testing.T) {
	split := QueueFamilyIndices{Graphics: containers.IndexOf(0), Present: containers.IndexOf(2)}
	mode, indices := selectSharingMode(split)
	if mode != vk.SharingModeConcurrent {
		t.Fatalf("sharing mode for split families\nhave %v\nwant %v", mode, vk.SharingModeConcurrent)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Fatalf("family indices\nhave %v\nwant [0 2]", indices)
	}

	shared := QueueFamilyIndices{Graphics: containers.IndexOf(1), Present: containers.IndexOf(1)}
	mode, indices = selectSharingMode(shared)
	if mode != vk.SharingModeExclusive {
		t.Fatalf("sharing mode for one family\nhave %v\nwant %v", mode, vk.SharingModeExclusive)
	}
	if indices != nil {
		t.Fatalf("family indices\nhave %v\nwant nil", indices)
	}
}

func TestSwapchainSupportAdequate(t *testing.T) {
	for _, x := range [...]struct {
		support SwapchainSupportInfo
		want    bool
	}{
		{SwapchainSupportInfo{Formats: []vk.SurfaceFormat{srgb}, PresentModes: []vk.PresentMode{vk.PresentModeFifo}}, true},
		{SwapchainSupportInfo{PresentModes: []vk.PresentMode{vk.PresentModeFifo}}, false},
		{SwapchainSupportInfo{Formats: []vk.SurfaceFormat{srgb}}, false},
		{SwapchainSupportInfo{}, false},
	} {
		if have := x.support.Adequate(); have != x.want {
			t.Fatalf("Adequate(%+v)\nhave %t\nwant %t", x.support, have, x.want)
		}
	}
}

func TestBytesToBytecode(t *testing.T) {
	code := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if len(code) != 2 || code[0] != 0x07230203 || code[1] != 1 {
		t.Fatalf("bytesToBytecode\nhave %#x\nwant [0x7230203 0x1]", code)
	}
}

func TestResultError(t *testing.T) {
	err := resultError(core.ErrObjectCreate, "vkCreateFence", vk.ErrorDeviceLost)
	if !errors.Is(err, core.ErrObjectCreate) {
		t.Fatalf("resultError\nhave %v\nwant %v", err, core.ErrObjectCreate)
	}
	err = resultError(core.ErrChainCreateFailed, "vkCreateSwapchainKHR", vk.ErrorOutOfDeviceMemory)
	if core.Classify(err) != core.ErrorKindResourceExhaustion {
		t.Fatalf("Classify\nhave %s\nwant %s", core.Classify(err), core.ErrorKindResourceExhaustion)
	}
	if s := VulkanResultString(vk.Result(-12345)); s != "VkResult(-12345)" {
		t.Fatalf("VulkanResultString\nhave %s\nwant VkResult(-12345)", s)
	}
}
