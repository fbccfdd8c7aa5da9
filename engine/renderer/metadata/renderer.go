package metadata

import "github.com/spaghettifunk/swapper/engine/core"

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief Number of frames the host may record ahead of the GPU. */
	FramesInFlight uint32
	/** @brief Present modes in order of preference. */
	PreferredPresentModes []string
	/** @brief Enables validation layers and the debug report callback. */
	Validation bool
	/** @brief Directory holding vert.spv and frag.spv. */
	ShaderDir  string
	ClearColor [4]float32
}

// PresentStatus is the non-fatal outcome of an acquire or a present.
type PresentStatus uint8

const (
	PresentSuccess PresentStatus = iota
	// The chain still works but no longer matches the surface.
	PresentSuboptimal
	// The chain can no longer be used with the surface.
	PresentOutOfDate
)

func (s PresentStatus) String() string {
	switch s {
	case PresentSuboptimal:
		return "suboptimal"
	case PresentOutOfDate:
		return "out of date"
	default:
		return "success"
	}
}

// Err maps a stale status to its transient error, or nil on success.
func (s PresentStatus) Err() error {
	switch s {
	case PresentSuboptimal:
		return core.ErrSuboptimal
	case PresentOutOfDate:
		return core.ErrOutOfDate
	default:
		return nil
	}
}

// Fence is a host-waitable GPU signal.
type Fence interface {
	// Wait blocks until the fence is signaled.
	Wait() error
	// Reset moves the fence back to the unsignaled state.
	Reset() error
	Destroy()
}

// Semaphore is a GPU-to-GPU signal.
type Semaphore interface {
	Destroy()
}

// Backend is what the frame pacer drives. It owns the presentation chain and
// the resources that depend on it; the pacer owns the per-frame sync objects
// it creates through the backend.
type Backend interface {
	NewFence(signaled bool) (Fence, error)
	NewSemaphore() (Semaphore, error)

	// FramebufferSize reports the current drawable size of the surface.
	FramebufferSize() (width, height uint32)

	BuildChain(width, height uint32) error
	DestroyChain()
	BuildResources() error
	DestroyResources()
	ImageCount() uint32
	ResourceCount() uint32

	// AcquireNextImage asks for the next presentable image. signal is
	// signaled once the image may be written.
	AcquireNextImage(signal Semaphore) (uint32, PresentStatus, error)
	// Submit executes the recorded work for the image once wait is signaled,
	// then signals both signal and fence.
	Submit(imageIndex uint32, wait, signal Semaphore, fence Fence) error
	// Present queues the image for display once wait is signaled.
	Present(imageIndex uint32, wait Semaphore) (PresentStatus, error)

	WaitIdle() error
}
