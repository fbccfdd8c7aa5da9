package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/core"
	"github.com/spaghettifunk/swapper/engine/renderer/metadata"
)

// FramePacer drives the acquire, submit and present cycle over a fixed number
// of frame slots and rebuilds the chain and its resources whenever the
// surface goes stale. It must be driven from a single goroutine.
type FramePacer struct {
	backend        metadata.Backend
	framesInFlight uint32
	currentFrame   uint32

	slots          []*FrameSlot
	imagesInFlight *ImagesInFlight
	mode           Mode
	stats          Stats

	// surfaceStack holds the chain and its resources, slotStack the frame
	// slot sync objects. Only the surface stack is unwound on rebuild.
	surfaceStack *containers.TeardownStack
	slotStack    *containers.TeardownStack
}

// NewFramePacer builds the chain, its resources and the frame slots. A
// minimized surface is not an error: the pacer starts in ModeRebuilding and
// builds the chain once the surface has a size.
func NewFramePacer(backend metadata.Backend, framesInFlight uint32) (*FramePacer, error) {
	if framesInFlight == 0 {
		return nil, fmt.Errorf("%w: frames in flight must be at least 1", core.ErrInvalidConfig)
	}

	p := &FramePacer{
		backend:        backend,
		framesInFlight: framesInFlight,
		imagesInFlight: NewImagesInFlight(),
		surfaceStack:   containers.NewTeardownStack(),
		slotStack:      containers.NewTeardownStack(),
	}

	if err := p.buildSurface(); err != nil {
		if !errors.Is(err, core.ErrMinimized) {
			return nil, err
		}
		core.LogInfo("Surface is minimized, deferring the swapchain build.")
		p.mode = ModeRebuilding
	}

	p.slots = make([]*FrameSlot, framesInFlight)
	for i := uint32(0); i < framesInFlight; i++ {
		slot, err := newFrameSlot(backend, i, p.slotStack)
		if err != nil {
			core.LogError("failed to create frame slot %d: %s", i, err)
			p.slotStack.Unwind()
			p.surfaceStack.Unwind()
			return nil, err
		}
		p.slots[i] = slot
	}

	core.LogInfo("Frame pacer created with %d frames in flight.", framesInFlight)
	return p, nil
}

// DrawFrame runs one iteration of the frame protocol. Stale surfaces are
// absorbed by rebuilding; only fatal errors are returned.
func (p *FramePacer) DrawFrame(in FrameInput) error {
	if p.mode == ModeRebuilding || in.Resized || in.Invalidate {
		if err := p.Rebuild(); err != nil {
			return err
		}
		if p.mode == ModeRebuilding {
			// still minimized
			return nil
		}
	}

	slot := p.slots[p.currentFrame]

	if err := slot.InFlight.Wait(); err != nil {
		core.LogError("failed to wait on the in-flight fence of slot %d: %s", slot.Index, err)
		return err
	}

	slot.State = SlotAcquirePending
	imageIndex, status, err := p.backend.AcquireNextImage(slot.ImageAvailable)
	if err != nil {
		slot.State = SlotIdle
		return err
	}
	if status == metadata.PresentOutOfDate {
		// the fence was not reset, so the next wait on this slot returns
		slot.State = SlotIdle
		return p.absorb(status.Err())
	}

	// another slot may still be rendering into this image
	prev, err := p.imagesInFlight.Get(imageIndex)
	if err != nil {
		return err
	}
	if prev != nil && prev != slot.InFlight {
		p.stats.HazardWaits++
		if err := prev.Wait(); err != nil {
			core.LogError("failed to wait on the fence of image %d: %s", imageIndex, err)
			return err
		}
	}
	if err := p.imagesInFlight.Set(imageIndex, slot.InFlight); err != nil {
		return err
	}

	if err := slot.InFlight.Reset(); err != nil {
		return err
	}
	if err := p.backend.Submit(imageIndex, slot.ImageAvailable, slot.RenderComplete, slot.InFlight); err != nil {
		core.LogError("failed to submit frame %d: %s", p.stats.FramesPresented, err)
		return err
	}
	slot.State = SlotSubmitted

	status, err = p.present(slot, imageIndex)
	if err != nil {
		return err
	}
	p.stats.FramesPresented++
	if err := status.Err(); err != nil {
		if err := p.absorb(err); err != nil {
			return err
		}
	}

	p.currentFrame = (p.currentFrame + 1) % p.framesInFlight
	return nil
}

func (p *FramePacer) present(slot *FrameSlot, imageIndex uint32) (metadata.PresentStatus, error) {
	slot.State = SlotPresentPending
	defer func() { slot.State = SlotIdle }()
	return p.backend.Present(imageIndex, slot.RenderComplete)
}

// absorb rebuilds on a transient error and returns anything else unchanged.
func (p *FramePacer) absorb(err error) error {
	if core.Classify(err) != core.ErrorKindTransientStaleness {
		return err
	}
	core.LogDebug("%s, rebuilding the swapchain.", err)
	return p.Rebuild()
}

// Rebuild waits for the device to go idle, destroys the resources and the
// chain, then builds both again at the current surface size. The frame slots
// are kept. When the surface is minimized the pacer stays in ModeRebuilding
// and the next DrawFrame tries again.
func (p *FramePacer) Rebuild() error {
	p.mode = ModeRebuilding

	if err := p.backend.WaitIdle(); err != nil {
		core.LogError("failed to wait for the device before a rebuild: %s", err)
		return err
	}
	p.surfaceStack.Unwind()
	if err := p.imagesInFlight.Reset(0); err != nil {
		return err
	}

	if err := p.buildSurface(); err != nil {
		if errors.Is(err, core.ErrMinimized) {
			core.LogDebug("Surface is minimized, rebuild deferred.")
			return nil
		}
		return err
	}

	p.mode = ModeRunning
	p.stats.Rebuilds++
	core.LogInfo("Swapchain rebuilt with %d images.", p.backend.ImageCount())
	return nil
}

// buildSurface creates the chain and its resources and resets the image
// table. It fails with core.ErrMinimized when the surface has no area.
func (p *FramePacer) buildSurface() error {
	width, height := p.backend.FramebufferSize()
	if width == 0 || height == 0 {
		return core.ErrMinimized
	}

	if err := p.backend.BuildChain(width, height); err != nil {
		return err
	}
	p.surfaceStack.Push("swapchain", p.backend.DestroyChain)

	if err := p.backend.BuildResources(); err != nil {
		p.surfaceStack.Unwind()
		return err
	}
	p.surfaceStack.Push("surface resources", p.backend.DestroyResources)

	imageCount := p.backend.ImageCount()
	if resources := p.backend.ResourceCount(); resources != imageCount {
		p.surfaceStack.Unwind()
		return fmt.Errorf("%w: %d resources for %d images", core.ErrCountMismatch, resources, imageCount)
	}
	return p.imagesInFlight.Reset(imageCount)
}

// Shutdown waits for the device and destroys everything the pacer owns, the
// frame slots first.
func (p *FramePacer) Shutdown() error {
	err := p.backend.WaitIdle()
	if err != nil {
		core.LogError("failed to wait for the device before shutdown: %s", err)
	}
	p.slotStack.Unwind()
	p.slots = nil
	p.surfaceStack.Unwind()
	return err
}

func (p *FramePacer) Mode() Mode {
	return p.mode
}

func (p *FramePacer) CurrentFrame() uint32 {
	return p.currentFrame
}

func (p *FramePacer) ImagesInFlight() *ImagesInFlight {
	return p.imagesInFlight
}

func (p *FramePacer) Stats() Stats {
	s := p.stats
	s.Mode = p.mode
	return s
}
