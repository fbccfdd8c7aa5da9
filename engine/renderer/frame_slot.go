package renderer

import (
	"fmt"

	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/renderer/metadata"
)

type SlotState uint8

const (
	SlotIdle SlotState = iota
	SlotAcquirePending
	SlotSubmitted
	SlotPresentPending
)

func (s SlotState) String() string {
	switch s {
	case SlotAcquirePending:
		return "acquire pending"
	case SlotSubmitted:
		return "submitted"
	case SlotPresentPending:
		return "present pending"
	default:
		return "idle"
	}
}

// FrameSlot holds the sync objects of one frame in flight. Slots are created
// once and survive every rebuild.
type FrameSlot struct {
	Index          uint32
	InFlight       metadata.Fence
	ImageAvailable metadata.Semaphore
	RenderComplete metadata.Semaphore
	State          SlotState
}

// newFrameSlot creates the sync objects of a slot, registering each one on
// the teardown stack. The fence starts signaled so the first wait returns.
func newFrameSlot(backend metadata.Backend, index uint32, stack *containers.TeardownStack) (*FrameSlot, error) {
	slot := &FrameSlot{Index: index}

	fence, err := backend.NewFence(true)
	if err != nil {
		return nil, err
	}
	slot.InFlight = fence
	stack.Push(fmt.Sprintf("frame slot %d in-flight fence", index), fence.Destroy)

	imageAvailable, err := backend.NewSemaphore()
	if err != nil {
		return nil, err
	}
	slot.ImageAvailable = imageAvailable
	stack.Push(fmt.Sprintf("frame slot %d image-available semaphore", index), imageAvailable.Destroy)

	renderComplete, err := backend.NewSemaphore()
	if err != nil {
		return nil, err
	}
	slot.RenderComplete = renderComplete
	stack.Push(fmt.Sprintf("frame slot %d render-complete semaphore", index), renderComplete.Destroy)

	return slot, nil
}
