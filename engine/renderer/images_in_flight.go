package renderer

import (
	"github.com/spaghettifunk/swapper/engine/containers"
	"github.com/spaghettifunk/swapper/engine/renderer/metadata"
)

// ImagesInFlight maps a chain image index to the fence of the frame slot that
// last submitted work against it. A nil entry means no submission is
// outstanding for that image. The table does not own the fences.
type ImagesInFlight struct {
	fences *containers.HandleStore[metadata.Fence]
}

func NewImagesInFlight() *ImagesInFlight {
	return &ImagesInFlight{
		fences: containers.NewHandleStore[metadata.Fence](1),
	}
}

// Reset empties the table and sizes it to the image count of a new chain.
func (t *ImagesInFlight) Reset(imageCount uint32) error {
	if err := t.fences.Clear(); err != nil {
		return err
	}
	return t.fences.Extend(make([]metadata.Fence, imageCount)...)
}

func (t *ImagesInFlight) Get(imageIndex uint32) (metadata.Fence, error) {
	return t.fences.Get(int(imageIndex))
}

func (t *ImagesInFlight) Set(imageIndex uint32, fence metadata.Fence) error {
	return t.fences.Set(int(imageIndex), fence)
}

func (t *ImagesInFlight) Len() int {
	return t.fences.Len()
}

// Outstanding counts the images with a recorded fence.
func (t *ImagesInFlight) Outstanding() int {
	n := 0
	for _, f := range t.fences.Slice() {
		if f != nil {
			n++
		}
	}
	return n
}
