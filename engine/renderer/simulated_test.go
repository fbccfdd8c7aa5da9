package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spaghettifunk/swapper/engine/renderer/metadata"
)

// simBackend stands in for the GPU. Submitted work completes lazily, when a
// fence is waited on or the device is idled, which is enough to catch a
// missing wait.
type simBackend struct {
	t *testing.T

	width, height uint32
	imageCount    uint32
	// resourceSkew is added to the resource count to force a mismatch.
	resourceSkew int
	// shaders, when set, is read on every resource build like the pipeline
	// does.
	shaders interface {
		ShaderCode(stage string) ([]byte, error)
	}

	chainBuilt     bool
	resourcesBuilt bool
	nextImage      uint32
	imageFence     []*simFence
	acquired       []bool

	acquireCalls   int
	presentCalls   int
	acquireScript  map[int]metadata.PresentStatus
	presentScript  map[int]metadata.PresentStatus
	onAcquire      func()
	nextImageCount uint32

	fences      []*simFence
	semaphores  []*simSemaphore
	ops         []string
	chainBuilds int
}

func newSimBackend(t *testing.T, imageCount uint32) *simBackend {
	return &simBackend{
		t:             t,
		width:         800,
		height:        600,
		imageCount:    imageCount,
		acquireScript: map[int]metadata.PresentStatus{},
		presentScript: map[int]metadata.PresentStatus{},
	}
}

type simFence struct {
	b         *simBackend
	id        int
	signaled  bool
	pending   bool
	submits   int
	waits     int
	destroyed bool
}

func (f *simFence) Wait() error {
	if f.destroyed {
		return fmt.Errorf("fence %d: wait after destroy", f.id)
	}
	f.waits++
	if f.pending {
		f.complete()
	}
	if !f.signaled {
		return fmt.Errorf("fence %d: wait on a fence no submission will signal", f.id)
	}
	return nil
}

func (f *simFence) Reset() error {
	if f.pending {
		return fmt.Errorf("fence %d: reset while in use", f.id)
	}
	f.signaled = false
	return nil
}

func (f *simFence) Destroy() {
	f.destroyed = true
	f.b.ops = append(f.b.ops, "destroy fence")
}

func (f *simFence) complete() {
	f.pending = false
	f.signaled = true
}

type simSemaphore struct {
	b         *simBackend
	id        int
	signaled  bool
	destroyed bool
}

func (s *simSemaphore) Destroy() {
	s.destroyed = true
	s.b.ops = append(s.b.ops, "destroy semaphore")
}

func (b *simBackend) NewFence(signaled bool) (metadata.Fence, error) {
	f := &simFence{b: b, id: len(b.fences), signaled: signaled}
	b.fences = append(b.fences, f)
	return f, nil
}

func (b *simBackend) NewSemaphore() (metadata.Semaphore, error) {
	s := &simSemaphore{b: b, id: len(b.semaphores)}
	b.semaphores = append(b.semaphores, s)
	return s, nil
}

func (b *simBackend) FramebufferSize() (uint32, uint32) {
	return b.width, b.height
}

func (b *simBackend) BuildChain(width, height uint32) error {
	if b.chainBuilt {
		return errors.New("chain built twice")
	}
	if width == 0 || height == 0 {
		return errors.New("zero-sized chain")
	}
	if b.nextImageCount != 0 && b.chainBuilds > 0 {
		b.imageCount = b.nextImageCount
	}
	b.chainBuilt = true
	b.chainBuilds++
	b.nextImage = 0
	b.imageFence = make([]*simFence, b.imageCount)
	b.acquired = make([]bool, b.imageCount)
	b.ops = append(b.ops, "build chain")
	return nil
}

func (b *simBackend) DestroyChain() {
	if b.resourcesBuilt {
		b.t.Errorf("chain destroyed before its resources")
	}
	b.chainBuilt = false
	b.ops = append(b.ops, "destroy chain")
}

func (b *simBackend) BuildResources() error {
	if !b.chainBuilt {
		return errors.New("resources built without a chain")
	}
	if b.shaders != nil {
		for _, stage := range []string{"vert", "frag"} {
			if _, err := b.shaders.ShaderCode(stage); err != nil {
				return err
			}
		}
	}
	b.resourcesBuilt = true
	b.ops = append(b.ops, "build resources")
	return nil
}

func (b *simBackend) DestroyResources() {
	b.resourcesBuilt = false
	b.ops = append(b.ops, "destroy resources")
}

func (b *simBackend) ImageCount() uint32 {
	return b.imageCount
}

func (b *simBackend) ResourceCount() uint32 {
	return uint32(int(b.imageCount) + b.resourceSkew)
}

func (b *simBackend) AcquireNextImage(signal metadata.Semaphore) (uint32, metadata.PresentStatus, error) {
	call := b.acquireCalls
	b.acquireCalls++
	if b.onAcquire != nil {
		b.onAcquire()
	}
	if !b.resourcesBuilt {
		return 0, 0, errors.New("acquire without resources")
	}
	if status, ok := b.acquireScript[call]; ok && status == metadata.PresentOutOfDate {
		return 0, status, nil
	}

	s := signal.(*simSemaphore)
	if s.signaled {
		return 0, 0, fmt.Errorf("semaphore %d signaled twice", s.id)
	}
	idx := b.nextImage
	if b.acquired[idx] {
		b.t.Errorf("image %d handed out twice before being presented", idx)
	}
	b.acquired[idx] = true
	b.nextImage = (b.nextImage + 1) % b.imageCount
	s.signaled = true
	return idx, b.acquireScript[call], nil
}

func (b *simBackend) Submit(imageIndex uint32, wait, signal metadata.Semaphore, fence metadata.Fence) error {
	w, s, f := wait.(*simSemaphore), signal.(*simSemaphore), fence.(*simFence)
	if !w.signaled {
		return fmt.Errorf("submit waits on unsignaled semaphore %d", w.id)
	}
	if s.signaled {
		return fmt.Errorf("submit signals already signaled semaphore %d", s.id)
	}
	if f.signaled || f.pending {
		return fmt.Errorf("submit with fence %d not reset", f.id)
	}
	if prev := b.imageFence[imageIndex]; prev != nil && prev.pending {
		b.t.Errorf("image %d double-claimed: fence %d still pending", imageIndex, prev.id)
	}
	w.signaled = false
	s.signaled = true
	f.pending = true
	f.submits++
	b.imageFence[imageIndex] = f
	return nil
}

func (b *simBackend) Present(imageIndex uint32, wait metadata.Semaphore) (metadata.PresentStatus, error) {
	call := b.presentCalls
	b.presentCalls++
	w := wait.(*simSemaphore)
	if !w.signaled {
		return 0, fmt.Errorf("present waits on unsignaled semaphore %d", w.id)
	}
	w.signaled = false
	b.acquired[imageIndex] = false
	return b.presentScript[call], nil
}

func (b *simBackend) WaitIdle() error {
	for _, f := range b.fences {
		if f.pending {
			f.complete()
		}
	}
	return nil
}

func (b *simBackend) liveSyncObjects() int {
	n := 0
	for _, f := range b.fences {
		if !f.destroyed {
			n++
		}
	}
	for _, s := range b.semaphores {
		if !s.destroyed {
			n++
		}
	}
	return n
}

func (b *simBackend) countOps(op string) int {
	n := 0
	for _, o := range b.ops {
		if o == op {
			n++
		}
	}
	return n
}
