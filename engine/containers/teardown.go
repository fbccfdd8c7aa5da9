package containers

import (
	"github.com/spaghettifunk/swapper/engine/core"
)

type teardownEntry struct {
	name string
	fn   func()
}

// TeardownStack records how to destroy each layer right after the layer is
// created. Unwind destroys the layers in reverse creation order.
type TeardownStack struct {
	entries *HandleStore[teardownEntry]
}

func NewTeardownStack() *TeardownStack {
	return &TeardownStack{
		entries: NewHandleStore[teardownEntry](8),
	}
}

// Push registers the destructor of a layer that was just created.
func (ts *TeardownStack) Push(name string, fn func()) {
	if err := ts.entries.Push(teardownEntry{name: name, fn: fn}); err != nil {
		// only possible after Destroy, which the stack never calls
		core.LogError("teardown stack: cannot push %s: %s", name, err)
	}
}

func (ts *TeardownStack) Len() int {
	return ts.entries.Len()
}

// Names lists the registered layers from the first created to the last.
func (ts *TeardownStack) Names() []string {
	names := make([]string, 0, ts.entries.Len())
	for _, e := range ts.entries.Slice() {
		names = append(names, e.name)
	}
	return names
}

// Unwind pops every layer, running its destructor.
func (ts *TeardownStack) Unwind() {
	for ts.entries.Len() > 0 {
		e, err := ts.entries.Pop()
		if err != nil {
			core.LogError("teardown stack: %s", err)
			return
		}
		core.LogDebug("Destroying %s...", e.name)
		e.fn()
	}
}
