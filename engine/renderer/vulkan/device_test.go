package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/swapper/engine/core"
)

func families(flags ...vk.QueueFlagBits) []vk.QueueFamilyProperties {
	out := make([]vk.QueueFamilyProperties, len(flags))
	for i, f := range flags {
		out[i].QueueFlags = vk.QueueFlags(f)
		out[i].QueueCount = 1
	}
	return out
}

func presentOn(indices ...uint32) func(uint32) (bool, error) {
	return func(index uint32) (bool, error) {
		for _, i := range indices {
			if i == index {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestResolveQueueFamilies(t *testing.T) {
	for _, x := range [...]struct {
		name     string
		families []vk.QueueFamilyProperties
		present  []uint32
		graphics string
		presents string
		complete bool
		shared   bool
	}{
		{"shared", families(vk.QueueGraphicsBit|vk.QueueComputeBit, vk.QueueTransferBit), []uint32{0, 1}, "0", "0", true, true},
		{"split", families(vk.QueueGraphicsBit, vk.QueueTransferBit), []uint32{1}, "0", "1", true, false},
		{"first graphics wins", families(vk.QueueTransferBit, vk.QueueGraphicsBit, vk.QueueGraphicsBit), []uint32{2}, "1", "2", true, false},
		{"first present wins", families(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueComputeBit), []uint32{1, 2}, "0", "1", true, false},
		{"no present", families(vk.QueueGraphicsBit), nil, "0", "none", false, false},
		{"no graphics", families(vk.QueueComputeBit), []uint32{0}, "none", "0", false, false},
		{"empty", nil, nil, "none", "none", false, false},
	} {
		t.Run(x.name, func(t *testing.T) {
			indices, err := ResolveQueueFamilies(x.families, presentOn(x.present...))
			if err != nil {
				t.Fatalf("ResolveQueueFamilies: %v", err)
			}
			if s := indices.Graphics.String(); s != x.graphics {
				t.Fatalf("Graphics\nhave %s\nwant %s", s, x.graphics)
			}
			if s := indices.Present.String(); s != x.presents {
				t.Fatalf("Present\nhave %s\nwant %s", s, x.presents)
			}
			if c := indices.IsComplete(); c != x.complete {
				t.Fatalf("IsComplete\nhave %t\nwant %t", c, x.complete)
			}
			if s := indices.SharesQueue(); s != x.shared {
				t.Fatalf("SharesQueue\nhave %t\nwant %t", s, x.shared)
			}
		})
	}
}

func TestResolveQueueFamiliesStopsWhenComplete(t *testing.T) {
	asked := 0
	_, err := ResolveQueueFamilies(families(vk.QueueGraphicsBit, vk.QueueGraphicsBit, vk.QueueGraphicsBit), func(uint32) (bool, error) {
		asked++
		return true, nil
	})
	if err != nil {
		t.Fatalf("ResolveQueueFamilies: %v", err)
	}
	if asked != 1 {
		t.Fatalf("present support queries\nhave %d\nwant 1", asked)
	}
}

func TestResolveQueueFamiliesError(t *testing.T) {
	want := errors.New("surface lost")
	indices, err := ResolveQueueFamilies(families(vk.QueueGraphicsBit), func(uint32) (bool, error) {
		return false, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("ResolveQueueFamilies\nhave %v\nwant %v", err, want)
	}
	if indices.Graphics.HasValue() {
		t.Fatal("indices returned alongside an error")
	}
}

func TestQueueFamilyIndicesUnique(t *testing.T) {
	split, _ := ResolveQueueFamilies(families(vk.QueueGraphicsBit, vk.QueueComputeBit), presentOn(1))
	if u := split.Unique(); len(u) != 2 || u[0] != 0 || u[1] != 1 {
		t.Fatalf("Unique\nhave %v\nwant [0 1]", u)
	}

	shared, _ := ResolveQueueFamilies(families(vk.QueueGraphicsBit), presentOn(0))
	if u := shared.Unique(); len(u) != 1 || u[0] != 0 {
		t.Fatalf("Unique\nhave %v\nwant [0]", u)
	}

	incomplete, _ := ResolveQueueFamilies(families(vk.QueueGraphicsBit), presentOn())
	if u := incomplete.Unique(); u != nil {
		t.Fatalf("Unique\nhave %v\nwant nil", u)
	}
	if _, err := incomplete.Present.Value(); !errors.Is(err, core.ErrInvariantViolation) {
		t.Fatalf("Present.Value\nhave %v\nwant %v", err, core.ErrInvariantViolation)
	}
}
