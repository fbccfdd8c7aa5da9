package renderer

// FrameInput carries the per-iteration signals from the window and the asset
// watcher into the frame pacer.
type FrameInput struct {
	// The framebuffer was resized since the last frame.
	Resized bool
	// Something the surface resources are built from changed, e.g. a shader.
	Invalidate bool
}

type Mode uint8

const (
	ModeRunning Mode = iota
	// The surface resources are missing and must be rebuilt before drawing.
	ModeRebuilding
)

func (m Mode) String() string {
	if m == ModeRebuilding {
		return "rebuilding"
	}
	return "running"
}

// Stats counts what the frame pacer has done so far.
type Stats struct {
	FramesPresented uint64
	Rebuilds        uint64
	HazardWaits     uint64
	Mode            Mode
}
