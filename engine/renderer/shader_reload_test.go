package renderer

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/swapper/engine/assets"
	"github.com/spaghettifunk/swapper/engine/assets/loaders"
)

func writeSpirv(t *testing.T, dir, stage string, words int) {
	t.Helper()
	data := make([]byte, 4*words)
	if words > 0 {
		binary.LittleEndian.PutUint32(data, loaders.SpirvMagic)
	}
	if err := os.WriteFile(filepath.Join(dir, stage+".spv"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFramePacerInvalidateWithBrokenShader(t *testing.T) {
	dir := t.TempDir()
	writeSpirv(t, dir, "vert", 4)
	writeSpirv(t, dir, "frag", 4)

	am, err := assets.NewAssetManager(dir)
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	defer am.Close()

	b := newSimBackend(t, 3)
	b.shaders = am
	p := newTestPacer(t, b, 2)
	drawFrames(t, p, 3, nil)

	// a half-written file on disk when the rebuild runs
	writeSpirv(t, dir, "vert", 0)
	if err := p.DrawFrame(FrameInput{Invalidate: true}); err != nil {
		t.Fatalf("p.DrawFrame after a broken shader write\nhave %v\nwant nil", err)
	}
	if st := p.Stats(); st.Mode != ModeRunning || st.Rebuilds != 1 || st.FramesPresented != 4 {
		t.Fatalf("have mode=%s rebuilds=%d presented=%d\nwant running, 1, 4", st.Mode, st.Rebuilds, st.FramesPresented)
	}

	writeSpirv(t, dir, "vert", 8)
	drawFrames(t, p, 3, func(i int) FrameInput {
		return FrameInput{Invalidate: i == 0}
	})
	if st := p.Stats(); st.Rebuilds != 2 || st.FramesPresented != 7 {
		t.Fatalf("have rebuilds=%d presented=%d\nwant 2 and 7", st.Rebuilds, st.FramesPresented)
	}
}

func TestFramePacerMissingShaderAtStart(t *testing.T) {
	am, err := assets.NewAssetManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	b := newSimBackend(t, 3)
	b.shaders = am
	if _, err := NewFramePacer(b, 2); err == nil {
		t.Fatal("NewFramePacer without shaders\nhave nil\nwant error")
	}
	if b.chainBuilt || b.resourcesBuilt {
		t.Fatal("partial build left behind")
	}
}
